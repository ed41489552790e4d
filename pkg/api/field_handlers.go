package api

import (
	"net/http"
	"time"

	"github.com/farmstead/farmbook/pkg/httputil"
	"github.com/farmstead/farmbook/pkg/storage"
)

type fieldRequest struct {
	Name     string  `json:"name"`
	Acres    float64 `json:"acres"`
	SoilType string  `json:"soil_type"`
	Notes    string  `json:"notes"`
}

func (s *Server) createField(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}

	var req fieldRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	field := &storage.Field{
		FarmID:   farmID,
		Name:     req.Name,
		Acres:    req.Acres,
		SoilType: req.SoilType,
		Notes:    req.Notes,
	}
	if err := s.store.CreateField(r.Context(), field); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteCreated(w, field)
}

func (s *Server) listFields(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}
	fields, err := s.store.ListFields(r.Context(), &scope[0], scope)
	if err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	if fields == nil {
		fields = []*storage.Field{}
	}
	httputil.WriteSuccess(w, fields)
}

func (s *Server) getField(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	field, err := s.store.GetField(r.Context(), id, scope)
	if err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteSuccess(w, field)
}

func (s *Server) updateField(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req fieldRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	field := &storage.Field{
		ID:       id,
		FarmID:   farmID,
		Name:     req.Name,
		Acres:    req.Acres,
		SoilType: req.SoilType,
		Notes:    req.Notes,
	}
	if err := s.store.UpdateField(r.Context(), field); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteSuccess(w, field)
}

func (s *Server) deleteField(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteField(r.Context(), id, farmID); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type cropRequest struct {
	FieldID     int64              `json:"field_id"`
	Name        string             `json:"name"`
	Variety     string             `json:"variety"`
	Status      storage.CropStatus `json:"status"`
	PlantedAt   *time.Time         `json:"planted_at"`
	HarvestedAt *time.Time         `json:"harvested_at"`
	Notes       string             `json:"notes"`
}

func (req *cropRequest) toCrop(id int64) *storage.Crop {
	return &storage.Crop{
		ID:          id,
		FieldID:     req.FieldID,
		Name:        req.Name,
		Variety:     req.Variety,
		Status:      req.Status,
		PlantedAt:   req.PlantedAt,
		HarvestedAt: req.HarvestedAt,
		Notes:       req.Notes,
	}
}

func (s *Server) createCrop(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}

	var req cropRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}
	if req.FieldID <= 0 {
		httputil.WriteBadRequest(w, "field_id is required")
		return
	}

	crop := req.toCrop(0)
	if err := s.store.CreateCrop(r.Context(), crop, scope); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteCreated(w, crop)
}

func (s *Server) listCrops(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}

	var fieldID *int64
	if id, err := httputil.ParseQueryInt64(r, "field_id", 0); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	} else if id > 0 {
		fieldID = &id
	}

	crops, err := s.store.ListCrops(r.Context(), fieldID, scope)
	if err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	if crops == nil {
		crops = []*storage.Crop{}
	}
	httputil.WriteSuccess(w, crops)
}

func (s *Server) getCrop(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	crop, err := s.store.GetCrop(r.Context(), id, scope)
	if err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteSuccess(w, crop)
}

func (s *Server) updateCrop(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req cropRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}
	if !httputil.RequireNonEmpty(w, string(req.Status), "status") {
		return
	}

	crop := req.toCrop(id)
	if err := s.store.UpdateCrop(r.Context(), crop, scope); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteSuccess(w, crop)
}

func (s *Server) deleteCrop(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteCrop(r.Context(), id, scope); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
