package api

import (
	"net/http"
	"time"

	"github.com/farmstead/farmbook/pkg/httputil"
	"github.com/farmstead/farmbook/pkg/storage"
)

type vehicleRequest struct {
	Name        string  `json:"name"`
	Make        string  `json:"make"`
	Model       string  `json:"model"`
	Year        int     `json:"year"`
	EngineHours float64 `json:"engine_hours"`
	Notes       string  `json:"notes"`
}

func (s *Server) createVehicle(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}

	var req vehicleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	vehicle := &storage.Vehicle{
		FarmID:      farmID,
		Name:        req.Name,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		EngineHours: req.EngineHours,
		Notes:       req.Notes,
	}
	if err := s.store.CreateVehicle(r.Context(), vehicle); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteCreated(w, vehicle)
}

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}
	vehicles, err := s.store.ListVehicles(r.Context(), &scope[0], scope)
	if err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	if vehicles == nil {
		vehicles = []*storage.Vehicle{}
	}
	httputil.WriteSuccess(w, vehicles)
}

func (s *Server) getVehicle(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	vehicle, err := s.store.GetVehicle(r.Context(), id, scope)
	if err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteSuccess(w, vehicle)
}

func (s *Server) updateVehicle(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req vehicleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	vehicle := &storage.Vehicle{
		ID:          id,
		FarmID:      farmID,
		Name:        req.Name,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		EngineHours: req.EngineHours,
		Notes:       req.Notes,
	}
	if err := s.store.UpdateVehicle(r.Context(), vehicle); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteSuccess(w, vehicle)
}

func (s *Server) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteVehicle(r.Context(), id, farmID); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type applicationRequest struct {
	FieldID   *int64     `json:"field_id"`
	Product   string     `json:"product"`
	Rate      float64    `json:"rate"`
	Unit      string     `json:"unit"`
	AppliedAt *time.Time `json:"applied_at"`
	Notes     string     `json:"notes"`
}

func (s *Server) createApplication(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	user := currentUser(r)

	var req applicationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Product, "product") {
		return
	}

	application := &storage.Application{
		FarmID:    farmID,
		FieldID:   req.FieldID,
		Product:   req.Product,
		Rate:      req.Rate,
		Unit:      req.Unit,
		AppliedBy: &user.ID,
		Notes:     req.Notes,
	}
	if req.AppliedAt != nil {
		application.AppliedAt = *req.AppliedAt
	}
	if err := s.store.CreateApplication(r.Context(), application); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteCreated(w, application)
}

func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}
	applications, err := s.store.ListApplications(r.Context(), &scope[0], scope)
	if err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	if applications == nil {
		applications = []*storage.Application{}
	}
	httputil.WriteSuccess(w, applications)
}

func (s *Server) getApplication(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	application, err := s.store.GetApplication(r.Context(), id, scope)
	if err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteSuccess(w, application)
}

func (s *Server) deleteApplication(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteApplication(r.Context(), id, farmID); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type maintenanceRequest struct {
	VehicleID   int64      `json:"vehicle_id"`
	Description string     `json:"description"`
	Cost        float64    `json:"cost"`
	PerformedAt *time.Time `json:"performed_at"`
	Notes       string     `json:"notes"`
}

func (s *Server) createMaintenanceRecord(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	user := currentUser(r)

	var req maintenanceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Description, "description") {
		return
	}
	if req.VehicleID <= 0 {
		httputil.WriteBadRequest(w, "vehicle_id is required")
		return
	}

	// The vehicle must belong to this farm
	if _, err := s.store.GetVehicle(r.Context(), req.VehicleID, []int64{farmID}); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}

	record := &storage.MaintenanceRecord{
		FarmID:      farmID,
		VehicleID:   req.VehicleID,
		Description: req.Description,
		Cost:        req.Cost,
		PerformedBy: &user.ID,
		Notes:       req.Notes,
	}
	if req.PerformedAt != nil {
		record.PerformedAt = *req.PerformedAt
	}
	if err := s.store.CreateMaintenanceRecord(r.Context(), record); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteCreated(w, record)
}

func (s *Server) listMaintenanceRecords(w http.ResponseWriter, r *http.Request) {
	scope, ok := farmScope(w, r)
	if !ok {
		return
	}

	var vehicleID *int64
	if id, err := httputil.ParseQueryInt64(r, "vehicle_id", 0); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	} else if id > 0 {
		vehicleID = &id
	}

	records, err := s.store.ListMaintenanceRecords(r.Context(), vehicleID, scope)
	if err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	if records == nil {
		records = []*storage.MaintenanceRecord{}
	}
	httputil.WriteSuccess(w, records)
}

func (s *Server) deleteMaintenanceRecord(w http.ResponseWriter, r *http.Request) {
	farmID, ok := guardedFarmID(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteMaintenanceRecord(r.Context(), id, farmID); err != nil {
		httputil.WriteStorageError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
