package storage

import "time"

// Farm is the top-level record every other record hangs off
type Farm struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	SizeAcres float64   `json:"size_acres,omitempty"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Field is a named parcel of a farm
type Field struct {
	ID        int64     `json:"id"`
	FarmID    int64     `json:"farm_id"`
	Name      string    `json:"name"`
	Acres     float64   `json:"acres,omitempty"`
	SoilType  string    `json:"soil_type,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CropStatus tracks a planting through its season
type CropStatus string

const (
	CropPlanned   CropStatus = "planned"
	CropPlanted   CropStatus = "planted"
	CropHarvested CropStatus = "harvested"
	CropFailed    CropStatus = "failed"
)

// Crop is a planting in a field. It has no farm_id of its own; farm
// scoping goes through the field.
type Crop struct {
	ID          int64      `json:"id"`
	FieldID     int64      `json:"field_id"`
	Name        string     `json:"name"`
	Variety     string     `json:"variety,omitempty"`
	Status      CropStatus `json:"status"`
	PlantedAt   *time.Time `json:"planted_at,omitempty"`
	HarvestedAt *time.Time `json:"harvested_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	FarmID int64 `json:"farm_id,omitempty"`
}

// Vehicle is a piece of farm equipment
type Vehicle struct {
	ID          int64     `json:"id"`
	FarmID      int64     `json:"farm_id"`
	Name        string    `json:"name"`
	Make        string    `json:"make,omitempty"`
	Model       string    `json:"model,omitempty"`
	Year        int       `json:"year,omitempty"`
	EngineHours float64   `json:"engine_hours,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Application records a chemical or fertilizer application
type Application struct {
	ID        int64     `json:"id"`
	FarmID    int64     `json:"farm_id"`
	FieldID   *int64    `json:"field_id,omitempty"`
	Product   string    `json:"product"`
	Rate      float64   `json:"rate,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	AppliedAt time.Time `json:"applied_at"`
	AppliedBy *int64    `json:"applied_by,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaintenanceRecord records service work on a vehicle
type MaintenanceRecord struct {
	ID          int64     `json:"id"`
	FarmID      int64     `json:"farm_id"`
	VehicleID   int64     `json:"vehicle_id"`
	Description string    `json:"description"`
	Cost        float64   `json:"cost,omitempty"`
	PerformedAt time.Time `json:"performed_at"`
	PerformedBy *int64    `json:"performed_by,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
