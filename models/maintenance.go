package models

import (
	"time"

	"Gin_postgres_redis_equipment_tool/lifecycle"

	"github.com/shopspring/decimal"
)

const (
	MaintenanceTable          = "eqm_maintenance"
	ReservationTable          = "eqm_reservations"
	ReservationEquipmentTable = "eqm_reservation_equipment"
)

type Maintenance struct {
	ID                  string                      `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string                      `gorm:"size:32;uniqueIndex;not null" json:"name"` // MT00001
	EquipmentID         string                      `gorm:"type:uuid;index;not null" json:"equipmentId"`
	Type                lifecycle.MaintenanceType   `gorm:"size:20;not null;default:'preventive'" json:"type"`
	Description         string                      `gorm:"type:text;not null" json:"description"`
	ScheduledDate       time.Time                   `gorm:"index;not null" json:"scheduledDate"`
	CompletedDate       *time.Time                  `json:"completedDate,omitempty"`
	TechnicianID        *string                     `gorm:"type:uuid" json:"technicianId,omitempty"`
	Status              lifecycle.MaintenanceStatus `gorm:"size:20;index;not null;default:'scheduled'" json:"status"`
	// HoldsAsset is set while the record keeps its equipment in maintenance.
	HoldsAsset          bool                        `gorm:"not null;default:false" json:"holdsAsset"`
	WorkDone            string                      `gorm:"type:text" json:"workDone,omitempty"`
	PartsUsed           string                      `gorm:"type:text" json:"partsUsed,omitempty"`
	Cost                decimal.Decimal             `gorm:"type:numeric(14,2);not null;default:0" json:"cost"`
	DurationHours       float64                     `json:"durationHours"`
	NextMaintenanceDate *time.Time                  `json:"nextMaintenanceDate,omitempty"`
	CreatedAt           time.Time                   `json:"createdAt"`
	UpdatedAt           time.Time                   `json:"updatedAt"`
}

func (Maintenance) TableName() string { return MaintenanceTable }

type Reservation struct {
	ID          string                      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string                      `gorm:"size:32;uniqueIndex;not null" json:"name"` // RS00001
	RequesterID string                      `gorm:"type:uuid;index;not null" json:"requesterId"`
	FromDate    time.Time                   `gorm:"not null" json:"fromDate"`
	ToDate      time.Time                   `gorm:"not null" json:"toDate"`
	Purpose     string                      `gorm:"type:text;not null" json:"purpose"`
	Status      lifecycle.ReservationStatus `gorm:"size:20;index;not null;default:'draft'" json:"status"`
	ApproverID  *string                     `gorm:"type:uuid" json:"approverId,omitempty"`
	Notes       string                      `gorm:"type:text" json:"notes,omitempty"`
	Equipment   []Equipment                 `gorm:"many2many:eqm_reservation_equipment;joinForeignKey:ReservationID;joinReferences:EquipmentID" json:"equipment,omitempty"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

func (Reservation) TableName() string { return ReservationTable }

func (r *Reservation) EquipmentIDs() []string {
	ids := make([]string, 0, len(r.Equipment))
	for _, e := range r.Equipment {
		ids = append(ids, e.ID)
	}
	return ids
}
