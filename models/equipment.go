// models/equipment.go
package models

import (
	"time"

	"Gin_postgres_redis_equipment_tool/lifecycle"

	"github.com/shopspring/decimal"
)

const (
	EquipmentTable  = "eqm_equipment"
	AssignmentTable = "eqm_assignments"
)

type Equipment struct {
	ID           string  `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string  `gorm:"size:200;not null" json:"name"`
	Barcode      string  `gorm:"size:120;uniqueIndex;not null" json:"barcode"`
	SerialNumber *string `gorm:"size:120;uniqueIndex:idx_eqm_serial_company" json:"serialNumber,omitempty"`
	CompanyID    string  `gorm:"size:64;uniqueIndex:idx_eqm_serial_company;not null;default:''" json:"companyId"`
	AssetTag     string  `gorm:"size:120" json:"assetTag,omitempty"`
	ModelNumber  string  `gorm:"size:120" json:"modelNumber,omitempty"`
	Manufacturer string  `gorm:"size:200" json:"manufacturer,omitempty"`

	CategoryID string `gorm:"type:uuid;index;not null" json:"categoryId"`
	LocationID string `gorm:"type:uuid;index;not null" json:"locationId"`

	// holder: exactly one reference matches HolderType unless it is "none"
	HolderType         lifecycle.HolderType `gorm:"size:20;not null;default:'none'" json:"holderType"`
	EmployeeID         *string              `gorm:"type:uuid;index" json:"employeeId,omitempty"`
	DepartmentID       *string              `gorm:"type:uuid;index" json:"departmentId,omitempty"`
	CustodianPartnerID *string              `gorm:"type:uuid;index" json:"custodianPartnerId,omitempty"`
	AssignedDate       *time.Time           `json:"assignedDate,omitempty"`

	// user holding the item because of a loan
	CustodianID *string `gorm:"type:uuid" json:"custodianId,omitempty"`

	Status         lifecycle.AssetStatus `gorm:"size:20;index;not null;default:'available'" json:"status"`
	Condition      lifecycle.Condition   `gorm:"size:20;not null;default:'good'" json:"condition"`
	ConditionNotes string                `gorm:"type:text" json:"conditionNotes,omitempty"`

	PurchaseDate      *time.Time          `json:"purchaseDate,omitempty"`
	PurchaseValue     decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"purchaseValue"`
	WarrantyStartDate *time.Time          `json:"warrantyStartDate,omitempty"`
	WarrantyEndDate   *time.Time          `json:"warrantyEndDate,omitempty"`

	ResponsibleID *string `gorm:"type:uuid" json:"responsibleId,omitempty"`
	Notes         string  `gorm:"type:text" json:"notes,omitempty"`
	Active        bool    `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Equipment) TableName() string { return EquipmentTable }

// Refs returns the holder references as a lifecycle value.
func (e *Equipment) Refs() lifecycle.HolderRefs {
	return lifecycle.HolderRefs{
		EmployeeID:   e.EmployeeID,
		DepartmentID: e.DepartmentID,
		CustodianID:  e.CustodianPartnerID,
	}
}

// Placement feeds the Main Store / holder cross-check.
func (e *Equipment) Placement(mainStoreID string) lifecycle.Placement {
	return lifecycle.Placement{
		LocationID:   e.LocationID,
		MainStoreID:  mainStoreID,
		Holder:       e.HolderType,
		Refs:         e.Refs(),
		AssignedDate: e.AssignedDate,
	}
}

// ClearHolder resets every holder field.
func (e *Equipment) ClearHolder() {
	e.HolderType = lifecycle.HolderNone
	e.EmployeeID = nil
	e.DepartmentID = nil
	e.CustodianPartnerID = nil
	e.AssignedDate = nil
}

// WarrantyActive is true while the warranty end date has not passed.
func (e *Equipment) WarrantyActive(now time.Time) bool {
	return e.WarrantyEndDate != nil && !e.WarrantyEndDate.Before(DateOf(now))
}

// Assignment is one entry of the holder ledger. It is closed by setting
// UnassignedDate and never deleted.
type Assignment struct {
	ID                 string               `gorm:"type:uuid;primaryKey" json:"id"`
	EquipmentID        string               `gorm:"type:uuid;index;not null" json:"equipmentId"`
	HolderType         lifecycle.HolderType `gorm:"size:20;index;not null" json:"holderType"`
	EmployeeID         *string              `gorm:"type:uuid" json:"employeeId,omitempty"`
	DepartmentID       *string              `gorm:"type:uuid" json:"departmentId,omitempty"`
	CustodianPartnerID *string              `gorm:"type:uuid" json:"custodianPartnerId,omitempty"`
	AssignedDate       time.Time            `gorm:"not null" json:"assignedDate"`
	UnassignedDate     *time.Time           `gorm:"index" json:"unassignedDate,omitempty"`
	AssignedByID       string               `gorm:"type:uuid;not null" json:"assignedById"`
	UnassignedByID     *string              `gorm:"type:uuid" json:"unassignedById,omitempty"`
	Notes              string               `gorm:"type:text" json:"notes,omitempty"`
	LocationID         string               `gorm:"type:uuid" json:"locationId"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}

func (Assignment) TableName() string { return AssignmentTable }

func (a *Assignment) Open() bool { return a.UnassignedDate == nil }

// DateOf truncates t to a UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
