package models

import "time"

const (
	LocationTable = "eqm_locations"
	CategoryTable = "eqm_categories"

	// well-known location refs
	RefMainStore = "main_store"
	RefInUse     = "in_use"
)

type Location struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string    `gorm:"size:200;not null" json:"name"`
	Code          *string   `gorm:"size:40;uniqueIndex" json:"code,omitempty"`
	Ref           *string   `gorm:"size:40;uniqueIndex" json:"ref,omitempty"`
	ParentID      *string   `gorm:"type:uuid;index" json:"parentId,omitempty"`
	LocationType  string    `gorm:"size:20;not null;default:'lab'" json:"locationType"`
	Building      string    `gorm:"size:120" json:"building,omitempty"`
	Floor         string    `gorm:"size:40" json:"floor,omitempty"`
	Room          string    `gorm:"size:40" json:"room,omitempty"`
	Address       string    `gorm:"type:text" json:"address,omitempty"`
	ResponsibleID *string   `gorm:"type:uuid" json:"responsibleId,omitempty"`
	Active        bool      `gorm:"not null;default:true" json:"active"`
	Notes         string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Location) TableName() string { return LocationTable }

func (l *Location) Node() Node { return Node{ID: l.ID, ParentID: l.ParentID, Name: l.Name} }

var LocationTypes = []string{"warehouse", "lab", "office", "workshop", "field", "maintenance", "retired"}

type Category struct {
	ID                     string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name                   string    `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Code                   string    `gorm:"size:40" json:"code,omitempty"`
	Sequence               int       `gorm:"not null;default:10" json:"sequence"`
	ParentID               *string   `gorm:"type:uuid;index" json:"parentId,omitempty"`
	RequiresApproval       bool      `gorm:"not null;default:false" json:"requiresApproval"`
	MaxBorrowDays          int       `gorm:"not null;default:7" json:"maxBorrowDays"`
	AllowExternalBorrowing bool      `gorm:"not null;default:false" json:"allowExternalBorrowing"`
	ResponsibleID          *string   `gorm:"type:uuid" json:"responsibleId,omitempty"`
	Active                 bool      `gorm:"not null;default:true" json:"active"`
	Description            string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

func (Category) TableName() string { return CategoryTable }

func (c *Category) Node() Node { return Node{ID: c.ID, ParentID: c.ParentID, Name: c.Name} }

// LocationView adds the derived fields returned by the API.
type LocationView struct {
	Location
	CompleteName   string `json:"completeName"`
	EquipmentCount int64  `json:"equipmentCount"`
	BorrowedCount  int64  `json:"borrowedCount"`
}

type CategoryView struct {
	Category
	CompleteName   string `json:"completeName"`
	EquipmentCount int64  `json:"equipmentCount"`
}
