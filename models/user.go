package models

import (
	"time"
)

const (
	UserTable    = "eqm_users"
	PartnerTable = "eqm_partners"
)

// User is an acting person: borrower, approver, technician or operator.
type User struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Username    string `gorm:"uniqueIndex;size:255;not null" json:"username"`
	DisplayName string `gorm:"size:255;not null" json:"displayName"`
	Email       string `gorm:"size:255" json:"email,omitempty"`
	IsManager   bool   `gorm:"not null;default:false" json:"isManager"`

	AccessKeyHash string `gorm:"size:100;not null" json:"-"` // bcrypt

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	LoginCount  int64      `gorm:"not null;default:0" json:"loginCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return UserTable
}

// Partner is an assignment holder: a person (employee), a company
// (department/unit) or an external custodian.
type Partner struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	IsCompany bool      `gorm:"not null;default:false" json:"isCompany"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Partner) TableName() string { return PartnerTable }
