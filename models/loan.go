// models/loan.go
package models

import (
	"time"

	"Gin_postgres_redis_equipment_tool/lifecycle"

	"github.com/shopspring/decimal"
)

const LoanTable = "eqm_loans"

type Loan struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string `gorm:"size:32;uniqueIndex;not null" json:"name"` // LN00001
	EquipmentID string `gorm:"type:uuid;index;not null" json:"equipmentId"`
	BorrowerID  string `gorm:"type:uuid;index;not null" json:"borrowerId"`

	BorrowDate time.Time  `gorm:"index;not null" json:"borrowDate"`
	DueDate    time.Time  `gorm:"index;not null" json:"dueDate"`
	ReturnDate *time.Time `json:"returnDate,omitempty"`

	FromLocationID         string  `gorm:"type:uuid;index;not null" json:"fromLocationId"`
	ReturnLocationID       *string `gorm:"type:uuid" json:"returnLocationId,omitempty"`
	ActualReturnLocationID *string `gorm:"type:uuid" json:"actualReturnLocationId,omitempty"`

	Purpose string `gorm:"type:text;not null" json:"purpose"`
	Notes   string `gorm:"type:text" json:"notes,omitempty"`

	ConditionOut    lifecycle.Condition  `gorm:"size:20;not null;default:'good'" json:"conditionOut"`
	ConditionReturn *lifecycle.Condition `gorm:"size:20" json:"conditionReturn,omitempty"`
	DamageNotes     string               `gorm:"type:text" json:"damageNotes,omitempty"`
	DamageCost      decimal.Decimal      `gorm:"type:numeric(14,2);not null;default:0" json:"damageCost"`

	Status          lifecycle.LoanStatus `gorm:"size:20;index;not null;default:'draft'" json:"status"`
	ApproverID      *string              `gorm:"type:uuid" json:"approverId,omitempty"`
	ApprovalDate    *time.Time           `json:"approvalDate,omitempty"`
	RejectionReason string               `gorm:"type:text" json:"rejectionReason,omitempty"`
	IssuedByID      *string              `gorm:"type:uuid" json:"issuedById,omitempty"`
	ReturnedToID    *string              `gorm:"type:uuid" json:"returnedToId,omitempty"`
	RemindedAt      *time.Time           `json:"remindedAt,omitempty"`
	ReservationID   *string              `gorm:"type:uuid;index" json:"reservationId,omitempty"`

	CompanyID string    `gorm:"size:64;not null;default:''" json:"companyId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Loan) TableName() string { return LoanTable }

func (l *Loan) Interval() lifecycle.Interval {
	return lifecycle.Interval{From: l.BorrowDate, To: l.DueDate}
}

func (l *Loan) Booking() lifecycle.Booking {
	return lifecycle.Booking{ID: l.ID, Name: l.Name, Status: l.Status, Interval: l.Interval()}
}

// IsOverdue is true for unreturned approved/issued/overdue loans past due.
func (l *Loan) IsOverdue(now time.Time) bool {
	if l.ReturnDate != nil {
		return false
	}
	switch l.Status {
	case lifecycle.LoanApproved, lifecycle.LoanIssued, lifecycle.LoanOverdue:
		return l.DueDate.Before(now)
	}
	return false
}

// DaysBorrowed counts whole days from borrow to return (or now).
func (l *Loan) DaysBorrowed(now time.Time) int {
	end := now
	if l.ReturnDate != nil {
		end = *l.ReturnDate
	}
	if end.Before(l.BorrowDate) {
		return 0
	}
	return int(end.Sub(l.BorrowDate).Hours() / 24)
}

// DaysOverdue counts whole days past the due date while overdue.
func (l *Loan) DaysOverdue(now time.Time) int {
	if !l.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(l.DueDate).Hours() / 24)
}

// LoanView is a loan with its read-only derived fields.
type LoanView struct {
	Loan
	IsOverdue        bool `json:"isOverdue"`
	DaysBorrowed     int  `json:"daysBorrowed"`
	DaysOverdue      int  `json:"daysOverdue"`
	RequiresApproval bool `json:"requiresApproval"`
}

func NewLoanView(l Loan, requiresApproval bool, now time.Time) LoanView {
	return LoanView{
		Loan:             l,
		IsOverdue:        l.IsOverdue(now),
		DaysBorrowed:     l.DaysBorrowed(now),
		DaysOverdue:      l.DaysOverdue(now),
		RequiresApproval: requiresApproval,
	}
}
