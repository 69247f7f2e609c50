package lifecycle

import "time"

// LoanStatus is the status of a borrow request.
type LoanStatus string

const (
	LoanDraft     LoanStatus = "draft"
	LoanPending   LoanStatus = "pending"
	LoanApproved  LoanStatus = "approved"
	LoanIssued    LoanStatus = "issued"
	LoanReturned  LoanStatus = "returned"
	LoanCancelled LoanStatus = "cancelled"
	LoanOverdue   LoanStatus = "overdue"
)

// Active loans take part in the overlap check.
func (s LoanStatus) Active() bool { return s == LoanApproved || s == LoanIssued }

// Out means the equipment is physically with the borrower.
func (s LoanStatus) Out() bool { return s == LoanIssued || s == LoanOverdue }

func CanSubmitLoan(s LoanStatus) error {
	if s != LoanDraft {
		return Businessf("only draft loans can be submitted (status %s)", s)
	}
	return nil
}

func CanApproveLoan(s LoanStatus) error {
	if s != LoanDraft && s != LoanPending {
		return Businessf("only draft or pending loans can be approved (status %s)", s)
	}
	return nil
}

func CanIssueLoan(s LoanStatus) error {
	if s != LoanApproved && s != LoanDraft {
		return Businessf("only approved loans can be issued (status %s)", s)
	}
	return nil
}

func CanReturnLoan(s LoanStatus) error {
	if !s.Out() {
		return Businessf("only issued or overdue loans can be returned (status %s)", s)
	}
	return nil
}

func CanRejectLoan(s LoanStatus) error {
	if s != LoanDraft && s != LoanPending {
		return Businessf("only draft or pending loans can be rejected (status %s)", s)
	}
	return nil
}

func CanCancelLoan(s LoanStatus) error {
	switch s {
	case LoanIssued, LoanOverdue:
		return Businessf("cannot cancel an issued loan, return the equipment first")
	case LoanReturned, LoanCancelled:
		return Businessf("loan is already closed (status %s)", s)
	}
	return nil
}

// Interval is a closed [From, To] time range.
type Interval struct {
	From time.Time
	To   time.Time
}

func (i Interval) Valid() bool { return !i.To.Before(i.From) }

// Overlaps is the inclusive overlap test: touching endpoints overlap.
func Overlaps(a, b Interval) bool {
	return !a.From.After(b.To) && !b.From.After(a.To)
}

// Booking is another loan competing for the same asset.
type Booking struct {
	ID     string
	Name   string
	Status LoanStatus
	Interval
}

// FirstConflict returns the first active booking (other than self) whose
// interval overlaps want.
func FirstConflict(self string, want Interval, others []Booking) (Booking, bool) {
	for _, b := range others {
		if b.ID == self || !b.Status.Active() {
			continue
		}
		if Overlaps(want, b.Interval) {
			return b, true
		}
	}
	return Booking{}, false
}

// ConflictError builds the business error naming the blocking loan.
func ConflictError(equipment string, b Booking) *Error {
	ref := b.Name
	if ref == "" {
		ref = b.ID
	}
	return &Error{
		Kind:     KindBusiness,
		Msg:      "equipment \"" + equipment + "\" is already borrowed for the requested period",
		Conflict: ref,
	}
}

// ReturnOutcome describes how the asset looks after a loan is returned.
type ReturnOutcome struct {
	Status AssetStatus
	// Relocate is false when the asset keeps its current location.
	Relocate bool
}

// ReturnStatus applies the return priority:
// requested maintenance > open assignment > available.
func ReturnStatus(wantMaintenance, hasOpenAssignment bool) ReturnOutcome {
	switch {
	case wantMaintenance:
		return ReturnOutcome{Status: StatusMaintenance, Relocate: true}
	case hasOpenAssignment:
		return ReturnOutcome{Status: StatusAssigned}
	default:
		return ReturnOutcome{Status: StatusAvailable, Relocate: true}
	}
}

// DueForOverdue reports whether an issued loan has passed its due date.
func DueForOverdue(s LoanStatus, due, now time.Time) bool {
	return s == LoanIssued && due.Before(now)
}

// ReminderWindow is how far ahead of the due date reminders are sent.
const ReminderWindow = 24 * time.Hour

// DueForReminder reports whether an issued loan falls inside the reminder
// window and has not been reminded yet.
func DueForReminder(s LoanStatus, due, now time.Time, remindedAt *time.Time) bool {
	if s != LoanIssued || remindedAt != nil {
		return false
	}
	return !due.Before(now) && !due.After(now.Add(ReminderWindow))
}

// DefaultDue computes a due date from the category's borrow policy.
func DefaultDue(borrow time.Time, maxDays int) time.Time {
	if maxDays <= 0 {
		maxDays = 7
	}
	return borrow.AddDate(0, 0, maxDays)
}
