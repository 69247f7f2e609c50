package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Gin_postgres_redis_equipment_tool/lifecycle"
	"Gin_postgres_redis_equipment_tool/models"
	"Gin_postgres_redis_equipment_tool/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LoanInput struct {
	EquipmentID      string     `json:"equipmentId" binding:"required,uuid"`
	BorrowerID       string     `json:"borrowerId" binding:"omitempty,uuid"`
	BorrowDate       *time.Time `json:"borrowDate"`
	DueDate          *time.Time `json:"dueDate"`
	ReturnLocationID *string    `json:"returnLocationId" binding:"omitempty,uuid"`
	Purpose          string     `json:"purpose" binding:"required"`
	Notes            string     `json:"notes"`
}

type ReturnInput struct {
	ReturnDate        *time.Time          `json:"returnDate"`
	ReturnLocationID  *string             `json:"returnLocationId" binding:"omitempty,uuid"`
	ConditionReturn   lifecycle.Condition `json:"conditionReturn" binding:"omitempty,condition"`
	HasDamage         bool                `json:"hasDamage"`
	DamageNotes       string              `json:"damageNotes"`
	DamageCost        decimal.Decimal     `json:"damageCost"`
	CreateMaintenance bool                `json:"createMaintenance"`
	Notes             string              `json:"notes"`
}

var activeLoanStatuses = []string{string(lifecycle.LoanApproved), string(lifecycle.LoanIssued)}

func loanEvent(l *models.Loan, actor Actor, subject, body string, to ...string) notify.Event {
	return notify.Event{
		SubjectType: notify.SubjectLoan,
		SubjectID:   l.ID,
		Subject:     subject,
		Body:        body,
		AuthorID:    actor.UserID,
		Recipients:  to,
	}
}

// checkConflict rejects want when another approved or issued loan on the
// asset overlaps it.
func checkConflict(tx *gorm.DB, eq *models.Equipment, selfID string, want lifecycle.Interval) error {
	var others []models.Loan
	if err := tx.Where("equipment_id = ? AND status IN ? AND id <> ?", eq.ID, activeLoanStatuses, selfID).
		Order("borrow_date ASC").
		Find(&others).Error; err != nil {
		return fmt.Errorf("load loans: %w", err)
	}
	bookings := make([]lifecycle.Booking, 0, len(others))
	for i := range others {
		bookings = append(bookings, others[i].Booking())
	}
	if b, ok := lifecycle.FirstConflict(selfID, want, bookings); ok {
		return lifecycle.ConflictError(eq.Name, b)
	}
	return nil
}

func managerIDs(tx *gorm.DB) ([]string, error) {
	var ids []string
	err := tx.Model(&models.User{}).Where("is_manager = ?", true).Order("username").Pluck("id", &ids).Error
	return ids, err
}

func (r *Repo) createLoan(t *txn, actor Actor, eq *models.Equipment, in LoanInput) (*models.Loan, *models.Category, error) {
	if !eq.Active {
		return nil, nil, lifecycle.Businessf("equipment %s is archived", eq.Name)
	}
	if eq.Status == lifecycle.StatusRetired || eq.Status == lifecycle.StatusLost {
		return nil, nil, lifecycle.Businessf("%s equipment cannot be borrowed", eq.Status)
	}
	purpose := strings.TrimSpace(in.Purpose)
	if purpose == "" {
		return nil, nil, lifecycle.Validationf("purpose is required")
	}
	borrower := in.BorrowerID
	if borrower == "" {
		borrower = actor.UserID
	}
	if _, err := first[models.User](t.DB, "user", borrower, false); err != nil {
		return nil, nil, err
	}
	cat, err := first[models.Category](t.DB, "category", eq.CategoryID, false)
	if err != nil {
		return nil, nil, err
	}

	borrow := t.now
	if in.BorrowDate != nil {
		borrow = in.BorrowDate.UTC()
	}
	due := lifecycle.DefaultDue(borrow, cat.MaxBorrowDays)
	if in.DueDate != nil {
		due = in.DueDate.UTC()
	}
	if due.Before(borrow) {
		return nil, nil, lifecycle.Validationf("due date must be after borrow date")
	}

	returnLoc := eq.LocationID
	if p := blankToNil(in.ReturnLocationID); p != nil {
		if _, err := first[models.Location](t.DB, "location", *p, false); err != nil {
			return nil, nil, err
		}
		returnLoc = *p
	}

	name, err := nextName(t.DB, SeqLoan)
	if err != nil {
		return nil, nil, err
	}
	l := &models.Loan{
		ID:               uuid.NewString(),
		Name:             name,
		EquipmentID:      eq.ID,
		BorrowerID:       borrower,
		BorrowDate:       borrow,
		DueDate:          due,
		FromLocationID:   eq.LocationID,
		ReturnLocationID: &returnLoc,
		Purpose:          purpose,
		Notes:            in.Notes,
		ConditionOut:     eq.Condition,
		Status:           lifecycle.LoanDraft,
		CompanyID:        eq.CompanyID,
	}
	if err := t.Create(l).Error; err != nil {
		return nil, nil, fmt.Errorf("insert loan: %w", err)
	}
	t.post(loanEvent(l, actor, "Loan Created", fmt.Sprintf("Loan %s requested for %s.", l.Name, eq.Name)))
	return l, cat, nil
}

func (r *Repo) submitLoan(t *txn, actor Actor, eq *models.Equipment, l *models.Loan, cat *models.Category) error {
	if err := lifecycle.CanSubmitLoan(l.Status); err != nil {
		return err
	}
	if !cat.RequiresApproval {
		return r.approveLoan(t, actor, eq, l)
	}
	l.Status = lifecycle.LoanPending
	if err := t.Save(l).Error; err != nil {
		return fmt.Errorf("submit loan: %w", err)
	}
	managers, err := managerIDs(t.DB)
	if err != nil {
		return fmt.Errorf("load managers: %w", err)
	}
	t.post(loanEvent(l, actor, "Equipment Loan Approval Required",
		fmt.Sprintf("Loan %s requires your approval.\nEquipment: %s", l.Name, eq.Name), managers...))
	return nil
}

func (r *Repo) approveLoan(t *txn, actor Actor, eq *models.Equipment, l *models.Loan) error {
	if err := lifecycle.CanApproveLoan(l.Status); err != nil {
		return err
	}
	if eq.HolderType.Held() {
		return lifecycle.Businessf("this item is assigned to someone, unassign it before borrowing")
	}
	if err := checkConflict(t.DB, eq, l.ID, l.Interval()); err != nil {
		return err
	}
	if err := lifecycle.CanBorrow(eq.Status, eq.HolderType); err != nil {
		return err
	}
	now := t.now
	l.Status = lifecycle.LoanApproved
	l.ApproverID = &actor.UserID
	l.ApprovalDate = &now
	if err := t.Save(l).Error; err != nil {
		return fmt.Errorf("approve loan: %w", err)
	}
	t.post(loanEvent(l, actor, "Equipment Loan Approved",
		fmt.Sprintf("Your loan request %s has been approved.\nPlease collect the equipment.", l.Name), l.BorrowerID))
	return nil
}

func (r *Repo) issueLoan(t *txn, actor Actor, eq *models.Equipment, l *models.Loan) error {
	if eq.HolderType.Held() {
		return lifecycle.Businessf("this item is assigned to someone, unassign it before borrowing")
	}
	if err := lifecycle.CanIssueLoan(l.Status); err != nil {
		return err
	}
	now := t.now
	if l.DueDate.Before(now) {
		return lifecycle.Validationf("due date %s has already passed", l.DueDate.Format(time.RFC3339))
	}
	if err := checkConflict(t.DB, eq, l.ID, lifecycle.Interval{From: now, To: l.DueDate}); err != nil {
		return err
	}
	if err := lifecycle.CanBorrow(eq.Status, eq.HolderType); err != nil {
		return err
	}

	eq.Status = lifecycle.StatusBorrowed
	eq.CustodianID = &l.BorrowerID
	eq.LocationID = l.FromLocationID
	if err := checkPlacement(t.DB, eq); err != nil {
		return err
	}
	if err := t.Save(eq).Error; err != nil {
		return fmt.Errorf("update equipment: %w", err)
	}

	l.Status = lifecycle.LoanIssued
	l.BorrowDate = now
	l.IssuedByID = &actor.UserID
	if err := t.Save(l).Error; err != nil {
		return fmt.Errorf("issue loan: %w", err)
	}
	t.post(loanEvent(l, actor, "Equipment Issued",
		fmt.Sprintf("Equipment %s has been issued to you.\nDue date: %s", eq.Name, l.DueDate.Format("2006-01-02 15:04")), l.BorrowerID))
	return nil
}

// onLoan locks the loan's asset, then the loan row.
func (r *Repo) onLoan(ctx context.Context, action, loanID string, fn func(t *txn, eq *models.Equipment, l *models.Loan) error) (*models.Loan, error) {
	pre, err := first[models.Loan](r.DB.WithContext(ctx), "loan", loanID, false)
	if err != nil {
		return nil, err
	}
	var out *models.Loan
	err = r.onAsset(ctx, "loan", action, pre.EquipmentID, func(t *txn, eq *models.Equipment) error {
		l, err := first[models.Loan](t.DB, "loan", loanID, true)
		if err != nil {
			return err
		}
		if err := fn(t, eq, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	return out, err
}

func (r *Repo) CreateLoan(ctx context.Context, actor Actor, in LoanInput) (*models.Loan, error) {
	var out *models.Loan
	err := r.onAsset(ctx, "loan", "create", in.EquipmentID, func(t *txn, eq *models.Equipment) error {
		l, _, err := r.createLoan(t, actor, eq, in)
		out = l
		return err
	})
	return out, err
}

// SubmitLoan sends a draft for approval, or approves it directly when the
// category does not require approval.
func (r *Repo) SubmitLoan(ctx context.Context, actor Actor, id string) (*models.Loan, error) {
	return r.onLoan(ctx, "submit", id, func(t *txn, eq *models.Equipment, l *models.Loan) error {
		if err := actor.owns(l.BorrowerID); err != nil {
			return err
		}
		cat, err := first[models.Category](t.DB, "category", eq.CategoryID, false)
		if err != nil {
			return err
		}
		return r.submitLoan(t, actor, eq, l, cat)
	})
}

func (r *Repo) ApproveLoan(ctx context.Context, actor Actor, id string) (*models.Loan, error) {
	return r.onLoan(ctx, "approve", id, func(t *txn, eq *models.Equipment, l *models.Loan) error {
		if err := actor.manager("approve loans"); err != nil {
			return err
		}
		return r.approveLoan(t, actor, eq, l)
	})
}

func (r *Repo) IssueLoan(ctx context.Context, actor Actor, id string) (*models.Loan, error) {
	return r.onLoan(ctx, "issue", id, func(t *txn, eq *models.Equipment, l *models.Loan) error {
		if err := actor.manager("issue loans"); err != nil {
			return err
		}
		return r.issueLoan(t, actor, eq, l)
	})
}

// QuickBorrow creates a loan and either issues it at once or submits it for
// approval, depending on the category.
func (r *Repo) QuickBorrow(ctx context.Context, actor Actor, in LoanInput) (*models.Loan, error) {
	var out *models.Loan
	err := r.onAsset(ctx, "loan", "borrow", in.EquipmentID, func(t *txn, eq *models.Equipment) error {
		if err := lifecycle.CanBorrow(eq.Status, eq.HolderType); err != nil {
			return err
		}
		l, cat, err := r.createLoan(t, actor, eq, in)
		if err != nil {
			return err
		}
		out = l
		if cat.RequiresApproval {
			return r.submitLoan(t, actor, eq, l, cat)
		}
		if err := r.approveLoan(t, actor, eq, l); err != nil {
			return err
		}
		return r.issueLoan(t, actor, eq, l)
	})
	return out, err
}

// ReturnLoan closes an issued or overdue loan. The asset goes to maintenance
// when requested, stays with its holder when assigned, else becomes
// available at the return location.
func (r *Repo) ReturnLoan(ctx context.Context, actor Actor, id string, in ReturnInput) (*models.Loan, error) {
	return r.onLoan(ctx, "return", id, func(t *txn, eq *models.Equipment, l *models.Loan) error {
		if err := actor.manager("receive returns"); err != nil {
			return err
		}
		if err := lifecycle.CanReturnLoan(l.Status); err != nil {
			return err
		}

		returnLoc := l.FromLocationID
		if l.ReturnLocationID != nil {
			returnLoc = *l.ReturnLocationID
		}
		if p := blankToNil(in.ReturnLocationID); p != nil {
			returnLoc = *p
		}
		if _, err := first[models.Location](t.DB, "location", returnLoc, false); err != nil {
			return err
		}

		cond := in.ConditionReturn
		if in.HasDamage {
			cond = lifecycle.ConditionDamaged
		}
		if cond == "" {
			cond = eq.Condition
		}
		if !cond.Valid() {
			return lifecycle.Validationf("unknown condition %q", cond)
		}

		open, err := openAssignment(t.DB, eq.ID)
		if err != nil {
			return err
		}
		outcome := lifecycle.ReturnStatus(in.CreateMaintenance, eq.HolderType.Held() || open != nil)

		returned := t.now
		if in.ReturnDate != nil {
			returned = in.ReturnDate.UTC()
		}
		l.Status = lifecycle.LoanReturned
		l.ReturnDate = &returned
		l.ConditionReturn = &cond
		l.ReturnedToID = &actor.UserID
		l.ActualReturnLocationID = &returnLoc
		l.Notes = appendNote(l.Notes, strings.TrimSpace(in.Notes))
		if in.HasDamage {
			l.DamageNotes = in.DamageNotes
			l.DamageCost = in.DamageCost
		} else {
			l.DamageNotes = ""
			l.DamageCost = decimal.Zero
		}
		if err := t.Save(l).Error; err != nil {
			return fmt.Errorf("return loan: %w", err)
		}

		if eq.Status != lifecycle.StatusRetired && eq.Status != lifecycle.StatusLost {
			eq.Status = outcome.Status
		}
		eq.Condition = cond
		if in.HasDamage {
			eq.ConditionNotes = in.DamageNotes
		}
		if outcome.Relocate {
			eq.LocationID = returnLoc
		}
		eq.CustodianID = nil
		if err := checkPlacement(t.DB, eq); err != nil {
			return err
		}
		if err := t.Save(eq).Error; err != nil {
			return fmt.Errorf("update equipment: %w", err)
		}

		if in.CreateMaintenance {
			desc := strings.TrimSpace(in.DamageNotes)
			if desc == "" {
				desc = "Maintenance required after return"
			}
			if _, err := createMaintenance(t, actor, eq, lifecycle.MaintenanceCorrective, desc, models.DateOf(t.now), nil, true); err != nil {
				return err
			}
		}

		t.post(loanEvent(l, actor, "Equipment Returned",
			fmt.Sprintf("Equipment %s has been returned successfully.", eq.Name), l.BorrowerID))
		msg := "Equipment returned successfully."
		if in.HasDamage {
			msg = appendNote(msg, "Equipment has damage: "+in.DamageNotes)
		}
		t.post(loanEvent(l, actor, "Equipment Returned", msg))
		return nil
	})
}

// RejectLoan cancels a draft or pending request with a reason.
func (r *Repo) RejectLoan(ctx context.Context, actor Actor, id, reason string, notifyBorrower bool) (*models.Loan, error) {
	return r.onLoan(ctx, "reject", id, func(t *txn, eq *models.Equipment, l *models.Loan) error {
		if err := actor.manager("reject loans"); err != nil {
			return err
		}
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return lifecycle.Validationf("a rejection reason is required")
		}
		if err := lifecycle.CanRejectLoan(l.Status); err != nil {
			return err
		}
		l.Status = lifecycle.LoanCancelled
		l.RejectionReason = reason
		if err := t.Save(l).Error; err != nil {
			return fmt.Errorf("reject loan: %w", err)
		}
		t.post(loanEvent(l, actor, "Loan Request Rejected", "Loan request rejected.\nReason: "+reason))
		if notifyBorrower {
			t.post(loanEvent(l, actor, "Loan Request Rejected",
				fmt.Sprintf("Your loan request %s has been rejected.\nReason: %s", l.Name, reason), l.BorrowerID))
		}
		return nil
	})
}

func (r *Repo) CancelLoan(ctx context.Context, actor Actor, id string) (*models.Loan, error) {
	return r.onLoan(ctx, "cancel", id, func(t *txn, eq *models.Equipment, l *models.Loan) error {
		if err := actor.owns(l.BorrowerID); err != nil {
			return err
		}
		if err := lifecycle.CanCancelLoan(l.Status); err != nil {
			return err
		}
		l.Status = lifecycle.LoanCancelled
		if err := t.Save(l).Error; err != nil {
			return fmt.Errorf("cancel loan: %w", err)
		}
		t.post(loanEvent(l, actor, "Loan Cancelled", "Loan cancelled."))
		return nil
	})
}

// Queries

type LoanQuery struct {
	BorrowerID  string
	EquipmentID string
	Status      string
	Page        int
	Size        int
}

type PagedLoans struct {
	Total int64             `json:"total"`
	Items []models.LoanView `json:"items"`
}

func (r *Repo) ListLoans(ctx context.Context, q LoanQuery) (*PagedLoans, error) {
	q.Page, q.Size = page(q.Page, q.Size, 200)
	tx := r.DB.WithContext(ctx).Model(&models.Loan{})
	if q.BorrowerID != "" {
		tx = tx.Where("borrower_id = ?", q.BorrowerID)
	}
	if q.EquipmentID != "" {
		tx = tx.Where("equipment_id = ?", q.EquipmentID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}
	var ls []models.Loan
	if err := tx.Order("borrow_date DESC, name DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&ls).Error; err != nil {
		return nil, err
	}
	views, err := r.loanViews(ctx, ls)
	if err != nil {
		return nil, err
	}
	return &PagedLoans{Total: total, Items: views}, nil
}

func (r *Repo) GetLoan(ctx context.Context, id string) (*models.LoanView, error) {
	l, err := first[models.Loan](r.DB.WithContext(ctx), "loan", id, false)
	if err != nil {
		return nil, err
	}
	views, err := r.loanViews(ctx, []models.Loan{*l})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// loanViews resolves requires-approval through each loan's asset category.
func (r *Repo) loanViews(ctx context.Context, ls []models.Loan) ([]models.LoanView, error) {
	tx := r.DB.WithContext(ctx)
	ids := make([]string, 0, len(ls))
	for _, l := range ls {
		ids = append(ids, l.EquipmentID)
	}
	type row struct {
		ID               string
		RequiresApproval bool
	}
	var rows []row
	if len(ids) > 0 {
		if err := tx.Table(models.EquipmentTable+" e").
			Select("e.id, c.requires_approval").
			Joins("JOIN "+models.CategoryTable+" c ON c.id = e.category_id").
			Where("e.id IN ?", ids).
			Scan(&rows).Error; err != nil {
			return nil, err
		}
	}
	approval := make(map[string]bool, len(rows))
	for _, rw := range rows {
		approval[rw.ID] = rw.RequiresApproval
	}
	now := r.now()
	views := make([]models.LoanView, 0, len(ls))
	for _, l := range ls {
		views = append(views, models.NewLoanView(l, approval[l.EquipmentID], now))
	}
	return views, nil
}
