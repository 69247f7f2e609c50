package db

import (
	"context"
	"testing"
	"time"

	"Gin_postgres_redis_equipment_tool/lifecycle"
	"Gin_postgres_redis_equipment_tool/models"
	"Gin_postgres_redis_equipment_tool/notify"
)

type fixture struct {
	r   *Repo
	rec *notify.Recorder
	ctx context.Context

	mgr      Actor
	borrower Actor

	store *models.Location
	inUse *models.Location
	lab   *models.Location

	cat      *models.Category
	approval *models.Category

	employee   *models.Partner
	department *models.Partner
}

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	layouts := []string{time.RFC3339, "2006-01-02T15:04", time.DateOnly}
	for _, l := range layouts {
		if v, err := time.Parse(l, s); err == nil {
			return v.UTC()
		}
	}
	t.Fatalf("bad time %q", s)
	return time.Time{}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r, rec := NewTestRepo(t)
	f := &fixture{r: r, rec: rec, ctx: context.Background()}
	f.at(t, "2024-01-01T09:00")

	if err := r.EnsureReferenceLocations(f.ctx); err != nil {
		t.Fatalf("seed locations: %v", err)
	}
	var err error
	if f.store, err = mainStore(r.DB); err != nil {
		t.Fatalf("main store: %v", err)
	}
	if f.inUse, err = locationByRef(r.DB, models.RefInUse); err != nil || f.inUse == nil {
		t.Fatalf("in use location: %v", err)
	}
	if f.lab, err = r.CreateLocation(f.ctx, LocationInput{Name: "Lab 1"}); err != nil {
		t.Fatalf("create lab: %v", err)
	}

	mgr, _, err := r.CreateUser(f.ctx, UserInput{Username: "manager", IsManager: true})
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	f.mgr = Actor{UserID: mgr.ID, IsManager: true}
	user, _, err := r.CreateUser(f.ctx, UserInput{Username: "student"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	f.borrower = Actor{UserID: user.ID}

	if f.cat, err = r.CreateCategory(f.ctx, CategoryInput{Name: "Oscilloscopes", MaxBorrowDays: 7}); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if f.approval, err = r.CreateCategory(f.ctx, CategoryInput{Name: "Lasers", RequiresApproval: true}); err != nil {
		t.Fatalf("create category: %v", err)
	}

	if f.employee, err = r.CreatePartner(f.ctx, PartnerInput{Name: "Erin"}); err != nil {
		t.Fatalf("create partner: %v", err)
	}
	if f.department, err = r.CreatePartner(f.ctx, PartnerInput{Name: "Physics", IsCompany: true}); err != nil {
		t.Fatalf("create partner: %v", err)
	}
	return f
}

// at pins the repo clock.
func (f *fixture) at(t *testing.T, s string) {
	t.Helper()
	now := ts(t, s)
	f.r.Now = func() time.Time { return now }
}

func (f *fixture) equipment(t *testing.T, name string) *models.Equipment {
	t.Helper()
	eq, err := f.r.CreateEquipment(f.ctx, f.mgr, EquipmentInput{Name: name, CategoryID: f.cat.ID})
	if err != nil {
		t.Fatalf("create equipment %s: %v", name, err)
	}
	return eq
}

func (f *fixture) reload(t *testing.T, id string) *models.Equipment {
	t.Helper()
	eq, err := first[models.Equipment](f.r.DB, "equipment", id, false)
	if err != nil {
		t.Fatalf("reload equipment: %v", err)
	}
	return eq
}

func (f *fixture) loan(t *testing.T, eq *models.Equipment, from, to string) *models.Loan {
	t.Helper()
	b, d := ts(t, from), ts(t, to)
	l, err := f.r.CreateLoan(f.ctx, f.mgr, LoanInput{
		EquipmentID: eq.ID,
		BorrowerID:  f.borrower.UserID,
		BorrowDate:  &b,
		DueDate:     &d,
		Purpose:     "lab session",
	})
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}
	return l
}

func (f *fixture) assignEmployee(t *testing.T, eq *models.Equipment) *models.Assignment {
	t.Helper()
	a, err := f.r.Assign(f.ctx, f.mgr, eq.ID, AssignInput{HolderType: lifecycle.HolderEmployee, EmployeeID: &f.employee.ID})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	return a
}

func wantKind(t *testing.T, err error, k lifecycle.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", k)
	}
	if got := lifecycle.KindOf(err); got != k {
		t.Fatalf("expected %s error, got %s: %v", k, got, err)
	}
}
