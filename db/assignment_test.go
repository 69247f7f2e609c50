package db

import (
	"context"
	"testing"

	"Gin_postgres_redis_equipment_tool/lifecycle"
	"Gin_postgres_redis_equipment_tool/models"
)

func TestAssignThenReassign(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Scope A")

	f.at(t, "2024-01-10T10:00")
	first := f.assignEmployee(t, eq)

	got := f.reload(t, eq.ID)
	if got.Status != lifecycle.StatusAssigned {
		t.Fatalf("status = %s, want assigned", got.Status)
	}
	if got.LocationID != f.inUse.ID {
		t.Fatalf("location = %s, want In Use", got.LocationID)
	}
	if got.HolderType != lifecycle.HolderEmployee || got.EmployeeID == nil || *got.EmployeeID != f.employee.ID {
		t.Fatalf("holder not set: %+v", got)
	}
	if n, _ := f.r.CountOpenAssignments(f.ctx, eq.ID); n != 1 {
		t.Fatalf("open assignments = %d, want 1", n)
	}

	f.at(t, "2024-02-01T08:00")
	if _, err := f.r.Assign(f.ctx, f.mgr, eq.ID, AssignInput{
		HolderType:   lifecycle.HolderDepartment,
		DepartmentID: &f.department.ID,
	}); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	var closed models.Assignment
	if err := f.r.DB.First(&closed, "id = ?", first.ID).Error; err != nil {
		t.Fatalf("load first record: %v", err)
	}
	if closed.UnassignedDate == nil || !closed.UnassignedDate.Equal(ts(t, "2024-02-01")) {
		t.Fatalf("first record unassigned_date = %v, want 2024-02-01", closed.UnassignedDate)
	}
	if n, _ := f.r.CountOpenAssignments(f.ctx, eq.ID); n != 1 {
		t.Fatalf("open assignments = %d, want 1", n)
	}

	got = f.reload(t, eq.ID)
	if got.HolderType != lifecycle.HolderDepartment || got.EmployeeID != nil || got.DepartmentID == nil {
		t.Fatalf("holder refs not exclusive after reassignment: %+v", got)
	}
	if f.rec.Count("Equipment Assigned") != 2 {
		t.Fatalf("assigned events = %d, want 2", f.rec.Count("Equipment Assigned"))
	}
}

func TestAssignUnassignRoundTrip(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Scope B")
	f.assignEmployee(t, eq)

	f.at(t, "2024-01-05T12:00")
	out, err := f.r.Unassign(f.ctx, f.mgr, eq.ID, UnassignInput{Notes: "back to store"})
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if out.Status != lifecycle.StatusAvailable || out.LocationID != f.store.ID {
		t.Fatalf("after unassign: status %s location %s", out.Status, out.LocationID)
	}
	if out.HolderType != lifecycle.HolderNone || out.Refs().Count() != 0 || out.AssignedDate != nil {
		t.Fatalf("holder not cleared: %+v", out)
	}
	if n, _ := f.r.CountOpenAssignments(f.ctx, eq.ID); n != 0 {
		t.Fatalf("open assignments = %d, want 0", n)
	}
	as, err := f.r.ListAssignments(f.ctx, eq.ID)
	if err != nil || len(as) != 1 || as[0].Open() {
		t.Fatalf("ledger = %+v, %v", as, err)
	}
}

func TestAssignKeepsNonStoreLocation(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Scope C")
	if _, err := f.r.MoveEquipment(f.ctx, f.mgr, eq.ID, f.lab.ID); err != nil {
		t.Fatalf("move: %v", err)
	}
	f.assignEmployee(t, eq)
	if got := f.reload(t, eq.ID); got.LocationID != f.lab.ID {
		t.Fatalf("location = %s, want lab", got.LocationID)
	}
}

func TestAssignValidation(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Scope D")

	_, err := f.r.Assign(f.ctx, f.mgr, eq.ID, AssignInput{HolderType: lifecycle.HolderEmployee})
	wantKind(t, err, lifecycle.KindValidation)

	_, err = f.r.Assign(f.ctx, f.mgr, eq.ID, AssignInput{
		HolderType:   lifecycle.HolderEmployee,
		EmployeeID:   &f.employee.ID,
		DepartmentID: &f.department.ID,
	})
	wantKind(t, err, lifecycle.KindValidation)

	_, err = f.r.Assign(f.ctx, f.mgr, eq.ID, AssignInput{HolderType: lifecycle.HolderEmployee, EmployeeID: &f.department.ID})
	wantKind(t, err, lifecycle.KindValidation)

	if n, _ := f.r.CountOpenAssignments(f.ctx, eq.ID); n != 0 {
		t.Fatalf("failed assigns left %d open records", n)
	}
}

func TestUnassignWithoutOpenRecord(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Scope E")
	_, err := f.r.Unassign(f.ctx, f.mgr, eq.ID, UnassignInput{})
	wantKind(t, err, lifecycle.KindBusiness)
}

func TestUnassignBeforeAssignedDate(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Scope F")
	f.at(t, "2024-03-10T10:00")
	f.assignEmployee(t, eq)

	early := ts(t, "2024-03-01")
	_, err := f.r.Unassign(f.ctx, f.mgr, eq.ID, UnassignInput{UnassignedDate: &early})
	wantKind(t, err, lifecycle.KindValidation)
}

func TestBorrowedAssetRejectsLedgerChanges(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Scope G")
	f.at(t, "2024-03-01T09:00")
	l := f.loan(t, eq, "2024-03-01T09:00", "2024-03-05T17:00")
	if _, err := f.r.IssueLoan(f.ctx, f.mgr, l.ID); err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err := f.r.Assign(f.ctx, f.mgr, eq.ID, AssignInput{HolderType: lifecycle.HolderEmployee, EmployeeID: &f.employee.ID})
	wantKind(t, err, lifecycle.KindBusiness)
	_, err = f.r.Unassign(f.ctx, f.mgr, eq.ID, UnassignInput{})
	wantKind(t, err, lifecycle.KindBusiness)

	if got := f.reload(t, eq.ID); got.Status != lifecycle.StatusBorrowed || got.HolderType != lifecycle.HolderNone {
		t.Fatalf("asset changed by rejected operations: %+v", got)
	}
}

func TestAssignNeedsNonStoreLocation(t *testing.T) {
	r, _ := NewTestRepo(t)
	f := &fixture{r: r}
	ctx := context.Background()
	ref := models.RefMainStore
	if _, err := r.createLocation(ctx, LocationInput{Name: "Main Store", LocationType: "warehouse"}, &ref); err != nil {
		t.Fatalf("create main store: %v", err)
	}
	u, _, err := r.CreateUser(ctx, UserInput{Username: "m", IsManager: true})
	if err != nil {
		t.Fatal(err)
	}
	cat, err := r.CreateCategory(ctx, CategoryInput{Name: "Misc"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := r.CreatePartner(ctx, PartnerInput{Name: "Pat"})
	if err != nil {
		t.Fatal(err)
	}
	actor := Actor{UserID: u.ID, IsManager: true}
	eq, err := r.CreateEquipment(ctx, actor, EquipmentInput{Name: "Probe", CategoryID: cat.ID})
	if err != nil {
		t.Fatal(err)
	}

	_, err = r.Assign(ctx, actor, eq.ID, AssignInput{HolderType: lifecycle.HolderEmployee, EmployeeID: &p.ID})
	wantKind(t, err, lifecycle.KindConfiguration)
	if got := f.reload(t, eq.ID); got.HolderType != lifecycle.HolderNone {
		t.Fatalf("holder set despite configuration error")
	}
}

func TestMoveHeldAssetToMainStoreRejected(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Scope H")
	f.assignEmployee(t, eq)
	_, err := f.r.MoveEquipment(f.ctx, f.mgr, eq.ID, f.store.ID)
	wantKind(t, err, lifecycle.KindBusiness)
}

func TestPlacementHoldsAcrossWorkflow(t *testing.T) {
	f := newFixture(t)
	a := f.equipment(t, "Scope I")
	b := f.equipment(t, "Scope J")
	f.assignEmployee(t, a)
	if _, err := f.r.Assign(f.ctx, f.mgr, b.ID, AssignInput{HolderType: lifecycle.HolderDepartment, DepartmentID: &f.department.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.r.Unassign(f.ctx, f.mgr, b.ID, UnassignInput{}); err != nil {
		t.Fatal(err)
	}

	var all []models.Equipment
	if err := f.r.DB.Find(&all).Error; err != nil {
		t.Fatal(err)
	}
	for _, eq := range all {
		if err := lifecycle.CheckPlacement(eq.Placement(f.store.ID)); err != nil {
			t.Errorf("%s: %v", eq.Name, err)
		}
		open, _ := f.r.CountOpenAssignments(f.ctx, eq.ID)
		if eq.HolderType.Held() != (open == 1) || open > 1 {
			t.Errorf("%s: holder %s with %d open records", eq.Name, eq.HolderType, open)
		}
	}
}

func TestReassignBeforeCurrentAssignedDate(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Scope R")
	f.at(t, "2024-03-10T10:00")
	first := f.assignEmployee(t, eq)

	back := ts(t, "2024-03-01")
	_, err := f.r.Assign(f.ctx, f.mgr, eq.ID, AssignInput{
		HolderType:   lifecycle.HolderDepartment,
		DepartmentID: &f.department.ID,
		AssignedDate: &back,
	})
	wantKind(t, err, lifecycle.KindValidation)

	var open models.Assignment
	if err := f.r.DB.First(&open, "id = ?", first.ID).Error; err != nil {
		t.Fatal(err)
	}
	if open.UnassignedDate != nil {
		t.Fatalf("current record closed on %v", open.UnassignedDate)
	}
	if got := f.reload(t, eq.ID); got.HolderType != lifecycle.HolderEmployee {
		t.Fatalf("holder = %s, want employee kept", got.HolderType)
	}
}
