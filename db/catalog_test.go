package db

import (
	"context"
	"testing"
	"time"

	"Gin_postgres_redis_equipment_tool/lifecycle"
)

func TestCreateEquipmentDefaultsAndUniqueness(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Scope A")
	if eq.LocationID != f.store.ID || eq.Status != lifecycle.StatusAvailable || eq.Condition != lifecycle.ConditionGood {
		t.Fatalf("defaults: %+v", eq)
	}

	_, err := f.r.CreateEquipment(f.ctx, f.mgr, EquipmentInput{Name: "Dup", CategoryID: f.cat.ID, Barcode: eq.Barcode})
	wantKind(t, err, lifecycle.KindValidation)

	_, err = f.r.CreateEquipment(f.ctx, f.mgr, EquipmentInput{Name: "Short", CategoryID: f.cat.ID, Barcode: "ab"})
	wantKind(t, err, lifecycle.KindValidation)

	sn := "SN-1"
	if _, err := f.r.CreateEquipment(f.ctx, f.mgr, EquipmentInput{Name: "S1", CategoryID: f.cat.ID, SerialNumber: &sn}); err != nil {
		t.Fatal(err)
	}
	_, err = f.r.CreateEquipment(f.ctx, f.mgr, EquipmentInput{Name: "S2", CategoryID: f.cat.ID, SerialNumber: &sn})
	wantKind(t, err, lifecycle.KindValidation)

	_, err = f.r.CreateEquipment(f.ctx, f.mgr, EquipmentInput{Name: "Ghost", CategoryID: f.lab.ID})
	wantKind(t, err, lifecycle.KindNotFound)
}

func TestCreateEquipmentWithoutMainStore(t *testing.T) {
	r, _ := NewTestRepo(t)
	ctx := context.Background()
	cat, err := r.CreateCategory(ctx, CategoryInput{Name: "Misc"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.CreateEquipment(ctx, Actor{}, EquipmentInput{Name: "Probe", CategoryID: cat.ID})
	wantKind(t, err, lifecycle.KindConfiguration)
}

func TestStatusActions(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Scope A")
	f.assignEmployee(t, eq)

	if _, err := f.r.MarkEquipmentLost(f.ctx, f.mgr, eq.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.r.MarkEquipmentLost(f.ctx, f.mgr, eq.ID)
	wantKind(t, err, lifecycle.KindBusiness)

	found, err := f.r.MarkEquipmentFound(f.ctx, f.mgr, eq.ID)
	if err != nil {
		t.Fatal(err)
	}
	if found.Status != lifecycle.StatusAssigned {
		t.Fatalf("found status = %s, want assigned", found.Status)
	}

	_, err = f.r.ArchiveEquipment(f.ctx, f.mgr, eq.ID)
	wantKind(t, err, lifecycle.KindBusiness)
	if _, err := f.r.Unassign(f.ctx, f.mgr, eq.ID, UnassignInput{}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.r.RetireEquipment(f.ctx, f.mgr, eq.ID); err != nil {
		t.Fatal(err)
	}
	_, err = f.r.MarkEquipmentFound(f.ctx, f.mgr, eq.ID)
	wantKind(t, err, lifecycle.KindBusiness)

	if _, err := f.r.ArchiveEquipment(f.ctx, f.mgr, eq.ID); err != nil {
		t.Fatal(err)
	}
	page, err := f.r.ListEquipment(f.ctx, EquipmentQuery{})
	if err != nil || page.Total != 0 {
		t.Fatalf("archived asset listed: %+v, %v", page, err)
	}
	page, err = f.r.ListEquipment(f.ctx, EquipmentQuery{IncludeArchived: true})
	if err != nil || page.Total != 1 {
		t.Fatalf("archived asset missing: %+v, %v", page, err)
	}
}

func TestGetEquipmentDerivedFields(t *testing.T) {
	f := newFixture(t)
	f.at(t, "2024-06-01T09:00")
	end := ts(t, "2024-12-31")
	eq, err := f.r.CreateEquipment(f.ctx, f.mgr, EquipmentInput{Name: "Laser", CategoryID: f.approval.ID, WarrantyEndDate: &end})
	if err != nil {
		t.Fatal(err)
	}
	next := ts(t, "2024-06-20")
	if _, err := f.r.CreateMaintenance(f.ctx, f.mgr, MaintenanceInput{EquipmentID: eq.ID, Description: "align", ScheduledDate: &next}); err != nil {
		t.Fatal(err)
	}
	old := ts(t, "2024-05-01")
	if _, err := f.r.CreateMaintenance(f.ctx, f.mgr, MaintenanceInput{EquipmentID: eq.ID, Description: "missed", ScheduledDate: &old}); err != nil {
		t.Fatal(err)
	}

	v, err := f.r.GetEquipment(f.ctx, eq.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !v.WarrantyActive || !v.RequiresApproval {
		t.Fatalf("view flags: %+v", v)
	}
	if v.NextMaintenanceDate == nil || !v.NextMaintenanceDate.Equal(next) {
		t.Fatalf("next maintenance = %v, want %s", v.NextMaintenanceDate, next.Format(time.DateOnly))
	}
}

func TestLocationTreeAndCounts(t *testing.T) {
	f := newFixture(t)
	bench, err := f.r.CreateLocation(f.ctx, LocationInput{Name: "Bench 2", ParentID: &f.lab.ID})
	if err != nil {
		t.Fatal(err)
	}
	a := f.equipment(t, "Scope A")
	b := f.equipment(t, "Scope B")
	for _, eq := range []string{a.ID, b.ID} {
		if _, err := f.r.MoveEquipment(f.ctx, f.mgr, eq, bench.ID); err != nil {
			t.Fatal(err)
		}
	}
	f.at(t, "2024-03-01T09:00")
	if _, err := f.r.QuickBorrow(f.ctx, f.borrower, LoanInput{EquipmentID: a.ID, Purpose: "p"}); err != nil {
		t.Fatal(err)
	}

	v, err := f.r.GetLocation(f.ctx, bench.ID)
	if err != nil {
		t.Fatal(err)
	}
	if v.CompleteName != "Lab 1 / Bench 2" || v.EquipmentCount != 2 || v.BorrowedCount != 1 {
		t.Fatalf("bench view: %+v", v)
	}
	parent, err := f.r.GetLocation(f.ctx, f.lab.ID)
	if err != nil || parent.EquipmentCount != 2 {
		t.Fatalf("lab rollup: %+v, %v", parent, err)
	}

	code := "L1"
	if _, err := f.r.CreateLocation(f.ctx, LocationInput{Name: "X", Code: &code}); err != nil {
		t.Fatal(err)
	}
	_, err = f.r.CreateLocation(f.ctx, LocationInput{Name: "Y", Code: &code})
	wantKind(t, err, lifecycle.KindValidation)
	_, err = f.r.CreateLocation(f.ctx, LocationInput{Name: "Z", LocationType: "moon"})
	wantKind(t, err, lifecycle.KindValidation)
}

func TestEnsureReferenceLocationsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	if err := f.r.EnsureReferenceLocations(f.ctx); err != nil {
		t.Fatal(err)
	}
	views, err := f.r.ListLocations(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 3 {
		t.Fatalf("locations = %d, want 3", len(views))
	}
}

func TestCategoryCycleRejected(t *testing.T) {
	f := newFixture(t)
	child, err := f.r.CreateCategory(f.ctx, CategoryInput{Name: "Digital", ParentID: &f.cat.ID})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.r.SetCategoryParent(f.ctx, f.cat.ID, &child.ID)
	wantKind(t, err, lifecycle.KindValidation)
	_, err = f.r.SetCategoryParent(f.ctx, f.cat.ID, &f.cat.ID)
	wantKind(t, err, lifecycle.KindValidation)

	v, err := f.r.GetCategory(f.ctx, child.ID)
	if err != nil || v.CompleteName != "Oscilloscopes / Digital" {
		t.Fatalf("category view: %+v, %v", v, err)
	}
	_, err = f.r.CreateCategory(f.ctx, CategoryInput{Name: "Digital"})
	wantKind(t, err, lifecycle.KindValidation)
}

func TestAuthenticate(t *testing.T) {
	r, _ := NewTestRepo(t)
	ctx := context.Background()
	u, key, err := r.CreateUser(ctx, UserInput{Username: " Alice "})
	if err != nil {
		t.Fatal(err)
	}
	if u.Username != "alice" || key == "" {
		t.Fatalf("user %q key %q", u.Username, key)
	}
	if _, err := r.Authenticate(ctx, "ALICE", key); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := r.Authenticate(ctx, "alice", "wrong"); err != ErrBadCredentials {
		t.Fatalf("bad key: %v", err)
	}
	newKey, err := r.ResetAccessKey(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Authenticate(ctx, "alice", key); err != ErrBadCredentials {
		t.Fatalf("old key still valid")
	}
	if _, err := r.Authenticate(ctx, "alice", newKey); err != nil {
		t.Fatalf("new key: %v", err)
	}
	_, _, err = r.CreateUser(ctx, UserInput{Username: "alice"})
	wantKind(t, err, lifecycle.KindValidation)
}
