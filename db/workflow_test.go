package db

import (
	"strings"
	"testing"

	"Gin_postgres_redis_equipment_tool/lifecycle"
	"Gin_postgres_redis_equipment_tool/models"

	"github.com/shopspring/decimal"
)

func TestSweepMarksOverdueAndRemindsOnce(t *testing.T) {
	f := newFixture(t)
	late := f.equipment(t, "Scope A")
	soon := f.equipment(t, "Scope B")

	f.at(t, "2024-03-25T09:00")
	l := f.loan(t, late, "2024-03-25T09:00", "2024-04-01T00:00")
	m := f.loan(t, soon, "2024-03-25T09:00", "2024-04-10T00:00")
	for _, id := range []string{l.ID, m.ID} {
		if _, err := f.r.IssueLoan(f.ctx, f.mgr, id); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}

	f.at(t, "2024-04-02T00:00")
	res, err := f.r.SweepLoans(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Overdue) != 1 || res.Overdue[0] != l.Name || len(res.Reminded) != 0 {
		t.Fatalf("sweep = %+v", res)
	}
	got, _ := f.r.GetLoan(f.ctx, l.ID)
	if got.Status != lifecycle.LoanOverdue || !got.IsOverdue {
		t.Fatalf("L status = %s", got.Status)
	}
	if eq := f.reload(t, late.ID); eq.Status != lifecycle.StatusBorrowed {
		t.Fatalf("sweep touched the asset: %s", eq.Status)
	}
	if got, _ := f.r.GetLoan(f.ctx, m.ID); got.Status != lifecycle.LoanIssued {
		t.Fatalf("M status = %s", got.Status)
	}

	f.at(t, "2024-04-09T12:00")
	res, err = f.r.SweepLoans(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Reminded) != 1 || res.Reminded[0] != m.Name {
		t.Fatalf("first reminder sweep = %+v", res)
	}
	res, err = f.r.SweepLoans(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Reminded) != 0 || len(res.Overdue) != 0 {
		t.Fatalf("second sweep repeated work: %+v", res)
	}
	if n := f.rec.Count("Equipment Return Reminder"); n != 1 {
		t.Fatalf("reminders sent = %d, want 1", n)
	}

	if _, err := f.r.ReturnLoan(f.ctx, f.mgr, l.ID, ReturnInput{}); err != nil {
		t.Fatalf("return overdue loan: %v", err)
	}
}

func TestMaintenanceLifecycle(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Centrifuge")
	f.at(t, "2024-06-01T08:00")

	m, err := f.r.CreateMaintenance(f.ctx, f.mgr, MaintenanceInput{EquipmentID: eq.ID, Description: "calibration"})
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "MT00001" || m.Type != lifecycle.MaintenancePreventive || m.Status != lifecycle.MaintenanceScheduled {
		t.Fatalf("created maintenance: %+v", m)
	}
	if got := f.reload(t, eq.ID); got.Status != lifecycle.StatusAvailable {
		t.Fatalf("scheduling changed asset status to %s", got.Status)
	}

	if _, err := f.r.StartMaintenance(f.ctx, f.mgr, m.ID); err != nil {
		t.Fatal(err)
	}
	if got := f.reload(t, eq.ID); got.Status != lifecycle.StatusMaintenance {
		t.Fatalf("status = %s, want maintenance", got.Status)
	}

	_, err = f.r.CompleteMaintenance(f.ctx, f.mgr, m.ID, CompleteMaintenanceInput{Cost: decimal.NewFromInt(-1)})
	wantKind(t, err, lifecycle.KindValidation)

	done, err := f.r.CompleteMaintenance(f.ctx, f.mgr, m.ID, CompleteMaintenanceInput{WorkDone: "recalibrated", Cost: decimal.NewFromInt(80)})
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != lifecycle.MaintenanceCompleted || done.CompletedDate == nil {
		t.Fatalf("completed record: %+v", done)
	}
	if got := f.reload(t, eq.ID); got.Status != lifecycle.StatusAvailable {
		t.Fatalf("status = %s, want available", got.Status)
	}

	_, err = f.r.CancelMaintenance(f.ctx, f.mgr, m.ID)
	wantKind(t, err, lifecycle.KindBusiness)
}

func TestMaintenanceRevertKeepsLaterStatus(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Microscope")
	f.assignEmployee(t, eq)

	m, err := f.r.CreateMaintenance(f.ctx, f.mgr, MaintenanceInput{EquipmentID: eq.ID, Description: "lens", Type: lifecycle.MaintenanceCorrective})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.r.StartMaintenance(f.ctx, f.mgr, m.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.r.CancelMaintenance(f.ctx, f.mgr, m.ID); err != nil {
		t.Fatal(err)
	}
	if got := f.reload(t, eq.ID); got.Status != lifecycle.StatusAssigned {
		t.Fatalf("held asset reverted to %s, want assigned", got.Status)
	}

	m2, err := f.r.CreateMaintenance(f.ctx, f.mgr, MaintenanceInput{EquipmentID: eq.ID, Description: "stage"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.r.StartMaintenance(f.ctx, f.mgr, m2.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.r.RetireEquipment(f.ctx, f.mgr, eq.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.r.CompleteMaintenance(f.ctx, f.mgr, m2.ID, CompleteMaintenanceInput{}); err != nil {
		t.Fatal(err)
	}
	if got := f.reload(t, eq.ID); got.Status != lifecycle.StatusRetired {
		t.Fatalf("status = %s, want retired kept", got.Status)
	}
}

func TestMaintenanceRejectsBorrowedAsset(t *testing.T) {
	f := newFixture(t)
	eq := f.equipment(t, "Pump")
	f.at(t, "2024-03-01T09:00")
	if _, err := f.r.QuickBorrow(f.ctx, f.borrower, LoanInput{EquipmentID: eq.ID, Purpose: "p"}); err != nil {
		t.Fatal(err)
	}
	m, err := f.r.CreateMaintenance(f.ctx, f.mgr, MaintenanceInput{EquipmentID: eq.ID, Description: "seal"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.r.StartMaintenance(f.ctx, f.mgr, m.ID)
	wantKind(t, err, lifecycle.KindBusiness)
}

func TestReservationApproveConfirmIssue(t *testing.T) {
	f := newFixture(t)
	a := f.equipment(t, "Scope A")
	b := f.equipment(t, "Scope B")
	f.at(t, "2024-07-01T09:00")

	res, err := f.r.CreateReservation(f.ctx, f.borrower, ReservationInput{
		EquipmentIDs: []string{a.ID, b.ID, a.ID},
		FromDate:     ts(t, "2024-07-10T09:00"),
		ToDate:       ts(t, "2024-07-12T17:00"),
		Purpose:      "workshop",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "RS00001" || len(res.Equipment) != 2 {
		t.Fatalf("reservation: %s with %d assets", res.Name, len(res.Equipment))
	}

	if _, err := f.r.SubmitReservation(f.ctx, f.borrower, res.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.r.ApproveReservation(f.ctx, f.mgr, res.ID); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{a.ID, b.ID} {
		if got := f.reload(t, id); got.Status != lifecycle.StatusReserved {
			t.Fatalf("%s status = %s, want reserved", got.Name, got.Status)
		}
	}

	confirmed, err := f.r.ConfirmReservation(f.ctx, f.mgr, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if confirmed.Status != lifecycle.ReservationConfirmed {
		t.Fatalf("status = %s", confirmed.Status)
	}
	var loans []models.Loan
	if err := f.r.DB.Where("reservation_id = ?", res.ID).Order("name").Find(&loans).Error; err != nil {
		t.Fatal(err)
	}
	if len(loans) != 2 {
		t.Fatalf("loans created = %d, want 2", len(loans))
	}
	for _, l := range loans {
		if l.Status != lifecycle.LoanApproved || l.BorrowerID != f.borrower.UserID || !l.DueDate.Equal(res.ToDate) {
			t.Fatalf("reservation loan: %+v", l)
		}
	}

	f.at(t, "2024-07-10T09:00")
	if _, err := f.r.IssueLoan(f.ctx, f.mgr, loans[0].ID); err != nil {
		t.Fatalf("issue reserved asset: %v", err)
	}
	if got := f.reload(t, loans[0].EquipmentID); got.Status != lifecycle.StatusBorrowed {
		t.Fatalf("status = %s, want borrowed", got.Status)
	}
}

func TestReservationApproveStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	a := f.equipment(t, "Scope A")
	b := f.equipment(t, "Scope B")
	if _, err := f.r.MarkEquipmentLost(f.ctx, f.mgr, b.ID); err != nil {
		t.Fatal(err)
	}
	res, err := f.r.CreateReservation(f.ctx, f.borrower, ReservationInput{
		EquipmentIDs: []string{a.ID, b.ID},
		FromDate:     ts(t, "2024-07-10"),
		ToDate:       ts(t, "2024-07-11"),
		Purpose:      "demo",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.r.SubmitReservation(f.ctx, f.borrower, res.ID); err != nil {
		t.Fatal(err)
	}

	_, err = f.r.ApproveReservation(f.ctx, f.mgr, res.ID)
	wantKind(t, err, lifecycle.KindBusiness)
	if !strings.Contains(err.Error(), "Scope A") {
		t.Fatalf("error does not report processed assets: %v", err)
	}
	if got := f.reload(t, a.ID); got.Status != lifecycle.StatusReserved {
		t.Fatalf("first asset = %s, want reserved", got.Status)
	}
	got, _ := f.r.GetReservation(f.ctx, res.ID)
	if got.Status != lifecycle.ReservationPending {
		t.Fatalf("reservation = %s, want pending", got.Status)
	}

	if _, err := f.r.MarkEquipmentFound(f.ctx, f.mgr, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.r.ApproveReservation(f.ctx, f.mgr, res.ID); err != nil {
		t.Fatalf("retry approve: %v", err)
	}

	if _, err := f.r.CancelReservation(f.ctx, f.mgr, res.ID); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{a.ID, b.ID} {
		if got := f.reload(t, id); got.Status != lifecycle.StatusAvailable {
			t.Fatalf("%s status = %s after cancel", got.Name, got.Status)
		}
	}
}

func TestReservationValidation(t *testing.T) {
	f := newFixture(t)
	a := f.equipment(t, "Scope A")
	_, err := f.r.CreateReservation(f.ctx, f.borrower, ReservationInput{
		EquipmentIDs: []string{a.ID},
		FromDate:     ts(t, "2024-07-10"),
		ToDate:       ts(t, "2024-07-09"),
		Purpose:      "x",
	})
	wantKind(t, err, lifecycle.KindValidation)

	res, err := f.r.CreateReservation(f.ctx, f.borrower, ReservationInput{
		EquipmentIDs: []string{a.ID},
		FromDate:     ts(t, "2024-07-10"),
		ToDate:       ts(t, "2024-07-11"),
		Purpose:      "x",
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.r.ApproveReservation(f.ctx, f.mgr, res.ID)
	wantKind(t, err, lifecycle.KindBusiness)
}

func TestCancelReturnMaintenanceReleasesAsset(t *testing.T) {
	f := newFixture(t)
	f.at(t, "2024-06-01T08:00")
	eq := f.equipment(t, "Spectrometer")
	l, err := f.r.QuickBorrow(f.ctx, f.borrower, LoanInput{EquipmentID: eq.ID, Purpose: "p"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.r.ReturnLoan(f.ctx, f.mgr, l.ID, ReturnInput{HasDamage: true, DamageNotes: "fan noise", CreateMaintenance: true}); err != nil {
		t.Fatal(err)
	}
	ms, err := f.r.ListMaintenance(f.ctx, MaintenanceQuery{EquipmentID: eq.ID})
	if err != nil || len(ms) != 1 || !ms[0].HoldsAsset {
		t.Fatalf("return maintenance = %+v, %v", ms, err)
	}
	corrective := ms[0]

	other, err := f.r.CreateMaintenance(f.ctx, f.mgr, MaintenanceInput{EquipmentID: eq.ID, Description: "yearly check"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.r.CancelMaintenance(f.ctx, f.mgr, other.ID); err != nil {
		t.Fatal(err)
	}
	if got := f.reload(t, eq.ID); got.Status != lifecycle.StatusMaintenance {
		t.Fatalf("unrelated cancel released asset: status %s", got.Status)
	}

	if _, err := f.r.CancelMaintenance(f.ctx, f.mgr, corrective.ID); err != nil {
		t.Fatal(err)
	}
	if got := f.reload(t, eq.ID); got.Status != lifecycle.StatusAvailable {
		t.Fatalf("status = %s, want available", got.Status)
	}
}
