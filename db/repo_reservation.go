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
	"gorm.io/gorm"
)

type ReservationInput struct {
	RequesterID  string    `json:"requesterId" binding:"omitempty,uuid"`
	EquipmentIDs []string  `json:"equipmentIds" binding:"required,min=1,dive,uuid"`
	FromDate     time.Time `json:"fromDate" binding:"required"`
	ToDate       time.Time `json:"toDate" binding:"required"`
	Purpose      string    `json:"purpose" binding:"required"`
	Notes        string    `json:"notes"`
}

func reservationEvent(res *models.Reservation, actor Actor, subject, body string, to ...string) notify.Event {
	return notify.Event{
		SubjectType: notify.SubjectReservation,
		SubjectID:   res.ID,
		Subject:     subject,
		Body:        body,
		AuthorID:    actor.UserID,
		Recipients:  to,
	}
}

func (r *Repo) CreateReservation(ctx context.Context, actor Actor, in ReservationInput) (*models.Reservation, error) {
	var out *models.Reservation
	err := r.run(ctx, "reservation", "create", func(t *txn) error {
		from, to := in.FromDate.UTC(), in.ToDate.UTC()
		if !(lifecycle.Interval{From: from, To: to}).Valid() {
			return lifecycle.Validationf("end date must be after start date")
		}
		purpose := strings.TrimSpace(in.Purpose)
		if purpose == "" {
			return lifecycle.Validationf("purpose is required")
		}
		requester := in.RequesterID
		if requester == "" {
			requester = actor.UserID
		}
		if _, err := first[models.User](t.DB, "user", requester, false); err != nil {
			return err
		}

		seen := map[string]bool{}
		var eqs []models.Equipment
		for _, id := range in.EquipmentIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			eq, err := first[models.Equipment](t.DB, "equipment", id, false)
			if err != nil {
				return err
			}
			if !eq.Active {
				return lifecycle.Businessf("equipment %s is archived", eq.Name)
			}
			eqs = append(eqs, *eq)
		}
		if len(eqs) == 0 {
			return lifecycle.Validationf("select at least one piece of equipment")
		}

		name, err := nextName(t.DB, SeqReservation)
		if err != nil {
			return err
		}
		res := &models.Reservation{
			ID:          uuid.NewString(),
			Name:        name,
			RequesterID: requester,
			FromDate:    from,
			ToDate:      to,
			Purpose:     purpose,
			Status:      lifecycle.ReservationDraft,
			Notes:       in.Notes,
			Equipment:   eqs,
		}
		if err := t.Omit("Equipment.*").Create(res).Error; err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		out = res
		return nil
	})
	return out, err
}

func loadReservation(tx *gorm.DB, id string, locking bool) (*models.Reservation, error) {
	res, err := first[models.Reservation](tx.Preload("Equipment", func(db *gorm.DB) *gorm.DB {
		return db.Order("name ASC")
	}), "reservation", id, locking)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// setReservationStatus moves the reservation under its row lock after check
// passes against the current status.
func (r *Repo) setReservationStatus(ctx context.Context, actor Actor, action, id string, check func(lifecycle.ReservationStatus) error, apply func(res *models.Reservation) notify.Event) (*models.Reservation, error) {
	var out *models.Reservation
	err := r.run(ctx, "reservation", action, func(t *txn) error {
		res, err := first[models.Reservation](t.DB, "reservation", id, true)
		if err != nil {
			return err
		}
		if err := actor.owns(res.RequesterID); err != nil {
			return err
		}
		if err := check(res.Status); err != nil {
			return err
		}
		ev := apply(res)
		if err := t.Omit("Equipment").Save(res).Error; err != nil {
			return fmt.Errorf("%s reservation: %w", action, err)
		}
		t.post(ev)
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) SubmitReservation(ctx context.Context, actor Actor, id string) (*models.Reservation, error) {
	return r.setReservationStatus(ctx, actor, "submit", id, lifecycle.CanSubmitReservation, func(res *models.Reservation) notify.Event {
		res.Status = lifecycle.ReservationPending
		return reservationEvent(res, actor, "Reservation Submitted", "Reservation "+res.Name+" submitted for approval.")
	})
}

func (r *Repo) RejectReservation(ctx context.Context, actor Actor, id string) (*models.Reservation, error) {
	if err := actor.manager("reject reservations"); err != nil {
		return nil, err
	}
	return r.setReservationStatus(ctx, actor, "reject", id, lifecycle.CanRejectReservation, func(res *models.Reservation) notify.Event {
		res.Status = lifecycle.ReservationRejected
		return reservationEvent(res, actor, "Reservation Rejected", "Your reservation "+res.Name+" has been rejected.", res.RequesterID)
	})
}

// eachAsset runs step for every asset of the reservation, one committed
// transaction per asset. It stops at the first failure and reports which
// assets were already processed.
func (r *Repo) eachAsset(ctx context.Context, res *models.Reservation, action string, step func(t *txn, eq *models.Equipment) error) error {
	var done []string
	for _, e := range res.Equipment {
		err := r.onAsset(ctx, "reservation", action, e.ID, func(t *txn, eq *models.Equipment) error {
			return step(t, eq)
		})
		if err != nil {
			if len(done) == 0 {
				return fmt.Errorf("reservation %s, equipment %s: %w", res.Name, e.Name, err)
			}
			return fmt.Errorf("reservation %s stopped at %s after processing %s: %w",
				res.Name, e.Name, strings.Join(done, ", "), err)
		}
		done = append(done, e.Name)
	}
	return nil
}

// ApproveReservation reserves every asset, then approves the reservation.
// A failed run leaves it pending and can be repeated: assets already
// reserved pass the guard again.
func (r *Repo) ApproveReservation(ctx context.Context, actor Actor, id string) (*models.Reservation, error) {
	if err := actor.manager("approve reservations"); err != nil {
		return nil, err
	}
	res, err := loadReservation(r.DB.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanApproveReservation(res.Status); err != nil {
		return nil, err
	}
	err = r.eachAsset(ctx, res, "reserve", func(t *txn, eq *models.Equipment) error {
		if err := lifecycle.CanReserve(eq.Status, eq.HolderType); err != nil {
			return err
		}
		if eq.Status == lifecycle.StatusReserved {
			return nil
		}
		eq.Status = lifecycle.StatusReserved
		if err := t.Save(eq).Error; err != nil {
			return fmt.Errorf("update equipment: %w", err)
		}
		t.post(equipmentEvent(eq, actor, "Equipment Reserved", "Reserved by "+res.Name+"."))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.setReservationStatus(ctx, actor, "approve", id, lifecycle.CanApproveReservation, func(res *models.Reservation) notify.Event {
		res.Status = lifecycle.ReservationApproved
		res.ApproverID = &actor.UserID
		return reservationEvent(res, actor, "Reservation Approved", "Your reservation "+res.Name+" has been approved.", res.RequesterID)
	})
}

// ConfirmReservation materializes one approved loan per asset for the
// reservation window, then confirms it. Assets that already have their loan
// are skipped, so a failed run can be repeated.
func (r *Repo) ConfirmReservation(ctx context.Context, actor Actor, id string) (*models.Reservation, error) {
	res, err := loadReservation(r.DB.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	if err := actor.owns(res.RequesterID); err != nil {
		return nil, err
	}
	if err := lifecycle.CanConfirmReservation(res.Status); err != nil {
		return nil, err
	}
	want := lifecycle.Interval{From: res.FromDate, To: res.ToDate}
	err = r.eachAsset(ctx, res, "confirm", func(t *txn, eq *models.Equipment) error {
		var n int64
		if err := t.Model(&models.Loan{}).
			Where("reservation_id = ? AND equipment_id = ?", res.ID, eq.ID).
			Count(&n).Error; err != nil {
			return fmt.Errorf("count reservation loans: %w", err)
		}
		if n > 0 {
			return nil
		}
		if err := checkConflict(t.DB, eq, "", want); err != nil {
			return err
		}
		name, err := nextName(t.DB, SeqLoan)
		if err != nil {
			return err
		}
		now := t.now
		loc := eq.LocationID
		l := &models.Loan{
			ID:               uuid.NewString(),
			Name:             name,
			EquipmentID:      eq.ID,
			BorrowerID:       res.RequesterID,
			BorrowDate:       res.FromDate,
			DueDate:          res.ToDate,
			FromLocationID:   eq.LocationID,
			ReturnLocationID: &loc,
			Purpose:          res.Purpose,
			ConditionOut:     eq.Condition,
			Status:           lifecycle.LoanApproved,
			ApproverID:       res.ApproverID,
			ApprovalDate:     &now,
			ReservationID:    &res.ID,
			CompanyID:        eq.CompanyID,
		}
		if err := t.Create(l).Error; err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}
		t.post(loanEvent(l, actor, "Loan Created", fmt.Sprintf("Loan %s created from reservation %s.", l.Name, res.Name)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.setReservationStatus(ctx, actor, "confirm", id, lifecycle.CanConfirmReservation, func(res *models.Reservation) notify.Event {
		res.Status = lifecycle.ReservationConfirmed
		return reservationEvent(res, actor, "Reservation Confirmed", "Reservation "+res.Name+" confirmed, loans created.", res.RequesterID)
	})
}

// CancelReservation releases assets an approved reservation still holds,
// then cancels it.
func (r *Repo) CancelReservation(ctx context.Context, actor Actor, id string) (*models.Reservation, error) {
	res, err := loadReservation(r.DB.WithContext(ctx), id, false)
	if err != nil {
		return nil, err
	}
	if err := actor.owns(res.RequesterID); err != nil {
		return nil, err
	}
	if err := lifecycle.CanCancelReservation(res.Status); err != nil {
		return nil, err
	}
	if res.Status == lifecycle.ReservationApproved {
		err = r.eachAsset(ctx, res, "release", func(t *txn, eq *models.Equipment) error {
			if eq.Status != lifecycle.StatusReserved {
				return nil
			}
			eq.Status = lifecycle.IdleStatus(eq.HolderType)
			if err := t.Save(eq).Error; err != nil {
				return fmt.Errorf("update equipment: %w", err)
			}
			t.post(equipmentEvent(eq, actor, "Reservation Released", "Released from "+res.Name+"."))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return r.setReservationStatus(ctx, actor, "cancel", id, lifecycle.CanCancelReservation, func(res *models.Reservation) notify.Event {
		res.Status = lifecycle.ReservationCancelled
		return reservationEvent(res, actor, "Reservation Cancelled", "Reservation "+res.Name+" cancelled.")
	})
}

func (r *Repo) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return loadReservation(r.DB.WithContext(ctx), id, false)
}

type ReservationQuery struct {
	RequesterID string
	Status      string
}

func (r *Repo) ListReservations(ctx context.Context, q ReservationQuery) ([]models.Reservation, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Reservation{})
	if q.RequesterID != "" {
		tx = tx.Where("requester_id = ?", q.RequesterID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	var rs []models.Reservation
	err := tx.Preload("Equipment").Order("from_date DESC").Find(&rs).Error
	return rs, err
}
