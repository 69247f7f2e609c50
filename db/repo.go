package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Gin_postgres_redis_equipment_tool/config"
	"Gin_postgres_redis_equipment_tool/lifecycle"
	"Gin_postgres_redis_equipment_tool/locks"
	"Gin_postgres_redis_equipment_tool/metrics"
	"Gin_postgres_redis_equipment_tool/models"
	"Gin_postgres_redis_equipment_tool/notify"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repo runs every workflow operation. Operations that change an asset hold
// the asset's lock and its row lock for the whole transaction; events are
// dispatched after commit.
type Repo struct {
	DB     *gorm.DB
	Locks  locks.Locker
	Events notify.Sink
	Log    *logrus.Logger
	Now    func() time.Time
	// CompanyID scopes serial number uniqueness.
	CompanyID string
}

func NewRepo(db *gorm.DB, lk locks.Locker, events notify.Sink) *Repo {
	if lk == nil {
		lk = locks.NewLocal()
	}
	return &Repo{
		DB:     db,
		Locks:  lk,
		Events: events,
		Log:    config.GetLogger(),
		Now:    time.Now,
	}
}

func (r *Repo) now() time.Time { return r.Now().UTC() }

// Actor is the user performing an operation.
type Actor struct {
	UserID    string
	IsManager bool
}

// owns rejects non-managers acting on someone else's loan or reservation.
func (a Actor) owns(userID string) error {
	if a.IsManager || a.UserID == userID {
		return nil
	}
	return lifecycle.Forbiddenf("you can only act on your own requests")
}

func (a Actor) manager(action string) error {
	if a.IsManager {
		return nil
	}
	return lifecycle.Forbiddenf("only managers can %s", action)
}

// txn is the state of one workflow transaction.
type txn struct {
	*gorm.DB
	r      *Repo
	now    time.Time
	events []notify.Event
}

func (t *txn) post(ev notify.Event) { t.events = append(t.events, ev) }

// exec runs fn in one transaction and returns the events it posted.
func (r *Repo) exec(ctx context.Context, entity, action string, fn func(t *txn) error) ([]notify.Event, error) {
	t := &txn{r: r, now: r.now()}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t.DB = tx
		return fn(t)
	})
	metrics.Observe(entity, action, err)
	if err != nil {
		if lifecycle.KindOf(err) == 0 {
			config.LogError(r.Log, "db", entity+"."+action, "transaction", nil, err)
		}
		return nil, err
	}
	return t.events, nil
}

func (r *Repo) dispatch(ctx context.Context, events []notify.Event) {
	notify.Dispatch(context.WithoutCancel(ctx), r.Events, r.Log, events)
}

// run executes fn in one transaction and dispatches its events on commit.
func (r *Repo) run(ctx context.Context, entity, action string, fn func(t *txn) error) error {
	events, err := r.exec(ctx, entity, action, fn)
	if err != nil {
		return err
	}
	r.dispatch(ctx, events)
	return nil
}

// onAsset runs fn under the asset lock with the asset row selected FOR UPDATE.
// The lock is released before events are dispatched.
func (r *Repo) onAsset(ctx context.Context, entity, action, equipmentID string, fn func(t *txn, eq *models.Equipment) error) error {
	release, err := r.Locks.Acquire(ctx, locks.AssetKey(equipmentID))
	if err != nil {
		metrics.Observe(entity, action, err)
		return err
	}
	events, err := r.exec(ctx, entity, action, func(t *txn) error {
		eq, err := lockEquipment(t.DB, equipmentID)
		if err != nil {
			return err
		}
		return fn(t, eq)
	})
	release()
	if err != nil {
		return err
	}
	r.dispatch(ctx, events)
	return nil
}

func lockEquipment(tx *gorm.DB, id string) (*models.Equipment, error) {
	var eq models.Equipment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&eq, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, lifecycle.NotFoundf("equipment %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock equipment: %w", err)
	}
	return &eq, nil
}

// first loads one record by id and maps a miss to a not-found error.
func first[T any](tx *gorm.DB, what, id string, locking bool) (*T, error) {
	var v T
	q := tx
	if locking {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, lifecycle.NotFoundf("%s %s not found", what, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", what, err)
	}
	return &v, nil
}

// Sequences

const (
	SeqEquipment   = "eqm.equipment"
	SeqLoan        = "eqm.loan"
	SeqMaintenance = "eqm.maintenance"
	SeqReservation = "eqm.reservation"
)

var seqPrefix = map[string]string{
	SeqEquipment:   "EQ",
	SeqLoan:        "LN",
	SeqMaintenance: "MT",
	SeqReservation: "RS",
}

// nextName draws the next reference number for code, e.g. LN00001.
func nextName(tx *gorm.DB, code string) (string, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Sequence{Code: code, NextValue: 1}).Error; err != nil {
		return "", fmt.Errorf("init sequence %s: %w", code, err)
	}
	if err := tx.Model(&models.Sequence{}).Where("code = ?", code).
		Update("next_value", gorm.Expr("next_value + 1")).Error; err != nil {
		return "", fmt.Errorf("bump sequence %s: %w", code, err)
	}
	var seq models.Sequence
	if err := tx.First(&seq, "code = ?", code).Error; err != nil {
		return "", fmt.Errorf("read sequence %s: %w", code, err)
	}
	return fmt.Sprintf("%s%05d", seqPrefix[code], seq.NextValue-1), nil
}

// Reference locations

func locationByRef(tx *gorm.DB, ref string) (*models.Location, error) {
	var loc models.Location
	err := tx.Where("ref = ?", ref).First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s location: %w", ref, err)
	}
	return &loc, nil
}

func mainStore(tx *gorm.DB) (*models.Location, error) {
	ms, err := locationByRef(tx, models.RefMainStore)
	if err != nil {
		return nil, err
	}
	if ms == nil {
		return nil, lifecycle.Configf("Main Store location is missing, please create it")
	}
	return ms, nil
}

func mainStoreID(tx *gorm.DB) (string, error) {
	ms, err := locationByRef(tx, models.RefMainStore)
	if err != nil || ms == nil {
		return "", err
	}
	return ms.ID, nil
}

// checkPlacement runs the Main Store / holder cross-check on eq.
func checkPlacement(tx *gorm.DB, eq *models.Equipment) error {
	msID, err := mainStoreID(tx)
	if err != nil {
		return err
	}
	return lifecycle.CheckPlacement(eq.Placement(msID))
}

func equipmentEvent(eq *models.Equipment, actor Actor, subject, body string, to ...string) notify.Event {
	return notify.Event{
		SubjectType: notify.SubjectEquipment,
		SubjectID:   eq.ID,
		Subject:     subject,
		Body:        body,
		AuthorID:    actor.UserID,
		Recipients:  to,
	}
}

// Paging

func page(p, s, max int) (int, int) {
	if p <= 0 {
		p = 1
	}
	if s <= 0 || s > max {
		s = 20
	}
	return p, s
}
