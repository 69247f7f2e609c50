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

type MaintenanceInput struct {
	EquipmentID   string                    `json:"equipmentId" binding:"required,uuid"`
	Type          lifecycle.MaintenanceType `json:"type" binding:"omitempty,maintenancetype"`
	Description   string                    `json:"description" binding:"required"`
	ScheduledDate *time.Time                `json:"scheduledDate"`
	TechnicianID  *string                   `json:"technicianId" binding:"omitempty,uuid"`
}

type CompleteMaintenanceInput struct {
	WorkDone            string          `json:"workDone"`
	PartsUsed           string          `json:"partsUsed"`
	Cost                decimal.Decimal `json:"cost"`
	DurationHours       float64         `json:"durationHours" binding:"gte=0"`
	NextMaintenanceDate *time.Time      `json:"nextMaintenanceDate"`
}

func maintenanceEvent(m *models.Maintenance, actor Actor, subject, body string) notify.Event {
	return notify.Event{
		SubjectType: notify.SubjectMaintenance,
		SubjectID:   m.ID,
		Subject:     subject,
		Body:        body,
		AuthorID:    actor.UserID,
	}
}

func createMaintenance(t *txn, actor Actor, eq *models.Equipment, typ lifecycle.MaintenanceType, desc string, scheduled time.Time, technician *string, holds bool) (*models.Maintenance, error) {
	if typ == "" {
		typ = lifecycle.MaintenancePreventive
	}
	if !typ.Valid() {
		return nil, lifecycle.Validationf("unknown maintenance type %q", typ)
	}
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return nil, lifecycle.Validationf("maintenance description is required")
	}
	name, err := nextName(t.DB, SeqMaintenance)
	if err != nil {
		return nil, err
	}
	m := &models.Maintenance{
		ID:            uuid.NewString(),
		Name:          name,
		EquipmentID:   eq.ID,
		Type:          typ,
		Description:   desc,
		ScheduledDate: scheduled,
		TechnicianID:  technician,
		Status:        lifecycle.MaintenanceScheduled,
		HoldsAsset:    holds,
	}
	if err := t.Create(m).Error; err != nil {
		return nil, fmt.Errorf("insert maintenance: %w", err)
	}
	t.post(maintenanceEvent(m, actor, "Maintenance Scheduled",
		fmt.Sprintf("%s maintenance scheduled for %s on %s.", typ, eq.Name, scheduled.Format(time.DateOnly))))
	return m, nil
}

func (r *Repo) CreateMaintenance(ctx context.Context, actor Actor, in MaintenanceInput) (*models.Maintenance, error) {
	var out *models.Maintenance
	err := r.onAsset(ctx, "maintenance", "create", in.EquipmentID, func(t *txn, eq *models.Equipment) error {
		scheduled := models.DateOf(t.now)
		if in.ScheduledDate != nil {
			scheduled = models.DateOf(*in.ScheduledDate)
		}
		m, err := createMaintenance(t, actor, eq, in.Type, in.Description, scheduled, blankToNil(in.TechnicianID), false)
		out = m
		return err
	})
	return out, err
}

// onMaintenance locks the record's asset, then the record.
func (r *Repo) onMaintenance(ctx context.Context, action, id string, fn func(t *txn, eq *models.Equipment, m *models.Maintenance) error) (*models.Maintenance, error) {
	pre, err := first[models.Maintenance](r.DB.WithContext(ctx), "maintenance", id, false)
	if err != nil {
		return nil, err
	}
	var out *models.Maintenance
	err = r.onAsset(ctx, "maintenance", action, pre.EquipmentID, func(t *txn, eq *models.Equipment) error {
		m, err := first[models.Maintenance](t.DB, "maintenance", id, true)
		if err != nil {
			return err
		}
		if err := fn(t, eq, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

func (r *Repo) StartMaintenance(ctx context.Context, actor Actor, id string) (*models.Maintenance, error) {
	return r.onMaintenance(ctx, "start", id, func(t *txn, eq *models.Equipment, m *models.Maintenance) error {
		if err := lifecycle.CanStartMaintenanceRecord(m.Status); err != nil {
			return err
		}
		if err := lifecycle.CanStartMaintenance(eq.Status); err != nil {
			return err
		}
		m.Status = lifecycle.MaintenanceInProgress
		m.HoldsAsset = true
		m.TechnicianID = &actor.UserID
		if err := t.Save(m).Error; err != nil {
			return fmt.Errorf("start maintenance: %w", err)
		}
		eq.Status = lifecycle.StatusMaintenance
		if err := t.Save(eq).Error; err != nil {
			return fmt.Errorf("update equipment: %w", err)
		}
		t.post(maintenanceEvent(m, actor, "Maintenance Started", "Work started on "+eq.Name+"."))
		return nil
	})
}

// releaseAfterMaintenance reverts the asset once no record keeps it in
// maintenance. Another status set meanwhile is kept.
func releaseAfterMaintenance(tx *gorm.DB, eq *models.Equipment, closedID string) error {
	var busy int64
	if err := tx.Model(&models.Maintenance{}).
		Where("equipment_id = ? AND id <> ? AND holds_asset = ? AND status IN ?", eq.ID, closedID, true,
			[]lifecycle.MaintenanceStatus{lifecycle.MaintenanceScheduled, lifecycle.MaintenanceInProgress}).
		Count(&busy).Error; err != nil {
		return fmt.Errorf("count maintenance: %w", err)
	}
	if busy > 0 {
		return nil
	}
	next, changed := lifecycle.AfterMaintenance(eq.Status, eq.HolderType)
	if !changed {
		return nil
	}
	eq.Status = next
	if err := tx.Save(eq).Error; err != nil {
		return fmt.Errorf("update equipment: %w", err)
	}
	return nil
}

func (r *Repo) CompleteMaintenance(ctx context.Context, actor Actor, id string, in CompleteMaintenanceInput) (*models.Maintenance, error) {
	return r.onMaintenance(ctx, "complete", id, func(t *txn, eq *models.Equipment, m *models.Maintenance) error {
		if err := lifecycle.CanCompleteMaintenanceRecord(m.Status); err != nil {
			return err
		}
		if in.Cost.IsNegative() {
			return lifecycle.Validationf("maintenance cost cannot be negative")
		}
		done := models.DateOf(t.now)
		m.Status = lifecycle.MaintenanceCompleted
		m.HoldsAsset = false
		m.CompletedDate = &done
		m.WorkDone = in.WorkDone
		m.PartsUsed = in.PartsUsed
		m.Cost = in.Cost
		m.DurationHours = in.DurationHours
		m.NextMaintenanceDate = in.NextMaintenanceDate
		if err := t.Save(m).Error; err != nil {
			return fmt.Errorf("complete maintenance: %w", err)
		}
		if err := releaseAfterMaintenance(t.DB, eq, m.ID); err != nil {
			return err
		}
		t.post(maintenanceEvent(m, actor, "Maintenance Completed", "Work completed on "+eq.Name+"."))
		return nil
	})
}

func (r *Repo) CancelMaintenance(ctx context.Context, actor Actor, id string) (*models.Maintenance, error) {
	return r.onMaintenance(ctx, "cancel", id, func(t *txn, eq *models.Equipment, m *models.Maintenance) error {
		if err := lifecycle.CanCancelMaintenanceRecord(m.Status); err != nil {
			return err
		}
		held := m.HoldsAsset
		m.Status = lifecycle.MaintenanceCancelled
		m.HoldsAsset = false
		if err := t.Save(m).Error; err != nil {
			return fmt.Errorf("cancel maintenance: %w", err)
		}
		if held {
			if err := releaseAfterMaintenance(t.DB, eq, m.ID); err != nil {
				return err
			}
		}
		t.post(maintenanceEvent(m, actor, "Maintenance Cancelled", "Maintenance cancelled."))
		return nil
	})
}

type MaintenanceQuery struct {
	EquipmentID string
	Status      string
}

func (r *Repo) ListMaintenance(ctx context.Context, q MaintenanceQuery) ([]models.Maintenance, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Maintenance{})
	if q.EquipmentID != "" {
		tx = tx.Where("equipment_id = ?", q.EquipmentID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	var ms []models.Maintenance
	err := tx.Order("scheduled_date DESC, name DESC").Find(&ms).Error
	return ms, err
}
