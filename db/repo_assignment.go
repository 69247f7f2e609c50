package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Gin_postgres_redis_equipment_tool/lifecycle"
	"Gin_postgres_redis_equipment_tool/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssignInput struct {
	HolderType         lifecycle.HolderType `json:"holderType" binding:"required,holdertype"`
	EmployeeID         *string              `json:"employeeId" binding:"omitempty,uuid"`
	DepartmentID       *string              `json:"departmentId" binding:"omitempty,uuid"`
	CustodianPartnerID *string              `json:"custodianPartnerId" binding:"omitempty,uuid"`
	AssignedDate       *time.Time           `json:"assignedDate"`
	Notes              string               `json:"notes"`
}

func (in AssignInput) refs() lifecycle.HolderRefs {
	return lifecycle.HolderRefs{
		EmployeeID:   blankToNil(in.EmployeeID),
		DepartmentID: blankToNil(in.DepartmentID),
		CustodianID:  blankToNil(in.CustodianPartnerID),
	}
}

type UnassignInput struct {
	UnassignedDate *time.Time `json:"unassignedDate"`
	Notes          string     `json:"notes"`
}

func openAssignment(tx *gorm.DB, equipmentID string) (*models.Assignment, error) {
	var a models.Assignment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("equipment_id = ? AND unassigned_date IS NULL", equipmentID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load open assignment: %w", err)
	}
	return &a, nil
}

func appendNote(notes, line string) string {
	if line == "" {
		return notes
	}
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// holderPartner loads the referenced partner and checks it is the right kind.
func holderPartner(tx *gorm.DB, h lifecycle.HolderType, ref string) (*models.Partner, error) {
	p, err := first[models.Partner](tx, "partner", ref, false)
	if err != nil {
		return nil, err
	}
	switch {
	case h == lifecycle.HolderEmployee && p.IsCompany:
		return nil, lifecycle.Validationf("%s is a department, not an employee", p.Name)
	case h == lifecycle.HolderDepartment && !p.IsCompany:
		return nil, lifecycle.Validationf("%s is a person, not a department", p.Name)
	}
	return p, nil
}

// assignmentTarget keeps the current location unless it is Main Store; then
// the in-use location, then any other active location.
func assignmentTarget(tx *gorm.DB, eq *models.Equipment) (string, error) {
	msID, err := mainStoreID(tx)
	if err != nil {
		return "", err
	}
	if eq.LocationID != "" && eq.LocationID != msID {
		return eq.LocationID, nil
	}
	inUse, err := locationByRef(tx, models.RefInUse)
	if err != nil {
		return "", err
	}
	if inUse != nil && inUse.Active {
		return inUse.ID, nil
	}
	var loc models.Location
	q := tx.Where("active = ?", true)
	if msID != "" {
		q = q.Where("id <> ?", msID)
	}
	err = q.Order("name ASC").First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", lifecycle.Configf("create at least one non-store location before assigning items")
	}
	if err != nil {
		return "", fmt.Errorf("pick assignment location: %w", err)
	}
	return loc.ID, nil
}

// Assign gives the asset to a holder. An open record is closed first so the
// ledger never holds two open records for one asset.
func (r *Repo) Assign(ctx context.Context, actor Actor, equipmentID string, in AssignInput) (*models.Assignment, error) {
	var out *models.Assignment
	err := r.onAsset(ctx, "equipment", "assign", equipmentID, func(t *txn, eq *models.Equipment) error {
		if err := lifecycle.CanAssign(eq.Status); err != nil {
			return err
		}
		refs := in.refs()
		if err := lifecycle.ValidateHolder(in.HolderType, refs); err != nil {
			return err
		}
		ref, _ := refs.Ref(in.HolderType)
		holder, err := holderPartner(t.DB, in.HolderType, ref)
		if err != nil {
			return err
		}

		date := models.DateOf(t.now)
		if in.AssignedDate != nil {
			date = models.DateOf(*in.AssignedDate)
		}
		target, err := assignmentTarget(t.DB, eq)
		if err != nil {
			return err
		}

		open, err := openAssignment(t.DB, eq.ID)
		if err != nil {
			return err
		}
		if open != nil {
			if date.Before(open.AssignedDate) {
				return lifecycle.Validationf("assigned date cannot be before the current assignment's date %s", open.AssignedDate.Format(time.DateOnly))
			}
			open.UnassignedDate = &date
			open.UnassignedByID = &actor.UserID
			open.Notes = appendNote(open.Notes, "Auto-closed by reassignment.")
			if err := t.Save(open).Error; err != nil {
				return fmt.Errorf("close assignment: %w", err)
			}
		}

		eq.ClearHolder()
		eq.HolderType = in.HolderType
		eq.EmployeeID, eq.DepartmentID, eq.CustodianPartnerID = refs.EmployeeID, refs.DepartmentID, refs.CustodianID
		eq.AssignedDate = &date
		eq.LocationID = target
		eq.Status = lifecycle.DeriveStatus(eq.Status, eq.HolderType)
		if err := checkPlacement(t.DB, eq); err != nil {
			return err
		}
		if err := t.Save(eq).Error; err != nil {
			return fmt.Errorf("update equipment: %w", err)
		}

		a := &models.Assignment{
			ID:                 uuid.NewString(),
			EquipmentID:        eq.ID,
			HolderType:         in.HolderType,
			EmployeeID:         refs.EmployeeID,
			DepartmentID:       refs.DepartmentID,
			CustodianPartnerID: refs.CustodianID,
			AssignedDate:       date,
			AssignedByID:       actor.UserID,
			Notes:              strings.TrimSpace(in.Notes),
			LocationID:         target,
		}
		if err := t.Create(a).Error; err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}

		msg := fmt.Sprintf("Assigned to %s on %s.", holder.Name, date.Format(time.DateOnly))
		t.post(equipmentEvent(eq, actor, "Equipment Assigned", appendNote(msg, a.Notes)))
		out = a
		return nil
	})
	return out, err
}

// Unassign closes the open record, clears the holder and returns the asset to
// Main Store.
func (r *Repo) Unassign(ctx context.Context, actor Actor, equipmentID string, in UnassignInput) (*models.Equipment, error) {
	var out *models.Equipment
	err := r.onAsset(ctx, "equipment", "unassign", equipmentID, func(t *txn, eq *models.Equipment) error {
		if err := lifecycle.CanUnassign(eq.Status); err != nil {
			return err
		}
		ms, err := mainStore(t.DB)
		if err != nil {
			return err
		}
		open, err := openAssignment(t.DB, eq.ID)
		if err != nil {
			return err
		}
		if open == nil {
			return lifecycle.Businessf("no open assignment found for this equipment")
		}

		date := models.DateOf(t.now)
		if in.UnassignedDate != nil {
			date = models.DateOf(*in.UnassignedDate)
		}
		if date.Before(open.AssignedDate) {
			return lifecycle.Validationf("unassigned date cannot be before the assigned date %s", open.AssignedDate.Format(time.DateOnly))
		}
		open.UnassignedDate = &date
		open.UnassignedByID = &actor.UserID
		open.Notes = appendNote(open.Notes, strings.TrimSpace(in.Notes))
		if err := t.Save(open).Error; err != nil {
			return fmt.Errorf("close assignment: %w", err)
		}

		eq.ClearHolder()
		eq.LocationID = ms.ID
		eq.Status = lifecycle.DeriveStatus(eq.Status, eq.HolderType)
		if err := checkPlacement(t.DB, eq); err != nil {
			return err
		}
		if err := t.Save(eq).Error; err != nil {
			return fmt.Errorf("update equipment: %w", err)
		}

		msg := fmt.Sprintf("Equipment unassigned on %s and moved to Main Store.", date.Format(time.DateOnly))
		if n := strings.TrimSpace(in.Notes); n != "" {
			msg = appendNote(msg, "Notes: "+n)
		}
		t.post(equipmentEvent(eq, actor, "Equipment Unassigned", msg))
		out = eq
		return nil
	})
	return out, err
}

// ListAssignments returns the ledger of one asset, newest first.
func (r *Repo) ListAssignments(ctx context.Context, equipmentID string) ([]models.Assignment, error) {
	var as []models.Assignment
	err := r.DB.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("assigned_date DESC, created_at DESC").
		Find(&as).Error
	return as, err
}

// CountOpenAssignments is the number of open ledger records for an asset.
func (r *Repo) CountOpenAssignments(ctx context.Context, equipmentID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Assignment{}).
		Where("equipment_id = ? AND unassigned_date IS NULL", equipmentID).
		Count(&n).Error
	return n, err
}
