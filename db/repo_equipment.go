package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Gin_postgres_redis_equipment_tool/lifecycle"
	"Gin_postgres_redis_equipment_tool/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EquipmentInput struct {
	Name              string              `json:"name" binding:"required,max=200"`
	Barcode           string              `json:"barcode" binding:"omitempty,min=3,max=120"`
	SerialNumber      *string             `json:"serialNumber" binding:"omitempty,max=120"`
	AssetTag          string              `json:"assetTag" binding:"max=120"`
	ModelNumber       string              `json:"modelNumber" binding:"max=120"`
	Manufacturer      string              `json:"manufacturer" binding:"max=200"`
	CategoryID        string              `json:"categoryId" binding:"required,uuid"`
	LocationID        string              `json:"locationId" binding:"omitempty,uuid"`
	Condition         lifecycle.Condition `json:"condition" binding:"omitempty,condition"`
	ConditionNotes    string              `json:"conditionNotes"`
	PurchaseDate      *time.Time          `json:"purchaseDate"`
	PurchaseValue     decimal.NullDecimal `json:"purchaseValue"`
	WarrantyStartDate *time.Time          `json:"warrantyStartDate"`
	WarrantyEndDate   *time.Time          `json:"warrantyEndDate"`
	ResponsibleID     *string             `json:"responsibleId" binding:"omitempty,uuid"`
	Notes             string              `json:"notes"`
}

// EquipmentPatch updates descriptive fields only. Location, holder and
// status change through the workflow operations.
type EquipmentPatch struct {
	Name              *string              `json:"name" binding:"omitempty,min=1,max=200"`
	Barcode           *string              `json:"barcode" binding:"omitempty,min=3,max=120"`
	SerialNumber      *string              `json:"serialNumber" binding:"omitempty,max=120"`
	AssetTag          *string              `json:"assetTag"`
	ModelNumber       *string              `json:"modelNumber"`
	Manufacturer      *string              `json:"manufacturer"`
	CategoryID        *string              `json:"categoryId" binding:"omitempty,uuid"`
	Condition         *lifecycle.Condition `json:"condition" binding:"omitempty,condition"`
	ConditionNotes    *string              `json:"conditionNotes"`
	PurchaseDate      *time.Time           `json:"purchaseDate"`
	PurchaseValue     *decimal.Decimal     `json:"purchaseValue"`
	WarrantyStartDate *time.Time           `json:"warrantyStartDate"`
	WarrantyEndDate   *time.Time           `json:"warrantyEndDate"`
	ResponsibleID     *string              `json:"responsibleId" binding:"omitempty,uuid"`
	Notes             *string              `json:"notes"`
}

func blankToNil(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

func checkBarcode(tx *gorm.DB, barcode, selfID string) error {
	if len(barcode) < 3 {
		return lifecycle.Validationf("barcode must be at least 3 characters long")
	}
	var n int64
	if err := tx.Model(&models.Equipment{}).
		Where("barcode = ? AND id <> ?", barcode, selfID).
		Count(&n).Error; err != nil {
		return fmt.Errorf("check barcode: %w", err)
	}
	if n > 0 {
		return lifecycle.Validationf("barcode %q must be unique", barcode)
	}
	return nil
}

func checkSerial(tx *gorm.DB, serial *string, companyID, selfID string) error {
	if serial == nil {
		return nil
	}
	var n int64
	if err := tx.Model(&models.Equipment{}).
		Where("serial_number = ? AND company_id = ? AND id <> ?", *serial, companyID, selfID).
		Count(&n).Error; err != nil {
		return fmt.Errorf("check serial number: %w", err)
	}
	if n > 0 {
		return lifecycle.Validationf("serial number %q must be unique per company", *serial)
	}
	return nil
}

func (r *Repo) CreateEquipment(ctx context.Context, actor Actor, in EquipmentInput) (*models.Equipment, error) {
	var out *models.Equipment
	err := r.run(ctx, "equipment", "create", func(t *txn) error {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return lifecycle.Validationf("equipment name is required")
		}
		if _, err := first[models.Category](t.DB, "category", in.CategoryID, false); err != nil {
			return err
		}

		barcode := strings.TrimSpace(in.Barcode)
		if barcode == "" {
			var err error
			if barcode, err = nextName(t.DB, SeqEquipment); err != nil {
				return err
			}
		}
		if err := checkBarcode(t.DB, barcode, ""); err != nil {
			return err
		}
		serial := blankToNil(in.SerialNumber)
		if err := checkSerial(t.DB, serial, r.CompanyID, ""); err != nil {
			return err
		}

		locID := in.LocationID
		if locID == "" {
			ms, err := mainStore(t.DB)
			if err != nil {
				return err
			}
			locID = ms.ID
		} else if _, err := first[models.Location](t.DB, "location", locID, false); err != nil {
			return err
		}

		cond := in.Condition
		if cond == "" {
			cond = lifecycle.ConditionGood
		}
		if !cond.Valid() {
			return lifecycle.Validationf("unknown condition %q", cond)
		}

		eq := &models.Equipment{
			ID:                uuid.NewString(),
			Name:              name,
			Barcode:           barcode,
			SerialNumber:      serial,
			CompanyID:         r.CompanyID,
			AssetTag:          in.AssetTag,
			ModelNumber:       in.ModelNumber,
			Manufacturer:      in.Manufacturer,
			CategoryID:        in.CategoryID,
			LocationID:        locID,
			HolderType:        lifecycle.HolderNone,
			Status:            lifecycle.StatusAvailable,
			Condition:         cond,
			ConditionNotes:    in.ConditionNotes,
			PurchaseDate:      in.PurchaseDate,
			PurchaseValue:     in.PurchaseValue,
			WarrantyStartDate: in.WarrantyStartDate,
			WarrantyEndDate:   in.WarrantyEndDate,
			ResponsibleID:     in.ResponsibleID,
			Notes:             in.Notes,
			Active:            true,
		}
		if err := checkPlacement(t.DB, eq); err != nil {
			return err
		}
		if err := t.Create(eq).Error; err != nil {
			return fmt.Errorf("insert equipment: %w", err)
		}
		t.post(equipmentEvent(eq, actor, "Equipment Created", fmt.Sprintf("Equipment %s (%s) registered.", eq.Name, eq.Barcode)))
		out = eq
		return nil
	})
	return out, err
}

func (r *Repo) UpdateEquipment(ctx context.Context, actor Actor, id string, p EquipmentPatch) (*models.Equipment, error) {
	var out *models.Equipment
	err := r.onAsset(ctx, "equipment", "update", id, func(t *txn, eq *models.Equipment) error {
		if p.Name != nil {
			if strings.TrimSpace(*p.Name) == "" {
				return lifecycle.Validationf("equipment name is required")
			}
			eq.Name = strings.TrimSpace(*p.Name)
		}
		if p.Barcode != nil {
			bc := strings.TrimSpace(*p.Barcode)
			if err := checkBarcode(t.DB, bc, eq.ID); err != nil {
				return err
			}
			eq.Barcode = bc
		}
		if p.SerialNumber != nil {
			serial := blankToNil(p.SerialNumber)
			if err := checkSerial(t.DB, serial, eq.CompanyID, eq.ID); err != nil {
				return err
			}
			eq.SerialNumber = serial
		}
		if p.CategoryID != nil {
			if _, err := first[models.Category](t.DB, "category", *p.CategoryID, false); err != nil {
				return err
			}
			eq.CategoryID = *p.CategoryID
		}
		if p.Condition != nil {
			if !p.Condition.Valid() {
				return lifecycle.Validationf("unknown condition %q", *p.Condition)
			}
			eq.Condition = *p.Condition
		}
		if p.PurchaseValue != nil {
			eq.PurchaseValue = decimal.NewNullDecimal(*p.PurchaseValue)
		}
		setIf(&eq.AssetTag, p.AssetTag)
		setIf(&eq.ModelNumber, p.ModelNumber)
		setIf(&eq.Manufacturer, p.Manufacturer)
		setIf(&eq.ConditionNotes, p.ConditionNotes)
		setIf(&eq.Notes, p.Notes)
		if p.PurchaseDate != nil {
			eq.PurchaseDate = p.PurchaseDate
		}
		if p.WarrantyStartDate != nil {
			eq.WarrantyStartDate = p.WarrantyStartDate
		}
		if p.WarrantyEndDate != nil {
			eq.WarrantyEndDate = p.WarrantyEndDate
		}
		if p.ResponsibleID != nil {
			eq.ResponsibleID = blankToNil(p.ResponsibleID)
		}
		if err := t.Save(eq).Error; err != nil {
			return fmt.Errorf("update equipment: %w", err)
		}
		out = eq
		return nil
	})
	return out, err
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// MoveEquipment relocates an asset without touching its holder.
func (r *Repo) MoveEquipment(ctx context.Context, actor Actor, id, locationID string) (*models.Equipment, error) {
	var out *models.Equipment
	err := r.onAsset(ctx, "equipment", "move", id, func(t *txn, eq *models.Equipment) error {
		if eq.Status == lifecycle.StatusBorrowed {
			return lifecycle.Businessf("return the item before moving it")
		}
		loc, err := first[models.Location](t.DB, "location", locationID, false)
		if err != nil {
			return err
		}
		if !loc.Active {
			return lifecycle.Validationf("location %s is archived", loc.Name)
		}
		if loc.Ref != nil && *loc.Ref == models.RefMainStore && eq.HolderType.Held() {
			return lifecycle.Businessf("unassign this item before moving it to Main Store")
		}
		from := eq.LocationID
		eq.LocationID = loc.ID
		if err := checkPlacement(t.DB, eq); err != nil {
			return err
		}
		if err := t.Save(eq).Error; err != nil {
			return fmt.Errorf("move equipment: %w", err)
		}
		if from != loc.ID {
			t.post(equipmentEvent(eq, actor, "Equipment Moved", "Moved to "+loc.Name+"."))
		}
		out = eq
		return nil
	})
	return out, err
}

// setStatus applies an operator status action guarded by check.
func (r *Repo) setStatus(ctx context.Context, actor Actor, action, id string, check func(s lifecycle.AssetStatus) error, next func(eq *models.Equipment) lifecycle.AssetStatus, subject string) (*models.Equipment, error) {
	var out *models.Equipment
	err := r.onAsset(ctx, "equipment", action, id, func(t *txn, eq *models.Equipment) error {
		if err := check(eq.Status); err != nil {
			return err
		}
		eq.Status = next(eq)
		if err := t.Save(eq).Error; err != nil {
			return fmt.Errorf("%s equipment: %w", action, err)
		}
		t.post(equipmentEvent(eq, actor, subject, fmt.Sprintf("Status set to %s.", eq.Status)))
		out = eq
		return nil
	})
	return out, err
}

func (r *Repo) RetireEquipment(ctx context.Context, actor Actor, id string) (*models.Equipment, error) {
	return r.setStatus(ctx, actor, "retire", id, lifecycle.CanRetire,
		func(*models.Equipment) lifecycle.AssetStatus { return lifecycle.StatusRetired }, "Equipment Retired")
}

func (r *Repo) MarkEquipmentLost(ctx context.Context, actor Actor, id string) (*models.Equipment, error) {
	return r.setStatus(ctx, actor, "lost", id, lifecycle.CanMarkLost,
		func(*models.Equipment) lifecycle.AssetStatus { return lifecycle.StatusLost }, "Equipment Lost")
}

func (r *Repo) MarkEquipmentFound(ctx context.Context, actor Actor, id string) (*models.Equipment, error) {
	return r.setStatus(ctx, actor, "found", id, lifecycle.CanMarkFound,
		func(eq *models.Equipment) lifecycle.AssetStatus { return lifecycle.IdleStatus(eq.HolderType) }, "Equipment Found")
}

// ArchiveEquipment soft-deletes an asset. Records are never removed.
func (r *Repo) ArchiveEquipment(ctx context.Context, actor Actor, id string) (*models.Equipment, error) {
	var out *models.Equipment
	err := r.onAsset(ctx, "equipment", "archive", id, func(t *txn, eq *models.Equipment) error {
		switch {
		case !eq.Active:
			return lifecycle.Businessf("equipment is already archived")
		case eq.Status == lifecycle.StatusBorrowed:
			return lifecycle.Businessf("return the item before archiving it")
		case eq.HolderType.Held():
			return lifecycle.Businessf("unassign the item before archiving it")
		}
		eq.Active = false
		if err := t.Save(eq).Error; err != nil {
			return fmt.Errorf("archive equipment: %w", err)
		}
		t.post(equipmentEvent(eq, actor, "Equipment Archived", "Equipment archived."))
		out = eq
		return nil
	})
	return out, err
}

// Queries

type EquipmentQuery struct {
	Q               string
	Status          string
	CategoryID      string
	LocationID      string
	IncludeArchived bool
	Page            int
	Size            int
}

type PagedEquipment struct {
	Total int64              `json:"total"`
	Items []models.Equipment `json:"items"`
}

func (r *Repo) ListEquipment(ctx context.Context, q EquipmentQuery) (*PagedEquipment, error) {
	q.Page, q.Size = page(q.Page, q.Size, 200)

	tx := r.DB.WithContext(ctx).Model(&models.Equipment{})
	if s := strings.TrimSpace(q.Q); s != "" {
		pat := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(barcode) LIKE ? OR LOWER(COALESCE(serial_number, '')) LIKE ?", pat, pat, pat)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.CategoryID != "" {
		tx = tx.Where("category_id = ?", q.CategoryID)
	}
	if q.LocationID != "" {
		tx = tx.Where("location_id = ?", q.LocationID)
	}
	if !q.IncludeArchived {
		tx = tx.Where("active = ?", true)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.Equipment
	if err := tx.Order("name ASC, barcode ASC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return &PagedEquipment{Total: total, Items: items}, nil
}

// EquipmentView is an asset with its read-only derived fields.
type EquipmentView struct {
	models.Equipment
	WarrantyActive      bool       `json:"warrantyActive"`
	NextMaintenanceDate *time.Time `json:"nextMaintenanceDate,omitempty"`
	LoanCount           int64      `json:"loanCount"`
	ActiveLoanID        *string    `json:"activeLoanId,omitempty"`
	AssignmentCount     int64      `json:"assignmentCount"`
	RequiresApproval    bool       `json:"requiresApproval"`
}

func (r *Repo) GetEquipment(ctx context.Context, id string) (*EquipmentView, error) {
	tx := r.DB.WithContext(ctx)
	eq, err := first[models.Equipment](tx, "equipment", id, false)
	if err != nil {
		return nil, err
	}
	now := r.now()
	v := &EquipmentView{Equipment: *eq, WarrantyActive: eq.WarrantyActive(now)}

	if err := tx.Model(&models.Loan{}).Where("equipment_id = ?", id).Count(&v.LoanCount).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.Assignment{}).Where("equipment_id = ?", id).Count(&v.AssignmentCount).Error; err != nil {
		return nil, err
	}

	var active []models.Loan
	if err := tx.Where("equipment_id = ? AND status IN ?", id,
		[]string{string(lifecycle.LoanIssued), string(lifecycle.LoanOverdue)}).
		Find(&active).Error; err != nil {
		return nil, err
	}
	if len(active) > 0 {
		v.ActiveLoanID = &active[0].ID
	}

	var scheduled []models.Maintenance
	if err := tx.Where("equipment_id = ? AND status = ?", id, lifecycle.MaintenanceScheduled).
		Find(&scheduled).Error; err != nil {
		return nil, err
	}
	v.NextMaintenanceDate = nextMaintenance(scheduled, now)

	cat, err := first[models.Category](tx, "category", eq.CategoryID, false)
	if err != nil {
		return nil, err
	}
	v.RequiresApproval = cat.RequiresApproval
	return v, nil
}

// nextMaintenance is the earliest scheduled date not before today.
func nextMaintenance(ms []models.Maintenance, now time.Time) *time.Time {
	today := models.DateOf(now)
	var next *time.Time
	for i := range ms {
		d := ms[i].ScheduledDate
		if d.Before(today) {
			continue
		}
		if next == nil || d.Before(*next) {
			next = &d
		}
	}
	return next
}
