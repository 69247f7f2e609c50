package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"Gin_postgres_redis_equipment_tool/lifecycle"
	"Gin_postgres_redis_equipment_tool/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LocationInput struct {
	Name          string  `json:"name" binding:"required,max=200"`
	Code          *string `json:"code" binding:"omitempty,max=40"`
	ParentID      *string `json:"parentId" binding:"omitempty,uuid"`
	LocationType  string  `json:"locationType"`
	Building      string  `json:"building"`
	Floor         string  `json:"floor"`
	Room          string  `json:"room"`
	Address       string  `json:"address"`
	ResponsibleID *string `json:"responsibleId" binding:"omitempty,uuid"`
	Notes         string  `json:"notes"`
}

type CategoryInput struct {
	Name                   string  `json:"name" binding:"required,max=200"`
	Code                   string  `json:"code" binding:"max=40"`
	Sequence               int     `json:"sequence"`
	ParentID               *string `json:"parentId" binding:"omitempty,uuid"`
	RequiresApproval       bool    `json:"requiresApproval"`
	MaxBorrowDays          int     `json:"maxBorrowDays" binding:"gte=0"`
	AllowExternalBorrowing bool    `json:"allowExternalBorrowing"`
	ResponsibleID          *string `json:"responsibleId" binding:"omitempty,uuid"`
	Description            string  `json:"description"`
}

func (r *Repo) CreateLocation(ctx context.Context, in LocationInput) (*models.Location, error) {
	return r.createLocation(ctx, in, nil)
}

func (r *Repo) createLocation(ctx context.Context, in LocationInput, ref *string) (*models.Location, error) {
	var out *models.Location
	err := r.run(ctx, "location", "create", func(t *txn) error {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return lifecycle.Validationf("location name is required")
		}
		typ := in.LocationType
		if typ == "" {
			typ = "lab"
		}
		if !slices.Contains(models.LocationTypes, typ) {
			return lifecycle.Validationf("unknown location type %q", typ)
		}
		code := blankToNil(in.Code)
		if code != nil {
			var n int64
			if err := t.Model(&models.Location{}).Where("code = ?", *code).Count(&n).Error; err != nil {
				return fmt.Errorf("check location code: %w", err)
			}
			if n > 0 {
				return lifecycle.Validationf("location code %q must be unique", *code)
			}
		}
		parent := blankToNil(in.ParentID)
		if parent != nil {
			if _, err := first[models.Location](t.DB, "location", *parent, false); err != nil {
				return err
			}
		}
		loc := &models.Location{
			ID:            uuid.NewString(),
			Name:          name,
			Code:          code,
			Ref:           ref,
			ParentID:      parent,
			LocationType:  typ,
			Building:      in.Building,
			Floor:         in.Floor,
			Room:          in.Room,
			Address:       in.Address,
			ResponsibleID: blankToNil(in.ResponsibleID),
			Active:        true,
			Notes:         in.Notes,
		}
		if err := t.Create(loc).Error; err != nil {
			return fmt.Errorf("insert location: %w", err)
		}
		out = loc
		return nil
	})
	return out, err
}

// EnsureReferenceLocations creates Main Store and In Use when missing.
func (r *Repo) EnsureReferenceLocations(ctx context.Context) error {
	seeds := []struct {
		ref  string
		name string
		typ  string
	}{
		{models.RefMainStore, "Main Store", "warehouse"},
		{models.RefInUse, "In Use", "field"},
	}
	for _, s := range seeds {
		loc, err := locationByRef(r.DB.WithContext(ctx), s.ref)
		if err != nil {
			return err
		}
		if loc != nil {
			continue
		}
		ref := s.ref
		if _, err := r.createLocation(ctx, LocationInput{Name: s.name, LocationType: s.typ}, &ref); err != nil {
			return fmt.Errorf("seed %s: %w", s.name, err)
		}
		r.Log.WithField("module", "db").Infof("created reference location %q", s.name)
	}
	return nil
}

func locationNodes(ls []models.Location) []models.Node {
	nodes := make([]models.Node, 0, len(ls))
	for i := range ls {
		nodes = append(nodes, ls[i].Node())
	}
	return nodes
}

type countRow struct {
	Grp string
	N   int64
}

func groupCount(tx *gorm.DB, model any, column string, where string, args ...any) (map[string]int64, error) {
	var rows []countRow
	q := tx.Model(model).Select(column + " AS grp, COUNT(*) AS n")
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Group(column).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rw := range rows {
		out[rw.Grp] = rw.N
	}
	return out, nil
}

// ListLocations returns every location with its complete name, recursive
// equipment count and borrowed count.
func (r *Repo) ListLocations(ctx context.Context) ([]models.LocationView, error) {
	tx := r.DB.WithContext(ctx)
	var ls []models.Location
	if err := tx.Order("name ASC").Find(&ls).Error; err != nil {
		return nil, err
	}
	direct, err := groupCount(tx, &models.Equipment{}, "location_id", "active = ?", true)
	if err != nil {
		return nil, err
	}
	borrowed, err := groupCount(tx, &models.Loan{}, "from_location_id", "status IN ?", activeLoanStatuses)
	if err != nil {
		return nil, err
	}
	nodes := locationNodes(ls)
	total := models.RollupCounts(nodes, direct)
	views := make([]models.LocationView, 0, len(ls))
	for _, l := range ls {
		views = append(views, models.LocationView{
			Location:       l,
			CompleteName:   models.CompleteName(nodes, l.ID),
			EquipmentCount: total[l.ID],
			BorrowedCount:  borrowed[l.ID],
		})
	}
	slices.SortFunc(views, func(a, b models.LocationView) int { return strings.Compare(a.CompleteName, b.CompleteName) })
	return views, nil
}

func (r *Repo) GetLocation(ctx context.Context, id string) (*models.LocationView, error) {
	views, err := r.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].ID == id {
			return &views[i], nil
		}
	}
	return nil, lifecycle.NotFoundf("location %s not found", id)
}

// Categories

func (r *Repo) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	var out *models.Category
	err := r.run(ctx, "category", "create", func(t *txn) error {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return lifecycle.Validationf("category name is required")
		}
		var n int64
		if err := t.Model(&models.Category{}).Where("name = ?", name).Count(&n).Error; err != nil {
			return fmt.Errorf("check category name: %w", err)
		}
		if n > 0 {
			return lifecycle.Validationf("category name %q must be unique", name)
		}
		parent := blankToNil(in.ParentID)
		if parent != nil {
			if _, err := first[models.Category](t.DB, "category", *parent, false); err != nil {
				return err
			}
		}
		days := in.MaxBorrowDays
		if days == 0 {
			days = 7
		}
		seq := in.Sequence
		if seq == 0 {
			seq = 10
		}
		c := &models.Category{
			ID:                     uuid.NewString(),
			Name:                   name,
			Code:                   in.Code,
			Sequence:               seq,
			ParentID:               parent,
			RequiresApproval:       in.RequiresApproval,
			MaxBorrowDays:          days,
			AllowExternalBorrowing: in.AllowExternalBorrowing,
			ResponsibleID:          blankToNil(in.ResponsibleID),
			Active:                 true,
			Description:            in.Description,
		}
		if err := t.Create(c).Error; err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		out = c
		return nil
	})
	return out, err
}

// SetCategoryParent moves a category in the tree. A nil parent makes it a
// root.
func (r *Repo) SetCategoryParent(ctx context.Context, id string, parentID *string) (*models.Category, error) {
	var out *models.Category
	err := r.run(ctx, "category", "set_parent", func(t *txn) error {
		c, err := first[models.Category](t.DB, "category", id, true)
		if err != nil {
			return err
		}
		parent := blankToNil(parentID)
		if parent != nil {
			if _, err := first[models.Category](t.DB, "category", *parent, false); err != nil {
				return err
			}
			var all []models.Category
			if err := t.Find(&all).Error; err != nil {
				return fmt.Errorf("load categories: %w", err)
			}
			nodes := make([]models.Node, 0, len(all))
			for i := range all {
				nodes = append(nodes, all[i].Node())
			}
			if models.CreatesCycle(nodes, id, *parent) {
				return lifecycle.Validationf("you cannot create recursive categories")
			}
		}
		c.ParentID = parent
		if err := t.Save(c).Error; err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		out = c
		return nil
	})
	return out, err
}

func (r *Repo) ListCategories(ctx context.Context) ([]models.CategoryView, error) {
	tx := r.DB.WithContext(ctx)
	var cs []models.Category
	if err := tx.Order("sequence ASC, name ASC").Find(&cs).Error; err != nil {
		return nil, err
	}
	direct, err := groupCount(tx, &models.Equipment{}, "category_id", "active = ?", true)
	if err != nil {
		return nil, err
	}
	nodes := make([]models.Node, 0, len(cs))
	for i := range cs {
		nodes = append(nodes, cs[i].Node())
	}
	total := models.RollupCounts(nodes, direct)
	views := make([]models.CategoryView, 0, len(cs))
	for _, c := range cs {
		views = append(views, models.CategoryView{
			Category:       c,
			CompleteName:   models.CompleteName(nodes, c.ID),
			EquipmentCount: total[c.ID],
		})
	}
	return views, nil
}

func (r *Repo) GetCategory(ctx context.Context, id string) (*models.CategoryView, error) {
	views, err := r.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if views[i].ID == id {
			return &views[i], nil
		}
	}
	return nil, lifecycle.NotFoundf("category %s not found", id)
}
