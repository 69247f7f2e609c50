package controllers

import (
	"net/http"
	"strconv"
	"time"

	"Gin_postgres_redis_equipment_tool/app"
	"Gin_postgres_redis_equipment_tool/db"
	"Gin_postgres_redis_equipment_tool/models"
	"Gin_postgres_redis_equipment_tool/notify"

	"github.com/gin-gonic/gin"
)

type EquipmentController struct{ *Srv }

func NewEquipmentController(s *Srv) *EquipmentController { return &EquipmentController{Srv: s} }

func (ec *EquipmentController) CreateEquipment(c *gin.Context) {
	var in db.EquipmentInput
	if !bind(c, &in) {
		return
	}
	eq, err := ec.Repo.CreateEquipment(c.Request.Context(), app.ActorOf(c), in)
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, eq)
}

// GET /api/equipment?q=&status=&categoryId=&locationId=&includeArchived=&page=&size=
func (ec *EquipmentController) ListEquipment(c *gin.Context) {
	q := db.EquipmentQuery{
		Q:          c.Query("q"),
		Status:     c.Query("status"),
		CategoryID: c.Query("categoryId"),
		LocationID: c.Query("locationId"),
	}
	q.IncludeArchived, _ = strconv.ParseBool(c.Query("includeArchived"))
	q.Page, q.Size = pageParams(c)

	res, err := ec.Repo.ListEquipment(c.Request.Context(), q)
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ec *EquipmentController) GetEquipment(c *gin.Context) {
	v, err := ec.Repo.GetEquipment(c.Request.Context(), c.Param("id"))
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (ec *EquipmentController) UpdateEquipment(c *gin.Context) {
	var in db.EquipmentPatch
	if !bind(c, &in) {
		return
	}
	eq, err := ec.Repo.UpdateEquipment(c.Request.Context(), app.ActorOf(c), c.Param("id"), in)
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, eq)
}

func (ec *EquipmentController) Assign(c *gin.Context) {
	var in db.AssignInput
	if !bind(c, &in) {
		return
	}
	a, err := ec.Repo.Assign(c.Request.Context(), app.ActorOf(c), c.Param("id"), in)
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (ec *EquipmentController) Unassign(c *gin.Context) {
	var in db.UnassignInput
	if !bindOptional(c, &in) {
		return
	}
	eq, err := ec.Repo.Unassign(c.Request.Context(), app.ActorOf(c), c.Param("id"), in)
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, eq)
}

func (ec *EquipmentController) Move(c *gin.Context) {
	var in struct {
		LocationID string `json:"locationId" binding:"required,uuid"`
	}
	if !bind(c, &in) {
		return
	}
	eq, err := ec.Repo.MoveEquipment(c.Request.Context(), app.ActorOf(c), c.Param("id"), in.LocationID)
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, eq)
}

// statusAction adapts the single-argument status operations.
func (ec *EquipmentController) statusAction(op func(c *gin.Context, actor db.Actor, id string) (*models.Equipment, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		eq, err := op(c, app.ActorOf(c), c.Param("id"))
		if err != nil {
			ec.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, eq)
	}
}

func (ec *EquipmentController) Retire() gin.HandlerFunc {
	return ec.statusAction(func(c *gin.Context, a db.Actor, id string) (*models.Equipment, error) {
		return ec.Repo.RetireEquipment(c.Request.Context(), a, id)
	})
}

func (ec *EquipmentController) MarkLost() gin.HandlerFunc {
	return ec.statusAction(func(c *gin.Context, a db.Actor, id string) (*models.Equipment, error) {
		return ec.Repo.MarkEquipmentLost(c.Request.Context(), a, id)
	})
}

func (ec *EquipmentController) MarkFound() gin.HandlerFunc {
	return ec.statusAction(func(c *gin.Context, a db.Actor, id string) (*models.Equipment, error) {
		return ec.Repo.MarkEquipmentFound(c.Request.Context(), a, id)
	})
}

func (ec *EquipmentController) Archive() gin.HandlerFunc {
	return ec.statusAction(func(c *gin.Context, a db.Actor, id string) (*models.Equipment, error) {
		return ec.Repo.ArchiveEquipment(c.Request.Context(), a, id)
	})
}

// POST /api/equipment/:id/borrow
func (ec *EquipmentController) Borrow(c *gin.Context) {
	var in struct {
		BorrowerID       string     `json:"borrowerId" binding:"omitempty,uuid"`
		DueDate          *time.Time `json:"dueDate"`
		ReturnLocationID *string    `json:"returnLocationId" binding:"omitempty,uuid"`
		Purpose          string     `json:"purpose" binding:"required"`
		Notes            string     `json:"notes"`
	}
	if !bind(c, &in) {
		return
	}
	actor := app.ActorOf(c)
	if !actor.IsManager {
		in.BorrowerID = actor.UserID
	}
	l, err := ec.Repo.QuickBorrow(c.Request.Context(), actor, db.LoanInput{
		EquipmentID:      c.Param("id"),
		BorrowerID:       in.BorrowerID,
		DueDate:          in.DueDate,
		ReturnLocationID: in.ReturnLocationID,
		Purpose:          in.Purpose,
		Notes:            in.Notes,
	})
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (ec *EquipmentController) ListAssignments(c *gin.Context) {
	as, err := ec.Repo.ListAssignments(c.Request.Context(), c.Param("id"))
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": as})
}

func (ec *EquipmentController) ListMessages(c *gin.Context) {
	ms, err := ec.Repo.ListMessages(c.Request.Context(), notify.SubjectEquipment, c.Param("id"))
	if err != nil {
		ec.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": ms})
}
