package controllers

import (
	"net/http"

	"Gin_postgres_redis_equipment_tool/app"
	"Gin_postgres_redis_equipment_tool/db"
	"Gin_postgres_redis_equipment_tool/models"

	"github.com/gin-gonic/gin"
)

type ReservationController struct{ *Srv }

func NewReservationController(s *Srv) *ReservationController {
	return &ReservationController{Srv: s}
}

func (rc *ReservationController) Create(c *gin.Context) {
	var in db.ReservationInput
	if !bind(c, &in) {
		return
	}
	actor := app.ActorOf(c)
	if !actor.IsManager {
		in.RequesterID = actor.UserID
	}
	res, err := rc.Repo.CreateReservation(c.Request.Context(), actor, in)
	if err != nil {
		rc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (rc *ReservationController) List(c *gin.Context) {
	actor := app.ActorOf(c)
	q := db.ReservationQuery{RequesterID: c.Query("requesterId"), Status: c.Query("status")}
	if !actor.IsManager {
		q.RequesterID = actor.UserID
	}
	rs, err := rc.Repo.ListReservations(c.Request.Context(), q)
	if err != nil {
		rc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": rs})
}

func (rc *ReservationController) Get(c *gin.Context) {
	res, err := rc.Repo.GetReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		rc.fail(c, err)
		return
	}
	if !rc.ownOnly(c, res.RequesterID) {
		return
	}
	c.JSON(http.StatusOK, res)
}

func (rc *ReservationController) action(op func(c *gin.Context, actor db.Actor, id string) (*models.Reservation, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := op(c, app.ActorOf(c), c.Param("id"))
		if err != nil {
			rc.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (rc *ReservationController) Submit() gin.HandlerFunc {
	return rc.action(func(c *gin.Context, a db.Actor, id string) (*models.Reservation, error) {
		return rc.Repo.SubmitReservation(c.Request.Context(), a, id)
	})
}

func (rc *ReservationController) Approve() gin.HandlerFunc {
	return rc.action(func(c *gin.Context, a db.Actor, id string) (*models.Reservation, error) {
		return rc.Repo.ApproveReservation(c.Request.Context(), a, id)
	})
}

func (rc *ReservationController) Reject() gin.HandlerFunc {
	return rc.action(func(c *gin.Context, a db.Actor, id string) (*models.Reservation, error) {
		return rc.Repo.RejectReservation(c.Request.Context(), a, id)
	})
}

func (rc *ReservationController) Confirm() gin.HandlerFunc {
	return rc.action(func(c *gin.Context, a db.Actor, id string) (*models.Reservation, error) {
		return rc.Repo.ConfirmReservation(c.Request.Context(), a, id)
	})
}

func (rc *ReservationController) Cancel() gin.HandlerFunc {
	return rc.action(func(c *gin.Context, a db.Actor, id string) (*models.Reservation, error) {
		return rc.Repo.CancelReservation(c.Request.Context(), a, id)
	})
}
