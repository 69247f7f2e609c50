package controllers

import (
	"net/http"

	"Gin_postgres_redis_equipment_tool/app"
	"Gin_postgres_redis_equipment_tool/db"
	"Gin_postgres_redis_equipment_tool/models"
	"Gin_postgres_redis_equipment_tool/notify"

	"github.com/gin-gonic/gin"
)

type LoanController struct{ *Srv }

func NewLoanController(s *Srv) *LoanController { return &LoanController{Srv: s} }

func (lc *LoanController) CreateLoan(c *gin.Context) {
	var in db.LoanInput
	if !bind(c, &in) {
		return
	}
	actor := app.ActorOf(c)
	if !actor.IsManager {
		in.BorrowerID = actor.UserID
	}
	l, err := lc.Repo.CreateLoan(c.Request.Context(), actor, in)
	if err != nil {
		lc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

// GET /api/loans?status=&equipmentId=&borrowerId=&page=&size=
// Non-managers only see their own loans.
func (lc *LoanController) ListLoans(c *gin.Context) {
	actor := app.ActorOf(c)
	q := db.LoanQuery{
		BorrowerID:  c.Query("borrowerId"),
		EquipmentID: c.Query("equipmentId"),
		Status:      c.Query("status"),
	}
	if !actor.IsManager {
		q.BorrowerID = actor.UserID
	}
	q.Page, q.Size = pageParams(c)

	res, err := lc.Repo.ListLoans(c.Request.Context(), q)
	if err != nil {
		lc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (lc *LoanController) GetLoan(c *gin.Context) {
	l, err := lc.Repo.GetLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		lc.fail(c, err)
		return
	}
	if !lc.ownOnly(c, l.BorrowerID) {
		return
	}
	c.JSON(http.StatusOK, l)
}

func (lc *LoanController) action(op func(c *gin.Context, actor db.Actor, id string) (*models.Loan, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, err := op(c, app.ActorOf(c), c.Param("id"))
		if err != nil {
			lc.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, l)
	}
}

func (lc *LoanController) Submit() gin.HandlerFunc {
	return lc.action(func(c *gin.Context, a db.Actor, id string) (*models.Loan, error) {
		return lc.Repo.SubmitLoan(c.Request.Context(), a, id)
	})
}

func (lc *LoanController) Approve() gin.HandlerFunc {
	return lc.action(func(c *gin.Context, a db.Actor, id string) (*models.Loan, error) {
		return lc.Repo.ApproveLoan(c.Request.Context(), a, id)
	})
}

func (lc *LoanController) Issue() gin.HandlerFunc {
	return lc.action(func(c *gin.Context, a db.Actor, id string) (*models.Loan, error) {
		return lc.Repo.IssueLoan(c.Request.Context(), a, id)
	})
}

func (lc *LoanController) Cancel() gin.HandlerFunc {
	return lc.action(func(c *gin.Context, a db.Actor, id string) (*models.Loan, error) {
		return lc.Repo.CancelLoan(c.Request.Context(), a, id)
	})
}

func (lc *LoanController) Return(c *gin.Context) {
	var in db.ReturnInput
	if !bindOptional(c, &in) {
		return
	}
	l, err := lc.Repo.ReturnLoan(c.Request.Context(), app.ActorOf(c), c.Param("id"), in)
	if err != nil {
		lc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (lc *LoanController) Reject(c *gin.Context) {
	var in struct {
		Reason         string `json:"reason" binding:"required"`
		NotifyBorrower *bool  `json:"notifyBorrower"`
	}
	if !bind(c, &in) {
		return
	}
	notifyBorrower := in.NotifyBorrower == nil || *in.NotifyBorrower
	l, err := lc.Repo.RejectLoan(c.Request.Context(), app.ActorOf(c), c.Param("id"), in.Reason, notifyBorrower)
	if err != nil {
		lc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// POST /api/loans/sweep
func (lc *LoanController) Sweep(c *gin.Context) {
	res, err := lc.Repo.SweepLoans(c.Request.Context())
	if err != nil {
		lc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (lc *LoanController) ListMessages(c *gin.Context) {
	l, err := lc.Repo.GetLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		lc.fail(c, err)
		return
	}
	if !lc.ownOnly(c, l.BorrowerID) {
		return
	}
	ms, err := lc.Repo.ListMessages(c.Request.Context(), notify.SubjectLoan, c.Param("id"))
	if err != nil {
		lc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": ms})
}
