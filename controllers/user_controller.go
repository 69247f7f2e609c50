package controllers

import (
	"net/http"
	"strconv"

	"Gin_postgres_redis_equipment_tool/app"
	"Gin_postgres_redis_equipment_tool/db"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// POST /api/users
func (uc *UserController) CreateUser(c *gin.Context) {
	var in db.UserInput
	if !bind(c, &in) {
		return
	}
	u, key, err := uc.Repo.CreateUser(c.Request.Context(), in)
	if err != nil {
		uc.fail(c, err)
		return
	}
	// the key is shown once and only its hash is stored
	c.JSON(http.StatusCreated, app.H{"user": u, "accessKey": key})
}

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	page, size := pageParams(c)
	res, err := uc.Repo.ListUsers(c.Request.Context(), c.Query("q"), page, size)
	if err != nil {
		uc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid uuid"})
		return
	}
	user, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		uc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": user})
}

// POST /api/users/:id/access-key
func (uc *UserController) ResetAccessKey(c *gin.Context) {
	id := c.Param("id")
	key, err := uc.Repo.ResetAccessKey(c.Request.Context(), id)
	if err != nil {
		uc.fail(c, err)
		return
	}
	// old sessions were opened with the old key
	_ = uc.AppSess.RevokeAllForUser(c.Request.Context(), id)
	c.JSON(http.StatusOK, app.H{"accessKey": key})
}

// PUT /api/users/:id/manager
func (uc *UserController) SetManager(c *gin.Context) {
	id := c.Param("id")
	var in struct {
		IsManager *bool `json:"isManager" binding:"required"`
	}
	if !bind(c, &in) {
		return
	}
	if !*in.IsManager && id == c.GetString("userID") {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot remove your own manager role"})
		return
	}
	if _, err := uc.Repo.FindUserByID(c.Request.Context(), id); err != nil {
		uc.fail(c, err)
		return
	}
	if err := uc.Repo.SetUserManager(c.Request.Context(), id, *in.IsManager); err != nil {
		uc.fail(c, err)
		return
	}
	_ = uc.AppSess.RevokeAllForUser(c.Request.Context(), id)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// POST /api/partners
func (uc *UserController) CreatePartner(c *gin.Context) {
	var in db.PartnerInput
	if !bind(c, &in) {
		return
	}
	p, err := uc.Repo.CreatePartner(c.Request.Context(), in)
	if err != nil {
		uc.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GET /api/partners?companies=true
func (uc *UserController) ListPartners(c *gin.Context) {
	var companies *bool
	if v, err := strconv.ParseBool(c.Query("companies")); err == nil {
		companies = &v
	}
	ps, err := uc.Repo.ListPartners(c.Request.Context(), companies)
	if err != nil {
		uc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": ps})
}
