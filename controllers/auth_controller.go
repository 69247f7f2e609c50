package controllers

import (
	"net/http"
	"time"

	"Gin_postgres_redis_equipment_tool/app"

	"github.com/gin-gonic/gin"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

// POST /auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var in struct {
		Username  string `json:"username" binding:"required"`
		AccessKey string `json:"accessKey" binding:"required"`
	}
	if !bind(c, &in) {
		return
	}
	u, err := ac.Repo.Authenticate(c.Request.Context(), in.Username, in.AccessKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": err.Error()})
		return
	}
	if err := ac.issueSession(c.Request.Context(), c.Writer, u.ID, u.IsManager); err != nil {
		ac.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}

// POST /auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		_ = ac.AppSess.Delete(c.Request.Context(), ck.Value)
	}
	ac.setAppCookie(c.Writer, "", -time.Second)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /auth/whoami
func (ac *AuthController) WhoAmI(c *gin.Context) {
	u, err := ac.Repo.FindUserByID(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u})
}
