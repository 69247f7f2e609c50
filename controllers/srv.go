// controllers/srv.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Gin_postgres_redis_equipment_tool/app"
	"Gin_postgres_redis_equipment_tool/config"
	"Gin_postgres_redis_equipment_tool/db"
	"Gin_postgres_redis_equipment_tool/lifecycle"
	"Gin_postgres_redis_equipment_tool/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Srv struct {
	Repo      *db.Repo
	AppSess   *session.AppSessionStore
	WebOrigin string
	Cfg       app.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:      a.Repo,
		AppSess:   a.AppSessions(),
		WebOrigin: a.Config.WebOrigin,
		Cfg:       a.Config,
	}
}

func (s *Srv) AppSessions() *session.AppSessionStore { return s.AppSess }

// --- helpers ---

func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}

// issueSession creates the app session after a successful login.
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, userID string, isManager bool) error {
	if err := s.Repo.TouchUserLogin(ctx, userID); err != nil {
		config.LogError(s.Repo.Log, "controllers", "issueSession", "touch login", userID, err)
	}
	id, err := session.NewID()
	if err != nil {
		return err
	}
	if err := s.AppSess.Create(ctx, id, userID, isManager); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.AppSess.TTL())
	return nil
}

func statusOf(k lifecycle.Kind) int {
	switch k {
	case lifecycle.KindValidation:
		return http.StatusBadRequest
	case lifecycle.KindNotFound:
		return http.StatusNotFound
	case lifecycle.KindBusiness:
		return http.StatusConflict
	case lifecycle.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// ownOnly writes 403 when a non-manager reads someone else's record.
func (s *Srv) ownOnly(c *gin.Context, ownerID string) bool {
	if a := app.ActorOf(c); a.IsManager || a.UserID == ownerID {
		return true
	}
	s.fail(c, lifecycle.Forbiddenf("you can only view your own requests"))
	return false
}

// fail writes err using the domain error kind; anything else is a 500.
func (s *Srv) fail(c *gin.Context, err error) {
	var de *lifecycle.Error
	switch {
	case errors.As(err, &de):
		body := app.H{"error": err.Error(), "kind": de.Kind.String()}
		if de.Conflict != "" {
			body["conflict"] = de.Conflict
		}
		c.JSON(statusOf(de.Kind), body)
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": "not found", "kind": lifecycle.KindNotFound.String()})
	default:
		config.LogError(s.Repo.Log, "controllers", c.FullPath(), c.Request.Method, nil, err)
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal error"})
	}
}

// bind decodes the JSON body into v and answers 400 on failure.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid request: " + err.Error(), "kind": lifecycle.KindValidation.String()})
		return false
	}
	return true
}

// bindOptional is bind for bodies that may be empty.
func bindOptional(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bind(c, v)
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return page, size
}
