package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Gin_postgres_redis_equipment_tool/app"
	"Gin_postgres_redis_equipment_tool/db"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type client struct {
	t      *testing.T
	router http.Handler
	cookie *http.Cookie
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func (c *client) expect(method, path string, body any, status int) map[string]any {
	c.t.Helper()
	w := c.do(method, path, body)
	if w.Code != status {
		c.t.Fatalf("%s %s = %d, want %d: %s", method, path, w.Code, status, w.Body.String())
	}
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func (c *client) login(username, key string) {
	c.t.Helper()
	w := c.do(http.MethodPost, "/auth/login", map[string]string{"username": username, "accessKey": key})
	if w.Code != http.StatusOK {
		c.t.Fatalf("login %s = %d: %s", username, w.Code, w.Body.String())
	}
	for _, ck := range w.Result().Cookies() {
		if ck.Name == app.AppSessionCookie {
			c.cookie = ck
		}
	}
	if c.cookie == nil {
		c.t.Fatalf("login did not set a session cookie")
	}
}

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	a := app.New(app.Config{
		WebOrigin:     "http://localhost:5173",
		SessionTTL:    time.Hour,
		SeedReference: true,
		SweepInterval: time.Hour,
		LockTTL:       10 * time.Second,
		LockWait:      2 * time.Second,
	}, db.NewTestDB(t), rdb)
	app.Bootstrap(context.Background(), a.Config, a.Repo)
	RegisterRoutes(a.Router, a)
	return a
}

func TestEquipmentWorkflowOverHTTP(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	_, mgrKey, err := a.Repo.CreateUser(ctx, db.UserInput{Username: "boss", IsManager: true})
	if err != nil {
		t.Fatal(err)
	}
	student, studentKey, err := a.Repo.CreateUser(ctx, db.UserInput{Username: "student"})
	if err != nil {
		t.Fatal(err)
	}

	anon := &client{t: t, router: a.Router}
	anon.expect(http.MethodGet, "/api/equipment", nil, http.StatusUnauthorized)
	anon.expect(http.MethodGet, "/healthz", nil, http.StatusOK)

	mgr := &client{t: t, router: a.Router}
	mgr.login("boss", mgrKey)
	me := mgr.expect(http.MethodGet, "/auth/whoami", nil, http.StatusOK)
	if me["user"].(map[string]any)["username"] != "boss" {
		t.Fatalf("whoami = %v", me)
	}

	cat := mgr.expect(http.MethodPost, "/api/categories", map[string]any{"name": "Oscilloscopes"}, http.StatusCreated)
	emp := mgr.expect(http.MethodPost, "/api/partners", map[string]any{"name": "Erin"}, http.StatusCreated)
	eq := mgr.expect(http.MethodPost, "/api/equipment", map[string]any{"name": "Scope", "categoryId": cat["id"]}, http.StatusCreated)
	eqID := eq["id"].(string)
	if eq["status"] != "available" || eq["holderType"] != "none" {
		t.Fatalf("created equipment = %v", eq)
	}

	mgr.expect(http.MethodPost, "/api/equipment/"+eqID+"/assign",
		map[string]any{"holderType": "robot", "employeeId": emp["id"]}, http.StatusBadRequest)
	mgr.expect(http.MethodPost, "/api/equipment/"+eqID+"/assign",
		map[string]any{"holderType": "employee"}, http.StatusBadRequest)
	mgr.expect(http.MethodPost, "/api/equipment/"+eqID+"/assign",
		map[string]any{"holderType": "employee", "employeeId": emp["id"]}, http.StatusOK)

	stu := &client{t: t, router: a.Router}
	stu.login("student", studentKey)
	stu.expect(http.MethodPost, "/api/equipment/"+eqID+"/borrow", map[string]any{"purpose": "lab"}, http.StatusConflict)
	stu.expect(http.MethodPost, "/api/equipment/"+eqID+"/unassign", nil, http.StatusForbidden)

	mgr.expect(http.MethodPost, "/api/equipment/"+eqID+"/unassign", nil, http.StatusOK)
	loan := stu.expect(http.MethodPost, "/api/equipment/"+eqID+"/borrow", map[string]any{"purpose": "lab"}, http.StatusCreated)
	if loan["status"] != "issued" || loan["borrowerId"] != student.ID {
		t.Fatalf("borrow = %v", loan)
	}

	due := time.Now().UTC().Add(48 * time.Hour)
	second := stu.expect(http.MethodPost, "/api/loans", map[string]any{
		"equipmentId": eqID,
		"borrowDate":  time.Now().UTC().Add(time.Hour),
		"dueDate":     due,
		"purpose":     "second",
	}, http.StatusCreated)
	stu.expect(http.MethodPost, "/api/loans/"+second["id"].(string)+"/approve", nil, http.StatusForbidden)
	conflict := mgr.expect(http.MethodPost, "/api/loans/"+second["id"].(string)+"/approve", nil, http.StatusConflict)
	if conflict["conflict"] != loan["name"] {
		t.Fatalf("conflict = %v, want %v", conflict["conflict"], loan["name"])
	}

	mgr.expect(http.MethodPost, "/api/loans/"+loan["id"].(string)+"/return", map[string]any{"conditionReturn": "shiny"}, http.StatusBadRequest)
	mgr.expect(http.MethodPost, "/api/loans/"+loan["id"].(string)+"/return", map[string]any{"conditionReturn": "fair"}, http.StatusOK)

	view := mgr.expect(http.MethodGet, "/api/equipment/"+eqID, nil, http.StatusOK)
	if view["status"] != "available" || view["condition"] != "fair" {
		t.Fatalf("equipment after return = %v", view)
	}
	msgs := mgr.expect(http.MethodGet, "/api/equipment/"+eqID+"/messages", nil, http.StatusOK)
	if items, _ := msgs["items"].([]any); len(items) < 3 {
		t.Fatalf("equipment history = %v", msgs)
	}

	mgr.expect(http.MethodGet, "/api/equipment/"+uuid.NewString(), nil, http.StatusNotFound)

	mgr.expect(http.MethodPost, "/auth/logout", nil, http.StatusOK)
	mgr.expect(http.MethodGet, "/api/equipment", nil, http.StatusUnauthorized)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApp(t)
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("go_goroutines")) {
		t.Fatalf("metrics = %d", w.Code)
	}
}

func TestLoanActionsScopedToBorrower(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	_, mgrKey, err := a.Repo.CreateUser(ctx, db.UserInput{Username: "boss", IsManager: true})
	if err != nil {
		t.Fatal(err)
	}
	_, studentKey, err := a.Repo.CreateUser(ctx, db.UserInput{Username: "student"})
	if err != nil {
		t.Fatal(err)
	}
	_, otherKey, err := a.Repo.CreateUser(ctx, db.UserInput{Username: "other"})
	if err != nil {
		t.Fatal(err)
	}

	mgr := &client{t: t, router: a.Router}
	mgr.login("boss", mgrKey)
	stu := &client{t: t, router: a.Router}
	stu.login("student", studentKey)
	other := &client{t: t, router: a.Router}
	other.login("other", otherKey)

	cat := mgr.expect(http.MethodPost, "/api/categories", map[string]any{"name": "Lasers", "requiresApproval": true}, http.StatusCreated)
	eq := mgr.expect(http.MethodPost, "/api/equipment", map[string]any{"name": "Laser", "categoryId": cat["id"]}, http.StatusCreated)

	draft := stu.expect(http.MethodPost, "/api/loans", map[string]any{
		"equipmentId": eq["id"],
		"borrowDate":  time.Now().UTC().Add(time.Hour),
		"dueDate":     time.Now().UTC().Add(24 * time.Hour),
		"purpose":     "alignment",
	}, http.StatusCreated)
	id := draft["id"].(string)

	stu.expect(http.MethodPost, "/api/loans/"+id+"/issue", nil, http.StatusForbidden)
	other.expect(http.MethodGet, "/api/loans/"+id, nil, http.StatusForbidden)
	other.expect(http.MethodGet, "/api/loans/"+id+"/messages", nil, http.StatusForbidden)
	other.expect(http.MethodPost, "/api/loans/"+id+"/submit", nil, http.StatusForbidden)
	other.expect(http.MethodPost, "/api/loans/"+id+"/cancel", nil, http.StatusForbidden)

	if got := stu.expect(http.MethodGet, "/api/loans/"+id, nil, http.StatusOK); got["status"] != "draft" {
		t.Fatalf("loan after rejected calls = %v", got["status"])
	}
	if got := stu.expect(http.MethodPost, "/api/loans/"+id+"/submit", nil, http.StatusOK); got["status"] != "pending" {
		t.Fatalf("submitted loan = %v", got["status"])
	}
	if got := stu.expect(http.MethodPost, "/api/loans/"+id+"/cancel", nil, http.StatusOK); got["status"] != "cancelled" {
		t.Fatalf("cancelled loan = %v", got["status"])
	}
}
