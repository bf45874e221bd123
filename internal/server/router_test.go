package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/config"
	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/models"
	"familyhub-tracker/internal/seed"
	"familyhub-tracker/internal/testutil"
)

const testPassword = "secret123"

type client struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func (c *client) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, path, nil, "")
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (c *client) postJSON(path string, payload any) *httptest.ResponseRecorder {
	c.t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(c.t, err)
	return c.do(http.MethodPost, path, bytes.NewReader(b), "application/json")
}

func (c *client) login(username string) {
	c.t.Helper()
	w := c.postForm("/login", url.Values{"username": {username}, "password": {testPassword}})
	require.Equal(c.t, http.StatusFound, w.Code, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type env struct {
	db        *gorm.DB
	c         *client
	mediaRoot string
}

func setup(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	database.DB = db

	cfg := &config.Config{
		SessionSecret:      "0123456789abcdef0123456789abcdef",
		MediaRoot:          t.TempDir(),
		ExportDir:          t.TempDir(),
		ExportExcelEnabled: false,
	}
	r, err := NewRouter(cfg, Deps{Logger: zerolog.Nop(), Clock: clock.Fixed{At: testutil.Today}})
	require.NoError(t, err)

	return &env{db: db, c: &client{t: t, h: r, cookies: map[string]*http.Cookie{}}, mediaRoot: cfg.MediaRoot}
}

func (e *env) user(t *testing.T, name string, role models.UserRole) models.User {
	t.Helper()
	u := testutil.User(t, e.db, name, role)
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.db.Model(&u).Update("password_hash", string(hash)).Error)
	return u
}

func (e *env) seed(t *testing.T) {
	t.Helper()
	_, err := seed.Run(e.db, clock.Fixed{At: testutil.Today}, zerolog.Nop(), seed.Options{User: "owner"})
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	e := setup(t)
	w := e.c.get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestAnonymousAccess(t *testing.T) {
	e := setup(t)

	w := e.c.get("/tasks?status=pending")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next="+url.QueryEscape("/tasks?status=pending"), w.Header().Get("Location"))

	w = e.c.get("/api/dashboard")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = e.c.get("/login")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "</html>")
}

func TestLogin(t *testing.T) {
	e := setup(t)
	e.user(t, "dev", models.RoleDeveloper)

	w := e.c.postForm("/login", url.Values{"username": {"dev"}, "password": {"wrong-one"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")

	w = e.c.postForm("/login", url.Values{"username": {"dev"}, "password": {testPassword}, "next": {"/tasks"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/tasks", w.Header().Get("Location"))

	w = e.c.get("/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dashboard")

	e.c.get("/logout")
	w = e.c.get("/")
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestLoginIgnoresExternalNext(t *testing.T) {
	e := setup(t)
	e.user(t, "dev", models.RoleDeveloper)

	w := e.c.postForm("/login", url.Values{"username": {"dev"}, "password": {testPassword}, "next": {"//evil.example"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestRegister(t *testing.T) {
	e := setup(t)

	w := e.c.postForm("/register", url.Values{
		"username": {"tester1"}, "email": {"tester1@example.com"},
		"password": {"secret12"}, "role": {"manager"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "manager cannot self-register")

	w = e.c.postForm("/register", url.Values{
		"username": {"tester1"}, "email": {"tester1@example.com"},
		"password": {"secret12"}, "role": {"tester"},
	})
	assert.Equal(t, http.StatusFound, w.Code)

	var u models.User
	require.NoError(t, e.db.Where("username = ?", "tester1").First(&u).Error)
	assert.Equal(t, models.RoleTester, u.Role)
}

func TestPagesRender(t *testing.T) {
	e := setup(t)
	e.seed(t)
	e.user(t, "boss", models.RoleManager)
	e.c.login("boss")

	pages := []string{
		"/", "/?project=1&date_range=7",
		"/projects", "/projects?status=active&q=family", "/projects/1", "/projects/1/history",
		"/projects/new", "/projects/1/edit", "/projects/1/delete",
		"/applications", "/applications?project=1&status=production", "/applications/1",
		"/applications/new?project=1", "/applications/1/edit", "/applications/1/delete",
		"/tasks", "/tasks?overdue=1&project=1&priority=high", "/tasks/1",
		"/tasks/new?application=1", "/tasks/1/edit", "/tasks/1/delete",
		"/artifacts", "/artifacts?type=documentation", "/artifacts/1",
		"/artifacts/new", "/artifacts/1/edit", "/artifacts/1/delete",
		"/decisions", "/decisions?status=pending", "/decisions/1",
		"/decisions/new?project=1", "/decisions/1/edit", "/decisions/1/delete",
		"/integrations", "/integrations?complexity=high", "/integrations/1",
		"/integrations/new?from=1", "/integrations/1/edit", "/integrations/1/delete",
		"/search", "/search?q=time", "/search?q=invoice&type=tasks&project=1",
		"/activity", "/activity?entity=project",
	}
	for _, p := range pages {
		w := e.c.get(p)
		assert.Equal(t, http.StatusOK, w.Code, p)
		assert.Contains(t, w.Body.String(), "</html>", "page %s rendered completely", p)
	}
}

func TestMissingRecordPage(t *testing.T) {
	e := setup(t)
	e.user(t, "dev", models.RoleDeveloper)
	e.c.login("dev")

	w := e.c.get("/tasks/404")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Error 404")

	w = e.c.get("/tasks/abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectManagementIsManagerOnly(t *testing.T) {
	e := setup(t)
	e.user(t, "dev", models.RoleDeveloper)
	e.c.login("dev")

	assert.Equal(t, http.StatusForbidden, e.c.get("/projects/new").Code)
	assert.Equal(t, http.StatusForbidden, e.c.get("/activity").Code)
	assert.Equal(t, http.StatusOK, e.c.get("/projects").Code)
}

func TestDeleteAndBulkAreManagerOnly(t *testing.T) {
	e := setup(t)
	e.seed(t)
	e.user(t, "dev", models.RoleDeveloper)
	e.c.login("dev")

	for _, kind := range []string{"applications", "tasks", "artifacts", "decisions", "integrations"} {
		assert.Equal(t, http.StatusForbidden, e.c.get("/"+kind+"/1/delete").Code, kind)
		assert.Equal(t, http.StatusForbidden, e.c.postForm("/"+kind+"/1/delete", nil).Code, kind)
	}

	var tasks int64
	e.db.Model(&models.Task{}).Count(&tasks)
	assert.EqualValues(t, 44, tasks, "nothing deleted")

	w := e.c.postJSON("/api/tasks/bulk", map[string]any{"task_ids": []uint{1}, "action": "complete"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = e.c.postForm("/tasks/bulk", url.Values{"task_ids": {"1"}, "action": {"complete"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var before models.Task
	require.NoError(t, e.db.First(&before, 1).Error)
	assert.NotEqual(t, models.TaskCompleted, before.Status)

	w = e.c.get("/tasks/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "/tasks/1/delete")
	assert.NotContains(t, e.c.get("/tasks").Body.String(), `name="task_ids"`)
}

func TestMoveApplicationUnlinksDecisions(t *testing.T) {
	e := setup(t)
	e.user(t, "dev", models.RoleDeveloper)
	e.c.login("dev")

	p1 := testutil.Project(t, e.db, "FamilyHub")
	p2 := testutil.Project(t, e.db, "Household")
	a := testutil.Application(t, e.db, p1.ID, "Timesheet")
	d := testutil.Decision(t, e.db, p1.ID, "Use PostgreSQL", func(d *models.Decision) { d.ApplicationID = &a.ID })

	w := e.c.postForm("/applications/"+idString(a.ID)+"/edit", url.Values{
		"project_id": {idString(p2.ID)}, "name": {"Timesheet"},
		"status": {"planning"}, "complexity": {"medium"}, "estimated_weeks": {"4"},
	})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	var moved models.Application
	require.NoError(t, e.db.First(&moved, a.ID).Error)
	assert.Equal(t, p2.ID, moved.ProjectID)

	var got models.Decision
	require.NoError(t, e.db.First(&got, d.ID).Error)
	assert.Equal(t, p1.ID, got.ProjectID)
	assert.Nil(t, got.ApplicationID)

	w = e.c.get("/api/export?project=" + idString(p1.ID) + "&include=decisions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"Timesheet"`)
}

func TestMalformedFormBody(t *testing.T) {
	e := setup(t)
	e.user(t, "dev", models.RoleDeveloper)
	e.c.login("dev")

	w := e.c.do(http.MethodPost, "/tasks/new", strings.NewReader("title=%zz&status=pending"),
		"application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid form")

	var n int64
	e.db.Model(&models.Task{}).Count(&n)
	assert.Zero(t, n)
}

func TestCreateProject(t *testing.T) {
	e := setup(t)
	e.user(t, "boss", models.RoleManager)
	e.c.login("boss")

	w := e.c.postForm("/projects/new", url.Values{
		"name": {"Budget"}, "status": {"planning"},
		"start_date": {"2026-11-01"}, "target_date": {"2026-10-01"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "alert-danger")

	w = e.c.postForm("/projects/new", url.Values{
		"name": {"Budget"}, "status": {"planning"},
		"start_date": {"2026-10-01"}, "target_date": {"2026-12-01"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/projects/"))

	var p models.Project
	require.NoError(t, e.db.Where("name = ?", "Budget").First(&p).Error)
	require.NotNil(t, p.OwnerID)

	var logs int64
	e.db.Model(&models.ActivityLog{}).Where("entity = ? AND entity_id = ?", "project", p.ID).Count(&logs)
	assert.EqualValues(t, 1, logs)

	w = e.c.postForm("/projects/new", url.Values{"name": {"Budget"}, "status": {"planning"}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "duplicate name")
}

func TestDeleteProjectCascades(t *testing.T) {
	e := setup(t)
	e.seed(t)
	e.user(t, "boss", models.RoleManager)
	e.c.login("boss")

	w := e.c.postForm("/projects/1/delete", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/projects", w.Header().Get("Location"))

	for _, m := range []any{&models.Application{}, &models.Task{}, &models.Decision{}, &models.Integration{}} {
		var n int64
		require.NoError(t, e.db.Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}
}

func TestCreateIntegrationValidation(t *testing.T) {
	e := setup(t)
	e.user(t, "dev", models.RoleDeveloper)
	e.c.login("dev")

	p1 := testutil.Project(t, e.db, "FamilyHub")
	p2 := testutil.Project(t, e.db, "Other")
	a := testutil.Application(t, e.db, p1.ID, "Timesheet")
	b := testutil.Application(t, e.db, p1.ID, "Daycare")
	x := testutil.Application(t, e.db, p2.ID, "Elsewhere")

	form := func(from, to uint) url.Values {
		return url.Values{
			"from_app_id": {idString(from)}, "to_app_id": {idString(to)},
			"integration_type": {"data-sharing"}, "status": {"planned"},
			"complexity": {"high"}, "estimated_weeks": {"2"},
		}
	}

	w := e.c.postForm("/integrations/new", form(a.ID, a.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cannot be the same")

	w = e.c.postForm("/integrations/new", form(a.ID, x.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "same project")

	w = e.c.postForm("/integrations/new", form(a.ID, b.ID))
	require.Equal(t, http.StatusFound, w.Code)

	var it models.Integration
	require.NoError(t, e.db.First(&it).Error)
	assert.Equal(t, models.IntegrationComplex, it.Complexity)

	w = e.c.postForm("/integrations/new", form(a.ID, b.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
}

func TestTaskStatusAPI(t *testing.T) {
	e := setup(t)
	e.user(t, "dev", models.RoleDeveloper)
	e.c.login("dev")

	p := testutil.Project(t, e.db, "FamilyHub")
	a := testutil.Application(t, e.db, p.ID, "Timesheet")
	task := testutil.Task(t, e.db, a.ID, "Write tests", models.TaskPending)
	path := "/api/tasks/" + idString(task.ID) + "/status"

	w := e.c.postJSON(path, map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = e.c.postJSON(path, map[string]string{"status": "in-progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "In Progress", body["status_label"])

	var got models.Task
	require.NoError(t, e.db.First(&got, task.ID).Error)
	assert.Equal(t, models.TaskInProgress, got.Status)

	var logs int64
	e.db.Model(&models.ActivityLog{}).Where("entity = ? AND action = ?", "task", "status_change").Count(&logs)
	assert.EqualValues(t, 1, logs)

	w = e.c.postJSON("/api/tasks/999/status", map[string]string{"status": "in-progress"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBulkAPI(t *testing.T) {
	e := setup(t)
	e.user(t, "boss", models.RoleManager)
	e.c.login("boss")

	p := testutil.Project(t, e.db, "FamilyHub")
	a := testutil.Application(t, e.db, p.ID, "Timesheet")
	t1 := testutil.Task(t, e.db, a.ID, "One", models.TaskPending)
	t2 := testutil.Task(t, e.db, a.ID, "Two", models.TaskBlocked)

	w := e.c.postJSON("/api/tasks/bulk", map[string]any{"task_ids": []uint{t1.ID, t2.ID}, "action": "complete"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["affected_count"])

	var completed int64
	e.db.Model(&models.Task{}).Where("status = ?", models.TaskCompleted).Count(&completed)
	assert.EqualValues(t, 2, completed)

	w = e.c.postJSON("/api/tasks/bulk", map[string]any{"task_ids": []uint{t1.ID}, "action": "priority", "value": "urgent"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestBulkForm(t *testing.T) {
	e := setup(t)
	e.user(t, "boss", models.RoleManager)
	e.c.login("boss")

	p := testutil.Project(t, e.db, "FamilyHub")
	a := testutil.Application(t, e.db, p.ID, "Timesheet")
	t1 := testutil.Task(t, e.db, a.ID, "One", models.TaskPending)
	t2 := testutil.Task(t, e.db, a.ID, "Two", models.TaskPending)

	w := e.c.postForm("/tasks/bulk", url.Values{
		"task_ids": {idString(t1.ID), idString(t2.ID)},
		"action":   {"priority"},
		"value":    {"critical"},
		"next":     {"/tasks?status=pending"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/tasks?status=pending", w.Header().Get("Location"))

	var critical int64
	e.db.Model(&models.Task{}).Where("priority = ?", models.PriorityCritical).Count(&critical)
	assert.EqualValues(t, 2, critical)

	w = e.c.get("/tasks")
	assert.Contains(t, w.Body.String(), "alert-success", "flash shown after redirect")
}

func TestExportAPI(t *testing.T) {
	e := setup(t)
	e.seed(t)
	e.user(t, "dev", models.RoleDeveloper)
	e.c.login("dev")

	w := e.c.get("/api/export?project=1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "familyhub_export_20261015_000000.json")

	var doc struct {
		ExportInfo struct {
			Project      string   `json:"project"`
			IncludeTypes []string `json:"include_types"`
		} `json:"export_info"`
		Data map[string][]map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "FamilyHub", doc.ExportInfo.Project)
	assert.Len(t, doc.ExportInfo.IncludeTypes, 6)
	assert.Len(t, doc.Data["tasks"], 44)
	assert.Len(t, doc.Data["applications"], 7)

	w = e.c.get("/api/export?format=csv&include=tasks")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "familyhub_export_20261015_000000_tasks.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "id,title,description,status"))
	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 45)

	assert.Equal(t, http.StatusNotImplemented, e.c.get("/api/export?format=excel").Code)
	assert.Equal(t, http.StatusBadRequest, e.c.get("/api/export?format=pdf").Code)
	assert.Equal(t, http.StatusBadRequest, e.c.get("/api/export?include=requirements").Code)
	assert.Equal(t, http.StatusNotFound, e.c.get("/api/export?project=999").Code)
}

func TestSearchAPI(t *testing.T) {
	e := setup(t)
	e.seed(t)
	e.user(t, "dev", models.RoleDeveloper)
	e.c.login("dev")

	w := e.c.get("/api/search?q=e")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Results []struct {
			Type  string `json:"type"`
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"results"`
		Total int `json:"total_results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Results)
	assert.Equal(t, len(body.Results), body.Total)

	perType := map[string]int{}
	for _, r := range body.Results {
		perType[r.Type]++
		assert.NotEmpty(t, r.URL)
	}
	for typ, n := range perType {
		assert.LessOrEqual(t, n, 5, typ)
	}

	assert.Equal(t, http.StatusBadRequest, e.c.get("/api/search?q=x&type=bogus").Code)

	w = e.c.get("/api/search/suggestions?q=Time")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "App: Timesheet Tracker")
}

func TestDashboardAPI(t *testing.T) {
	e := setup(t)
	e.seed(t)
	e.user(t, "dev", models.RoleDeveloper)
	e.c.login("dev")

	w := e.c.get("/api/dashboard?date_range=7")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 44, stats["total_tasks"])
	assert.EqualValues(t, 7, body["date_range"])

	assert.Equal(t, http.StatusNotFound, e.c.get("/api/projects/999/progress").Code)
	assert.Equal(t, http.StatusBadRequest, e.c.get("/api/projects/abc/statistics").Code)
	assert.Equal(t, http.StatusOK, e.c.get("/api/projects/1/statistics").Code)
	assert.Equal(t, http.StatusOK, e.c.get("/api/chart-data?type=project_status").Code)
	assert.Equal(t, http.StatusOK, e.c.get("/api/widgets/overdue-tasks").Code)
	assert.Equal(t, http.StatusOK, e.c.get("/api/stats").Code)
}

func TestPreferences(t *testing.T) {
	e := setup(t)
	e.user(t, "dev", models.RoleDeveloper)
	e.c.login("dev")

	w := e.c.get("/api/preferences")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "light", decode(t, w)["preferences"].(map[string]any)["theme"])

	w = e.c.postJSON("/api/preferences", map[string]string{"theme": "neon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.c.postJSON("/api/preferences", map[string]string{"theme": "dark"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.c.get("/")
	assert.Contains(t, w.Body.String(), `data-bs-theme="dark"`)
}

func TestRequestID(t *testing.T) {
	e := setup(t)

	w := e.c.get("/health")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	e.c.h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func idString(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestArtifactUploadRemovedWhenSaveFails(t *testing.T) {
	e := setup(t)
	e.user(t, "dev", models.RoleDeveloper)
	e.c.login("dev")

	a := testutil.Artifact(t, e.db, nil, "API Documentation")

	require.NoError(t, e.db.Callback().Update().Before("gorm:update").Register("test:fail_artifacts", func(tx *gorm.DB) {
		if tx.Statement.Table == "artifacts" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"name": "API Documentation", "type": "documentation", "status": "draft", "version": "1.0",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", "notes.md")
	require.NoError(t, err)
	_, err = fw.Write([]byte("# notes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := e.c.do(http.MethodPost, "/artifacts/"+idString(a.ID)+"/edit", &body, mw.FormDataContentType())
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	files, err := os.ReadDir(filepath.Join(e.mediaRoot, "artifacts"))
	if !os.IsNotExist(err) {
		require.NoError(t, err)
	}
	assert.Empty(t, files, "uploaded file left behind")

	var got models.Artifact
	require.NoError(t, e.db.First(&got, a.ID).Error)
	assert.Empty(t, got.FilePath)
}
