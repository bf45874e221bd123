package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/config"
	"familyhub-tracker/internal/export"
	"familyhub-tracker/internal/handlers"
	"familyhub-tracker/internal/middleware"
	"familyhub-tracker/internal/models"
	"familyhub-tracker/web"
)

func maskEmail(email string) string {
	runes := []rune(email)
	atIdx := -1
	for i, r := range runes {
		if r == '@' {
			atIdx = i
			break
		}
	}
	if atIdx <= 0 {
		return "***"
	}
	prefix := string(runes[:atIdx])
	domain := string(runes[atIdx:])
	if len(prefix) <= 2 {
		return prefix + "***" + domain
	}
	return string(runes[0:2]) + "***" + domain
}

// badge — <span class="badge bg-..."> с подписью значения перечисления.
func badge(field string, value any) template.HTML {
	d := models.DisplayFor(field, fmt.Sprint(value))
	return template.HTML(fmt.Sprintf(`<span class="badge bg-%s">%s</span>`,
		d.Severity, template.HTMLEscapeString(d.Label)))
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "—"
		}
		return t.Format("2006-01-02")
	case *time.Time:
		if t == nil || t.IsZero() {
			return "—"
		}
		return t.Format("2006-01-02")
	}
	return ""
}

// inputDate — значение для <input type="date">.
func inputDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatStamp(t time.Time) string { return t.Format("2006-01-02 15:04") }

func deref(v *int) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprint(*v)
}

// selectOptions — аргумент для шаблона "options".
type selectOptions struct {
	Selected string
	Choices  []models.Choice
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"maskEmail": maskEmail,
		"badge":     badge,
		"date":      formatDate,
		"inputDate": inputDate,
		"stamp":     formatStamp,
		"deref":     deref,
		"pct":       func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"join":      strings.Join,
		"opts": func(selected any, choices []models.Choice) selectOptions {
			return selectOptions{Selected: fmt.Sprint(selected), Choices: choices}
		},
		"idOf": func(v *uint) uint {
			if v == nil {
				return 0
			}
			return *v
		},
	}
}

// Deps — всё, что роутеру нужно кроме конфига.
type Deps struct {
	Logger zerolog.Logger
	Clock  clock.Clock
}

func NewRouter(cfg *config.Config, d Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Logger))

	handlers.Configure(handlers.Options{
		Clock:     d.Clock,
		MediaRoot: cfg.MediaRoot,
		Exports:   export.NewRegistry(cfg.ExportExcelEnabled),
		Logger:    d.Logger,
	})

	tmpl, err := template.New("").Funcs(funcMap()).ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, fmt.Errorf("static files: %w", err)
	}
	r.StaticFS("/static", http.FS(static))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 14 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("familyhub_session", store))

	r.Use(middleware.InjectUser())

	// AUTH
	r.GET("/register", handlers.ShowRegister)
	r.POST("/register", handlers.Register)
	r.GET("/login", handlers.ShowLogin)
	r.POST("/login", handlers.Login)
	r.GET("/logout", handlers.Logout)

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth())

	// удаление и массовые операции только у менеджера
	manager := middleware.RequireRole(models.RoleManager)

	// ДАШБОРД И ПОИСК
	auth.GET("/", handlers.Dashboard)
	auth.GET("/search", handlers.SearchPage)

	// ПРОЕКТЫ — создание, правка и удаление только у менеджера
	auth.GET("/projects", handlers.ListProjects)
	auth.GET("/projects/new", manager, handlers.ShowNewProject)
	auth.POST("/projects/new", manager, handlers.CreateProject)
	auth.GET("/projects/:id", handlers.ShowProject)
	auth.GET("/projects/:id/history", handlers.ProjectHistory)
	auth.GET("/projects/:id/edit", manager, handlers.ShowEditProject)
	auth.POST("/projects/:id/edit", manager, handlers.UpdateProject)
	auth.GET("/projects/:id/delete", manager, handlers.ConfirmDeleteProject)
	auth.POST("/projects/:id/delete", manager, handlers.DeleteProject)

	// ПРИЛОЖЕНИЯ
	auth.GET("/applications", handlers.ListApplications)
	auth.GET("/applications/new", handlers.ShowNewApplication)
	auth.POST("/applications/new", handlers.CreateApplication)
	auth.GET("/applications/:id", handlers.ShowApplication)
	auth.GET("/applications/:id/edit", handlers.ShowEditApplication)
	auth.POST("/applications/:id/edit", handlers.UpdateApplication)
	auth.GET("/applications/:id/delete", manager, handlers.ConfirmDeleteApplication)
	auth.POST("/applications/:id/delete", manager, handlers.DeleteApplication)

	// ЗАДАЧИ
	auth.GET("/tasks", handlers.ListTasks)
	auth.POST("/tasks/bulk", manager, handlers.BulkTasksForm)
	auth.GET("/tasks/new", handlers.ShowNewTask)
	auth.POST("/tasks/new", handlers.CreateTask)
	auth.GET("/tasks/:id", handlers.ShowTask)
	auth.GET("/tasks/:id/edit", handlers.ShowEditTask)
	auth.POST("/tasks/:id/edit", handlers.UpdateTask)
	auth.GET("/tasks/:id/delete", manager, handlers.ConfirmDeleteTask)
	auth.POST("/tasks/:id/delete", manager, handlers.DeleteTask)

	// АРТЕФАКТЫ
	auth.GET("/artifacts", handlers.ListArtifacts)
	auth.GET("/artifacts/new", handlers.ShowNewArtifact)
	auth.POST("/artifacts/new", handlers.CreateArtifact)
	auth.GET("/artifacts/:id", handlers.ShowArtifact)
	auth.GET("/artifacts/:id/download", handlers.DownloadArtifact)
	auth.GET("/artifacts/:id/edit", handlers.ShowEditArtifact)
	auth.POST("/artifacts/:id/edit", handlers.UpdateArtifact)
	auth.GET("/artifacts/:id/delete", manager, handlers.ConfirmDeleteArtifact)
	auth.POST("/artifacts/:id/delete", manager, handlers.DeleteArtifact)

	// РЕШЕНИЯ
	auth.GET("/decisions", handlers.ListDecisions)
	auth.GET("/decisions/new", handlers.ShowNewDecision)
	auth.POST("/decisions/new", handlers.CreateDecision)
	auth.GET("/decisions/:id", handlers.ShowDecision)
	auth.GET("/decisions/:id/edit", handlers.ShowEditDecision)
	auth.POST("/decisions/:id/edit", handlers.UpdateDecision)
	auth.GET("/decisions/:id/delete", manager, handlers.ConfirmDeleteDecision)
	auth.POST("/decisions/:id/delete", manager, handlers.DeleteDecision)

	// ИНТЕГРАЦИИ
	auth.GET("/integrations", handlers.ListIntegrations)
	auth.GET("/integrations/new", handlers.ShowNewIntegration)
	auth.POST("/integrations/new", handlers.CreateIntegration)
	auth.GET("/integrations/:id", handlers.ShowIntegration)
	auth.GET("/integrations/:id/edit", handlers.ShowEditIntegration)
	auth.POST("/integrations/:id/edit", handlers.UpdateIntegration)
	auth.GET("/integrations/:id/delete", manager, handlers.ConfirmDeleteIntegration)
	auth.POST("/integrations/:id/delete", manager, handlers.DeleteIntegration)

	// ЖУРНАЛ
	auth.GET("/activity", manager, handlers.ListActivity)

	// API
	api := r.Group("/api")
	api.Use(middleware.RequireAPIAuth())

	api.GET("/dashboard", handlers.APIDashboard)
	api.GET("/stats", handlers.APIStats)
	api.GET("/chart-data", handlers.APIChartData)
	api.GET("/projects/:id/progress", handlers.APIProjectProgress)
	api.GET("/projects/:id/statistics", handlers.APIProjectStatistics)
	api.GET("/widgets/project-health", handlers.WidgetProjectHealth)
	api.GET("/widgets/overdue-tasks", handlers.WidgetOverdueTasks)
	api.GET("/widgets/recent-activity", handlers.WidgetRecentActivity)
	api.POST("/tasks/bulk", middleware.RequireAPIRole(models.RoleManager), handlers.APIBulkTasks)
	api.POST("/tasks/:id/status", handlers.APITaskStatus)
	api.GET("/search", handlers.APISearch)
	api.GET("/search/suggestions", handlers.APISearchSuggestions)
	api.GET("/export", handlers.APIExport)
	api.GET("/preferences", handlers.GetPreferences)
	api.POST("/preferences", handlers.SavePreferences)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r, nil
}
