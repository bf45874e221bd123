package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/metrics"
	"familyhub-tracker/internal/models"
)

//
// СПИСОК ПРИЛОЖЕНИЙ
//

func ListApplications(c *gin.Context) {
	projectStr := c.Query("project")
	statusStr := c.Query("status")
	complexityStr := c.Query("complexity")

	dbq := database.DB.Preload("Project").Order("name asc")
	projectID := optionalID(projectStr)
	if projectID != nil {
		dbq = dbq.Where("project_id = ?", *projectID)
	}
	if statusStr != "" {
		dbq = dbq.Where("status = ?", statusStr)
	}
	if complexityStr != "" {
		dbq = dbq.Where("complexity = ?", complexityStr)
	}

	var apps []models.Application
	if err := dbq.Find(&apps).Error; err != nil {
		pageError(c, errs.Wrap(err, "load applications"))
		return
	}
	counts, err := reports().ApplicationTaskCounts(projectID)
	if err != nil {
		pageError(c, err)
		return
	}

	type row struct {
		App      models.Application
		Progress float64
		Tasks    int64
		Overdue  int64
	}
	rows := make([]row, len(apps))
	for i, a := range apps {
		tc := counts[a.ID]
		rows[i] = row{App: a, Progress: tc.Completion(), Tasks: tc.Total, Overdue: tc.Overdue}
	}

	var projects []models.Project
	database.DB.Order("name asc").Find(&projects)

	render(c, http.StatusOK, "applications_list.html", gin.H{
		"apps":             rows,
		"projects":         projects,
		"statuses":         models.ApplicationStatusChoices,
		"complexities":     models.AppComplexityChoices,
		"FilterProject":    projectStr,
		"FilterStatus":     statusStr,
		"FilterComplexity": complexityStr,
	})
}

//
// КАРТОЧКА ПРИЛОЖЕНИЯ
//

func ShowApplication(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	app, err := database.FindByID[models.Application](database.DB, id, "Project")
	if err != nil {
		pageError(c, err)
		return
	}

	var tasks []models.Task
	database.DB.Where("application_id = ?", id).Order("due_date IS NULL, due_date asc, id").Find(&tasks)

	var artifacts []models.Artifact
	database.DB.Where("application_id = ?", id).Order("updated_at desc").Find(&artifacts)

	var decisions []models.Decision
	database.DB.Where("application_id = ?", id).Order("created_at desc").Find(&decisions)

	var outgoing, incoming []models.Integration
	database.DB.Preload("ToApp").Where("from_app_id = ?", id).Find(&outgoing)
	database.DB.Preload("FromApp").Where("to_app_id = ?", id).Find(&incoming)

	now := today()
	var completed, overdue int64
	for _, t := range tasks {
		if t.Status == models.TaskCompleted {
			completed++
		}
		if metrics.TaskIsOverdue(t, now) {
			overdue++
		}
	}

	render(c, http.StatusOK, "application_detail.html", gin.H{
		"app":          app,
		"tasks":        tasks,
		"artifacts":    artifacts,
		"decisions":    decisions,
		"outgoing":     outgoing,
		"incoming":     incoming,
		"progress":     metrics.CompletionPercentage(completed, int64(len(tasks))),
		"overdue":      overdue,
		"daysToTarget": metrics.ApplicationDaysToTarget(app.CreatedAt, app.EstimatedWeeks, now),
		"today":        now,
	})
}

//
// СОЗДАНИЕ / РЕДАКТИРОВАНИЕ
//

type applicationForm struct {
	ProjectID      string `form:"project_id"`
	Name           string `form:"name"`
	Description    string `form:"description"`
	Status         string `form:"status"`
	Complexity     string `form:"complexity"`
	EstimatedWeeks string `form:"estimated_weeks"`
	Features       string `form:"features"`
}

func (f applicationForm) apply(a *models.Application) error {
	weeks, err := optionalInt("estimated_weeks", f.EstimatedWeeks)
	if err != nil {
		return err
	}
	if pid := optionalID(f.ProjectID); pid != nil {
		a.ProjectID = *pid
	} else {
		a.ProjectID = 0
	}
	a.Name = f.Name
	a.Description = strings.TrimSpace(f.Description)
	a.Status = models.ApplicationStatus(f.Status)
	a.Complexity = models.AppComplexity(f.Complexity)
	a.EstimatedWeeks = 0
	if weeks != nil {
		a.EstimatedWeeks = *weeks
	}
	a.Features = models.ParseFeatures(f.Features)
	if err := a.Validate(); err != nil {
		return err
	}

	var exists int64
	database.DB.Model(&models.Project{}).Where("id = ?", a.ProjectID).Count(&exists)
	if exists == 0 {
		return errs.Invalid("project_id", "project not found")
	}
	if nameTaken[models.Application](a.ID, "project_id = ? AND name = ?", a.ProjectID, a.Name) {
		return errs.Invalid("name", "an application with this name already exists in the project")
	}
	return nil
}

func renderApplicationForm(c *gin.Context, status int, app models.Application, err error) {
	var projects []models.Project
	database.DB.Order("name asc").Find(&projects)

	data := gin.H{
		"app":          app,
		"features":     strings.Join(app.Features, "\n"),
		"projects":     projects,
		"statuses":     models.ApplicationStatusChoices,
		"complexities": models.AppComplexityChoices,
		"isNew":        app.ID == 0,
	}
	if err != nil {
		data["error"] = errs.Message(err)
	}
	render(c, status, "application_form.html", data)
}

func ShowNewApplication(c *gin.Context) {
	app := models.Application{Status: models.AppPlanning, Complexity: models.AppMedium, EstimatedWeeks: models.AppMedium.DefaultWeeks()}
	if pid := optionalID(c.Query("project")); pid != nil {
		app.ProjectID = *pid
	}
	renderApplicationForm(c, http.StatusOK, app, nil)
}

func CreateApplication(c *gin.Context) {
	var form applicationForm
	if err := bindForm(c, &form); err != nil {
		renderApplicationForm(c, http.StatusBadRequest, models.Application{}, err)
		return
	}

	var app models.Application
	if err := form.apply(&app); err != nil {
		renderApplicationForm(c, http.StatusBadRequest, app, err)
		return
	}
	if err := database.DB.Create(&app).Error; err != nil {
		renderApplicationForm(c, http.StatusInternalServerError, app, errs.Invalid("", "could not save application"))
		return
	}

	database.CreateActivityLog(currentUserID(c), "application", app.ID, &app.ProjectID, "create", "Created application "+app.Name)
	flash(c, "Application created")
	c.Redirect(http.StatusFound, "/applications/"+idStr(app.ID))
}

func ShowEditApplication(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	app, err := database.FindByID[models.Application](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	renderApplicationForm(c, http.StatusOK, *app, nil)
}

func UpdateApplication(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	app, err := database.FindByID[models.Application](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}

	var form applicationForm
	if err := bindForm(c, &form); err != nil {
		renderApplicationForm(c, http.StatusBadRequest, *app, err)
		return
	}
	oldProject := app.ProjectID
	if err := form.apply(app); err != nil {
		renderApplicationForm(c, http.StatusBadRequest, *app, err)
		return
	}
	if app.ProjectID != oldProject {
		// интеграции не могут пересекать границу проекта
		var edges int64
		database.DB.Model(&models.Integration{}).Where("from_app_id = ? OR to_app_id = ?", app.ID, app.ID).Count(&edges)
		if edges > 0 {
			renderApplicationForm(c, http.StatusBadRequest, *app,
				errs.Invalid("project_id", "remove the application's integrations before moving it to another project"))
			return
		}
	}

	var detached int64
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if app.ProjectID != oldProject {
			// решения старого проекта теряют ссылку на переехавшее приложение
			res := tx.Model(&models.Decision{}).
				Where("application_id = ? AND project_id <> ?", app.ID, app.ProjectID).
				Update("application_id", gorm.Expr("NULL"))
			if res.Error != nil {
				return errs.Wrap(res.Error, "detach decisions")
			}
			detached = res.RowsAffected
		}
		return tx.Save(app).Error
	})
	if err != nil {
		deps.Logger.Error().Err(err).Uint("application_id", app.ID).Msg("update application failed")
		renderApplicationForm(c, http.StatusInternalServerError, *app, errs.Invalid("", "could not save application"))
		return
	}

	details := "Updated application " + app.Name
	if detached > 0 {
		details += fmt.Sprintf(" (moved, %d decision(s) unlinked)", detached)
	}
	database.CreateActivityLog(currentUserID(c), "application", app.ID, &app.ProjectID, "update", details)
	flash(c, "Application updated")
	c.Redirect(http.StatusFound, "/applications/"+idStr(app.ID))
}

//
// УДАЛЕНИЕ
//

func ConfirmDeleteApplication(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	app, err := database.FindByID[models.Application](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}

	var tasks, artifacts int64
	database.DB.Model(&models.Task{}).Where("application_id = ?", id).Count(&tasks)
	database.DB.Model(&models.Artifact{}).Where("application_id = ?", id).Count(&artifacts)

	render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"kind":    "application",
		"name":    app.Name,
		"action":  "/applications/" + idStr(id) + "/delete",
		"cancel":  "/applications/" + idStr(id),
		"warning": fmt.Sprintf("This also deletes %d task(s), %d artifact(s) and the application's integrations.", tasks, artifacts),
	})
}

func DeleteApplication(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	app, err := database.FindByID[models.Application](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}

	files, err := database.DeleteApplication(database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	removeFiles(files)

	database.CreateActivityLog(currentUserID(c), "application", id, &app.ProjectID, "delete", "Deleted application "+app.Name)
	flash(c, "Application deleted")
	c.Redirect(http.StatusFound, "/projects/"+idStr(app.ProjectID))
}
