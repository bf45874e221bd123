package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/metrics"
	"familyhub-tracker/internal/models"
)

//
// СПИСОК ИНТЕГРАЦИЙ
//

type integrationRow struct {
	Integration    models.Integration
	EstimatedHours int
}

func ListIntegrations(c *gin.Context) {
	filter := map[string]string{
		"project":    c.Query("project"),
		"status":     c.Query("status"),
		"type":       c.Query("type"),
		"complexity": c.Query("complexity"),
	}

	dbq := database.DB.Preload("FromApp.Project").Preload("ToApp").Order("created_at desc")
	if pid := optionalID(filter["project"]); pid != nil {
		dbq = dbq.Where("from_app_id IN (?)",
			database.DB.Model(&models.Application{}).Select("id").Where("project_id = ?", *pid))
	}
	if v := filter["status"]; v != "" {
		dbq = dbq.Where("status = ?", v)
	}
	if v := filter["type"]; v != "" {
		dbq = dbq.Where("integration_type = ?", v)
	}
	if v := filter["complexity"]; v != "" {
		dbq = dbq.Where("complexity = ?", models.IntegrationComplexity(v).Normalize())
	}

	var items []models.Integration
	if err := dbq.Find(&items).Error; err != nil {
		pageError(c, errs.Wrap(err, "load integrations"))
		return
	}
	rows := make([]integrationRow, len(items))
	var totalHours int
	for i, it := range items {
		h := metrics.IntegrationEstimatedHours(it.EstimatedWeeks, it.Complexity)
		rows[i] = integrationRow{Integration: it, EstimatedHours: h}
		totalHours += h
	}

	var projects []models.Project
	database.DB.Order("name asc").Find(&projects)

	render(c, http.StatusOK, "integrations_list.html", gin.H{
		"integrations": rows,
		"totalHours":   totalHours,
		"projects":     projects,
		"statuses":     models.IntegrationStatusChoices,
		"types":        models.IntegrationTypeChoices,
		"complexities": models.IntegrationComplexityChoices,
		"filter":       filter,
	})
}

// Карточка: плюс зависимые интеграции — те, что продолжают цепочку
// (from = наш to) или ведут в неё (to = наш from).
func ShowIntegration(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	it, err := database.FindByID[models.Integration](database.DB, id, "FromApp.Project", "ToApp")
	if err != nil {
		pageError(c, err)
		return
	}

	var dependent []models.Integration
	database.DB.Preload("FromApp").Preload("ToApp").
		Where("id <> ?", it.ID).
		Where("from_app_id = ? OR to_app_id = ?", it.ToAppID, it.FromAppID).
		Order("id").
		Find(&dependent)

	render(c, http.StatusOK, "integration_detail.html", gin.H{
		"integration":    it,
		"estimatedHours": metrics.IntegrationEstimatedHours(it.EstimatedWeeks, it.Complexity),
		"multiplier":     metrics.ComplexityMultiplier(it.Complexity),
		"dependent":      dependent,
	})
}

//
// СОЗДАНИЕ / РЕДАКТИРОВАНИЕ
//

type integrationForm struct {
	FromAppID       string `form:"from_app_id"`
	ToAppID         string `form:"to_app_id"`
	IntegrationType string `form:"integration_type"`
	Status          string `form:"status"`
	Complexity      string `form:"complexity"`
	Description     string `form:"description"`
	EstimatedWeeks  string `form:"estimated_weeks"`
}

func loadEndpoint(field, raw string) (models.Application, error) {
	id := optionalID(raw)
	if id == nil {
		return models.Application{}, errs.Invalid(field, "select an application")
	}
	app, err := database.FindByID[models.Application](database.DB, *id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return models.Application{}, errs.Invalid(field, "application not found")
		}
		return models.Application{}, err
	}
	return *app, nil
}

func (f integrationForm) apply(it *models.Integration) error {
	weeks, err := optionalInt("estimated_weeks", f.EstimatedWeeks)
	if err != nil {
		return err
	}
	from, err := loadEndpoint("from_app_id", f.FromAppID)
	if err != nil {
		return err
	}
	to, err := loadEndpoint("to_app_id", f.ToAppID)
	if err != nil {
		return err
	}

	it.FromAppID, it.ToAppID = from.ID, to.ID
	it.FromApp, it.ToApp = models.Application{}, models.Application{}
	it.IntegrationType = models.IntegrationType(f.IntegrationType)
	it.Status = models.IntegrationStatus(f.Status)
	it.Complexity = models.IntegrationComplexity(f.Complexity)
	it.Description = strings.TrimSpace(f.Description)
	it.EstimatedWeeks = 0
	if weeks != nil {
		it.EstimatedWeeks = *weeks
	}
	if err := it.Validate(from, to); err != nil {
		return err
	}

	var dup int64
	database.DB.Model(&models.Integration{}).
		Where("from_app_id = ? AND to_app_id = ? AND integration_type = ? AND id <> ?", it.FromAppID, it.ToAppID, it.IntegrationType, it.ID).
		Count(&dup)
	if dup > 0 {
		return errs.Invalid("integration_type", "this integration already exists")
	}
	return nil
}

func renderIntegrationForm(c *gin.Context, status int, it models.Integration, err error) {
	var apps []models.Application
	database.DB.Preload("Project").Order("name asc").Find(&apps)

	data := gin.H{
		"integration":  it,
		"apps":         apps,
		"types":        models.IntegrationTypeChoices,
		"statuses":     models.IntegrationStatusChoices,
		"complexities": models.IntegrationComplexityChoices,
		"isNew":        it.ID == 0,
	}
	if err != nil {
		data["error"] = errs.Message(err)
	}
	render(c, status, "integration_form.html", data)
}

func ShowNewIntegration(c *gin.Context) {
	it := models.Integration{
		Status:          models.IntegrationPlanned,
		Complexity:      models.IntegrationMedium,
		IntegrationType: models.IntegrationDataSharing,
		EstimatedWeeks:  2,
	}
	if aid := optionalID(c.Query("from")); aid != nil {
		it.FromAppID = *aid
	}
	renderIntegrationForm(c, http.StatusOK, it, nil)
}

func CreateIntegration(c *gin.Context) {
	var form integrationForm
	if err := bindForm(c, &form); err != nil {
		renderIntegrationForm(c, http.StatusBadRequest, models.Integration{}, err)
		return
	}

	var it models.Integration
	if err := form.apply(&it); err != nil {
		if statusOf(err) == http.StatusInternalServerError {
			pageError(c, err)
			return
		}
		renderIntegrationForm(c, http.StatusBadRequest, it, err)
		return
	}
	if err := database.DB.Create(&it).Error; err != nil {
		renderIntegrationForm(c, http.StatusInternalServerError, it, errs.Invalid("", "could not save integration"))
		return
	}

	database.CreateActivityLog(currentUserID(c), "integration", it.ID,
		database.ProjectOfApplication(database.DB, it.FromAppID), "create", "Planned integration "+string(it.IntegrationType))
	flash(c, "Integration created")
	c.Redirect(http.StatusFound, "/integrations/"+idStr(it.ID))
}

func ShowEditIntegration(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	it, err := database.FindByID[models.Integration](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	renderIntegrationForm(c, http.StatusOK, *it, nil)
}

func UpdateIntegration(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	it, err := database.FindByID[models.Integration](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}

	var form integrationForm
	if err := bindForm(c, &form); err != nil {
		renderIntegrationForm(c, http.StatusBadRequest, *it, err)
		return
	}
	if err := form.apply(it); err != nil {
		if statusOf(err) == http.StatusInternalServerError {
			pageError(c, err)
			return
		}
		renderIntegrationForm(c, http.StatusBadRequest, *it, err)
		return
	}
	if err := database.DB.Save(it).Error; err != nil {
		renderIntegrationForm(c, http.StatusInternalServerError, *it, errs.Invalid("", "could not save integration"))
		return
	}

	database.CreateActivityLog(currentUserID(c), "integration", it.ID,
		database.ProjectOfApplication(database.DB, it.FromAppID), "update", "Updated integration, status "+it.Status.Label())
	flash(c, "Integration updated")
	c.Redirect(http.StatusFound, "/integrations/"+idStr(it.ID))
}

func ConfirmDeleteIntegration(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	it, err := database.FindByID[models.Integration](database.DB, id, "FromApp", "ToApp")
	if err != nil {
		pageError(c, err)
		return
	}
	render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"kind":   "integration",
		"name":   it.FromApp.Name + " → " + it.ToApp.Name,
		"action": "/integrations/" + idStr(id) + "/delete",
		"cancel": "/integrations/" + idStr(id),
	})
}

func DeleteIntegration(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	it, err := database.FindByID[models.Integration](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	projectID := database.ProjectOfApplication(database.DB, it.FromAppID)
	if err := database.DeleteByID[models.Integration](database.DB, id); err != nil {
		pageError(c, err)
		return
	}

	database.CreateActivityLog(currentUserID(c), "integration", id, projectID, "delete", "Deleted integration "+string(it.IntegrationType))
	flash(c, "Integration deleted")
	c.Redirect(http.StatusFound, "/integrations")
}
