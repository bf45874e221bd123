package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/metrics"
	"familyhub-tracker/internal/models"
)

//
// СПИСОК РЕШЕНИЙ
//

type decisionRow struct {
	Decision       models.Decision
	AgeDays        int
	PendingTooLong bool
}

func ListDecisions(c *gin.Context) {
	filter := map[string]string{
		"project": c.Query("project"),
		"status":  c.Query("status"),
		"impact":  c.Query("impact"),
	}

	dbq := database.DB.Preload("Project").Preload("Application").Order("created_at desc")
	if pid := optionalID(filter["project"]); pid != nil {
		dbq = dbq.Where("project_id = ?", *pid)
	}
	if v := filter["status"]; v != "" {
		dbq = dbq.Where("status = ?", v)
	}
	if v := filter["impact"]; v != "" {
		dbq = dbq.Where("impact = ?", v)
	}

	var decisions []models.Decision
	if err := dbq.Find(&decisions).Error; err != nil {
		pageError(c, errs.Wrap(err, "load decisions"))
		return
	}
	now := today()
	rows := make([]decisionRow, len(decisions))
	for i, d := range decisions {
		rows[i] = decisionRow{
			Decision:       d,
			AgeDays:        metrics.AgeInDays(d.CreatedAt, now),
			PendingTooLong: metrics.IsPendingTooLong(d.Status, d.CreatedAt, now),
		}
	}

	var projects []models.Project
	database.DB.Order("name asc").Find(&projects)

	render(c, http.StatusOK, "decisions_list.html", gin.H{
		"decisions": rows,
		"projects":  projects,
		"statuses":  models.DecisionStatusChoices,
		"impacts":   models.ImpactChoices,
		"filter":    filter,
	})
}

func ShowDecision(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	d, err := database.FindByID[models.Decision](database.DB, id, "Project", "Application")
	if err != nil {
		pageError(c, err)
		return
	}
	now := today()
	render(c, http.StatusOK, "decision_detail.html", gin.H{
		"decision":       d,
		"ageDays":        metrics.AgeInDays(d.CreatedAt, now),
		"pendingTooLong": metrics.IsPendingTooLong(d.Status, d.CreatedAt, now),
	})
}

//
// СОЗДАНИЕ / РЕДАКТИРОВАНИЕ
//

type decisionForm struct {
	ProjectID     string `form:"project_id"`
	ApplicationID string `form:"application_id"`
	Title         string `form:"title"`
	Description   string `form:"description"`
	Status        string `form:"status"`
	Impact        string `form:"impact"`
	DecisionMaker string `form:"decision_maker"`
	DecidedDate   string `form:"decided_date"`
}

func (f decisionForm) apply(d *models.Decision) error {
	decided, err := parseDate("decided_date", f.DecidedDate)
	if err != nil {
		return err
	}
	d.ProjectID = 0
	if pid := optionalID(f.ProjectID); pid != nil {
		d.ProjectID = *pid
	}
	d.ApplicationID = optionalID(f.ApplicationID)
	d.Application = nil
	d.Title = f.Title
	d.Description = strings.TrimSpace(f.Description)
	d.Status = models.DecisionStatus(f.Status)
	d.Impact = models.Impact(f.Impact)
	d.DecisionMaker = strings.TrimSpace(f.DecisionMaker)
	d.DecidedDate = decided
	if d.Status == models.DecisionDecided && d.DecidedDate == nil {
		t := today()
		d.DecidedDate = &t
	}

	var exists int64
	database.DB.Model(&models.Project{}).Where("id = ?", d.ProjectID).Count(&exists)
	if exists == 0 {
		return errs.Invalid("project_id", "project not found")
	}

	var app *models.Application
	if d.ApplicationID != nil {
		found, err := database.FindByID[models.Application](database.DB, *d.ApplicationID)
		if err != nil {
			return errs.Invalid("application_id", "application not found")
		}
		app = found
	}
	return d.Validate(app)
}

func renderDecisionForm(c *gin.Context, status int, d models.Decision, err error) {
	var projects []models.Project
	database.DB.Order("name asc").Find(&projects)
	var apps []models.Application
	database.DB.Preload("Project").Order("name asc").Find(&apps)

	data := gin.H{
		"decision": d,
		"projects": projects,
		"apps":     apps,
		"statuses": models.DecisionStatusChoices,
		"impacts":  models.ImpactChoices,
		"isNew":    d.ID == 0,
	}
	if err != nil {
		data["error"] = errs.Message(err)
	}
	render(c, status, "decision_form.html", data)
}

func ShowNewDecision(c *gin.Context) {
	d := models.Decision{Status: models.DecisionPending, Impact: models.ImpactMedium}
	if pid := optionalID(c.Query("project")); pid != nil {
		d.ProjectID = *pid
	}
	renderDecisionForm(c, http.StatusOK, d, nil)
}

func CreateDecision(c *gin.Context) {
	var form decisionForm
	if err := bindForm(c, &form); err != nil {
		renderDecisionForm(c, http.StatusBadRequest, models.Decision{}, err)
		return
	}

	var d models.Decision
	if err := form.apply(&d); err != nil {
		renderDecisionForm(c, http.StatusBadRequest, d, err)
		return
	}
	if err := database.DB.Create(&d).Error; err != nil {
		renderDecisionForm(c, http.StatusInternalServerError, d, errs.Invalid("", "could not save decision"))
		return
	}

	database.CreateActivityLog(currentUserID(c), "decision", d.ID, &d.ProjectID, "create", "Recorded decision "+d.Title)
	flash(c, "Decision recorded")
	c.Redirect(http.StatusFound, "/decisions/"+idStr(d.ID))
}

func ShowEditDecision(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	d, err := database.FindByID[models.Decision](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	renderDecisionForm(c, http.StatusOK, *d, nil)
}

func UpdateDecision(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	d, err := database.FindByID[models.Decision](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}

	var form decisionForm
	if err := bindForm(c, &form); err != nil {
		renderDecisionForm(c, http.StatusBadRequest, *d, err)
		return
	}
	old := d.Status
	if err := form.apply(d); err != nil {
		renderDecisionForm(c, http.StatusBadRequest, *d, err)
		return
	}
	if err := database.DB.Save(d).Error; err != nil {
		renderDecisionForm(c, http.StatusInternalServerError, *d, errs.Invalid("", "could not save decision"))
		return
	}

	details := "Updated decision " + d.Title
	if old != d.Status {
		details += ": " + old.Label() + " → " + d.Status.Label()
	}
	database.CreateActivityLog(currentUserID(c), "decision", d.ID, &d.ProjectID, "update", details)
	flash(c, "Decision updated")
	c.Redirect(http.StatusFound, "/decisions/"+idStr(d.ID))
}

func ConfirmDeleteDecision(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	d, err := database.FindByID[models.Decision](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"kind":   "decision",
		"name":   d.Title,
		"action": "/decisions/" + idStr(id) + "/delete",
		"cancel": "/decisions/" + idStr(id),
	})
}

func DeleteDecision(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	d, err := database.FindByID[models.Decision](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	if err := database.DeleteByID[models.Decision](database.DB, id); err != nil {
		pageError(c, err)
		return
	}

	database.CreateActivityLog(currentUserID(c), "decision", id, &d.ProjectID, "delete", "Deleted decision "+d.Title)
	flash(c, "Decision deleted")
	c.Redirect(http.StatusFound, "/decisions")
}
