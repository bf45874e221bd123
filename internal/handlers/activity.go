package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/models"
	"familyhub-tracker/internal/reporting"
)

const activityPageSize = 200

type activityRow struct {
	models.ActivityLog
	URL string
}

func activityRows(logs []models.ActivityLog) []activityRow {
	rows := make([]activityRow, len(logs))
	for i, l := range logs {
		rows[i] = activityRow{ActivityLog: l, URL: reporting.EntityURL(l.Entity, l.EntityID)}
	}
	return rows
}

// Журнал всех действий — только для менеджера (см. роутер).
func ListActivity(c *gin.Context) {
	dbq := database.DB.Preload("User").Order("created_at desc, id desc").Limit(activityPageSize)
	if entity := c.Query("entity"); entity != "" {
		dbq = dbq.Where("entity = ?", entity)
	}

	var logs []models.ActivityLog
	dbq.Find(&logs)

	render(c, http.StatusOK, "activity_list.html", gin.H{
		"logs":         activityRows(logs),
		"FilterEntity": c.Query("entity"),
		"entities":     []string{"project", "application", "task", "artifact", "decision", "integration", "user"},
	})
}

// История проекта: записи журнала с project_id этого проекта.
func ProjectHistory(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	project, err := database.FindByID[models.Project](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}

	var logs []models.ActivityLog
	database.DB.Preload("User").
		Where("project_id = ?", id).
		Order("created_at desc, id desc").
		Limit(activityPageSize).
		Find(&logs)

	render(c, http.StatusOK, "project_history.html", gin.H{
		"project": project,
		"logs":    activityRows(logs),
	})
}
