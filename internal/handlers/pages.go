package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/models"
	"familyhub-tracker/internal/reporting"
)

// reportFilter собирает reporting.Filter из query: project, date_range.
func reportFilter(c *gin.Context) reporting.Filter {
	f := reporting.Filter{ProjectID: optionalID(c.Query("project"))}
	if days, err := strconv.Atoi(c.Query("date_range")); err == nil && days > 0 {
		f.DateRange = days
	}
	return f
}

func reports() *reporting.Service { return reporting.New(database.DB, deps.Clock) }

//
// ДАШБОРД
//

func Dashboard(c *gin.Context) {
	f := reportFilter(c)
	dash, err := reports().Dashboard(f)
	if err != nil {
		pageError(c, err)
		return
	}
	health, err := reports().ProjectHealth(f)
	if err != nil {
		pageError(c, err)
		return
	}

	var projects []models.Project
	database.DB.Order("name asc").Find(&projects)

	render(c, http.StatusOK, "dashboard.html", gin.H{
		"dash":       dash,
		"health":     health,
		"projects":   projects,
		"dateRanges": []int{7, 30, 90, 365},
	})
}
