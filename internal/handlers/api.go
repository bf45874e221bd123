package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/errs"
)

// GET /api/dashboard
func APIDashboard(c *gin.Context) {
	dash, err := reports().Dashboard(reportFilter(c))
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// GET /api/projects/:id/progress
func APIProjectProgress(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		jsonError(c, err)
		return
	}
	p, err := reports().ProjectProgress(id)
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GET /api/projects/:id/statistics
func APIProjectStatistics(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		jsonError(c, err)
		return
	}
	s, err := reports().ProjectStatistics(id)
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

//
// ВИДЖЕТЫ
//

func WidgetProjectHealth(c *gin.Context) {
	h, err := reports().ProjectHealth(reportFilter(c))
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": h})
}

func WidgetOverdueTasks(c *gin.Context) {
	tasks, err := reports().OverdueTasks(reportFilter(c), limitParam(c, 10))
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

func WidgetRecentActivity(c *gin.Context) {
	items, err := reports().RecentActivity(reportFilter(c), limitParam(c, 10))
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": items})
}

// GET /api/chart-data?type=monthly_tasks|project_status
func APIChartData(c *gin.Context) {
	f := reportFilter(c)
	switch kind := c.DefaultQuery("type", "monthly_tasks"); kind {
	case "monthly_tasks":
		chart, err := reports().MonthlyTasks(f)
		if err != nil {
			jsonError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"labels": chart.Labels,
			"datasets": []gin.H{
				{"label": "Completed Tasks", "data": chart.Completed},
				{"label": "Total Tasks", "data": chart.Total},
			},
		})
	case "project_status":
		dist, err := reports().ProjectStatusDistribution(f)
		if err != nil {
			jsonError(c, err)
			return
		}
		labels := make([]string, len(dist))
		data := make([]int64, len(dist))
		for i, d := range dist {
			labels[i], data[i] = d.Label, d.Count
		}
		c.JSON(http.StatusOK, gin.H{"labels": labels, "datasets": []gin.H{{"data": data}}})
	default:
		jsonError(c, errs.Invalid("type", "unknown chart type %q", kind))
	}
}

// GET /api/stats — счётчики для подвала.
func APIStats(c *gin.Context) {
	s, err := reports().Stats()
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func limitParam(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 || n > 100 {
		return def
	}
	return n
}
