package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/models"
	"familyhub-tracker/internal/search"
)

func searchQuery(c *gin.Context, limit int) search.Query {
	return search.Query{
		Text:      c.Query("q"),
		Kind:      c.Query("type"),
		ProjectID: optionalID(c.Query("project")),
		Limit:     limit,
	}
}

// GET /search
func SearchPage(c *gin.Context) {
	q := searchQuery(c, search.PageLimit)

	var projects []models.Project
	database.DB.Order("name asc").Find(&projects)

	data := gin.H{
		"query":    q,
		"projects": projects,
		"kinds":    models.AllKinds,
	}
	res, err := search.Run(database.DB, q)
	if err != nil {
		if statusOf(err) != http.StatusBadRequest {
			pageError(c, err)
			return
		}
		data["error"] = errs.Message(err)
		render(c, http.StatusBadRequest, "search.html", data)
		return
	}
	data["results"] = res
	render(c, http.StatusOK, "search.html", data)
}

// GET /api/search
func APISearch(c *gin.Context) {
	res, err := search.Run(database.DB, searchQuery(c, search.APILimit))
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":         res.Query,
		"results":       res.Flat(),
		"total_results": res.Total,
	})
}

// GET /api/search/suggestions
func APISearchSuggestions(c *gin.Context) {
	s, err := search.Suggestions(database.DB, c.Query("q"))
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": s})
}
