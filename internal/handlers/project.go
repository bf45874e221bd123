package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/models"
)

//
// СПИСОК ПРОЕКТОВ
//

// Список проектов + фильтры
func ListProjects(c *gin.Context) {
	statusStr := c.Query("status")
	q := strings.TrimSpace(c.Query("q"))

	dbq := database.DB.Preload("Owner").Order("created_at desc")
	if statusStr != "" {
		dbq = dbq.Where("status = ?", statusStr)
	}
	if q != "" {
		pat := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pat, pat)
	}

	var projects []models.Project
	if err := dbq.Find(&projects).Error; err != nil {
		pageError(c, errs.Wrap(err, "load projects"))
		return
	}

	summaries, err := reports().ProjectSummaries(projects)
	if err != nil {
		pageError(c, err)
		return
	}

	render(c, http.StatusOK, "projects_list.html", gin.H{
		"projects":     summaries,
		"statuses":     models.ProjectStatusChoices,
		"FilterStatus": statusStr,
		"FilterQuery":  q,
		"CanManage":    currentRole(c) == models.RoleManager,
	})
}

//
// КАРТОЧКА ПРОЕКТА
//

func ShowProject(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	project, err := database.FindByID[models.Project](database.DB, id, "Owner")
	if err != nil {
		pageError(c, err)
		return
	}

	progress, err := reports().ProjectProgress(id)
	if err != nil {
		pageError(c, err)
		return
	}
	stats, err := reports().ProjectStatistics(id)
	if err != nil {
		pageError(c, err)
		return
	}

	var decisions []models.Decision
	database.DB.Preload("Application").Where("project_id = ?", id).Order("created_at desc").Limit(10).Find(&decisions)

	render(c, http.StatusOK, "project_detail.html", gin.H{
		"project":   project,
		"progress":  progress,
		"stats":     stats,
		"decisions": decisions,
		"CanManage": currentRole(c) == models.RoleManager,
	})
}

//
// СОЗДАНИЕ / РЕДАКТИРОВАНИЕ
//

type projectForm struct {
	Name        string `form:"name"`
	Description string `form:"description"`
	Status      string `form:"status"`
	StartDate   string `form:"start_date"`
	TargetDate  string `form:"target_date"`
}

func (f projectForm) apply(p *models.Project) error {
	start, err := parseDate("start_date", f.StartDate)
	if err != nil {
		return err
	}
	target, err := parseDate("target_date", f.TargetDate)
	if err != nil {
		return err
	}
	p.Name = f.Name
	p.Description = strings.TrimSpace(f.Description)
	p.Status = models.ProjectStatus(f.Status)
	p.StartDate, p.TargetDate = start, target
	return p.Validate()
}

func renderProjectForm(c *gin.Context, status int, project models.Project, err error) {
	data := gin.H{
		"project":  project,
		"statuses": models.ProjectStatusChoices,
		"isNew":    project.ID == 0,
	}
	if err != nil {
		data["error"] = errs.Message(err)
	}
	render(c, status, "project_form.html", data)
}

func ShowNewProject(c *gin.Context) {
	renderProjectForm(c, http.StatusOK, models.Project{Status: models.ProjectPlanning}, nil)
}

func CreateProject(c *gin.Context) {
	var form projectForm
	if err := bindForm(c, &form); err != nil {
		renderProjectForm(c, http.StatusBadRequest, models.Project{Status: models.ProjectPlanning}, err)
		return
	}

	project := models.Project{OwnerID: currentUserID(c)}
	if err := form.apply(&project); err != nil {
		renderProjectForm(c, http.StatusBadRequest, project, err)
		return
	}
	if nameTaken[models.Project](project.ID, "name = ?", project.Name) {
		renderProjectForm(c, http.StatusBadRequest, project, errs.Invalid("name", "a project with this name already exists"))
		return
	}

	if err := database.DB.Create(&project).Error; err != nil {
		renderProjectForm(c, http.StatusInternalServerError, project, errs.Invalid("", "could not save project"))
		return
	}

	database.CreateActivityLog(currentUserID(c), "project", project.ID, &project.ID, "create", "Created project "+project.Name)
	flash(c, "Project created")
	c.Redirect(http.StatusFound, "/projects/"+idStr(project.ID))
}

func ShowEditProject(c *gin.Context) {
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
	renderProjectForm(c, http.StatusOK, *project, nil)
}

func UpdateProject(c *gin.Context) {
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

	var form projectForm
	if err := bindForm(c, &form); err != nil {
		renderProjectForm(c, http.StatusBadRequest, *project, err)
		return
	}
	oldStatus := project.Status
	if err := form.apply(project); err != nil {
		renderProjectForm(c, http.StatusBadRequest, *project, err)
		return
	}
	if nameTaken[models.Project](project.ID, "name = ?", project.Name) {
		renderProjectForm(c, http.StatusBadRequest, *project, errs.Invalid("name", "a project with this name already exists"))
		return
	}

	if err := database.DB.Save(project).Error; err != nil {
		renderProjectForm(c, http.StatusInternalServerError, *project, errs.Invalid("", "could not save project"))
		return
	}

	details := "Updated project " + project.Name
	if oldStatus != project.Status {
		details += ": status " + string(oldStatus) + " → " + string(project.Status)
	}
	database.CreateActivityLog(currentUserID(c), "project", project.ID, &project.ID, "update", details)
	flash(c, "Project updated")
	c.Redirect(http.StatusFound, "/projects/"+idStr(project.ID))
}

//
// УДАЛЕНИЕ
//

func ConfirmDeleteProject(c *gin.Context) {
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

	var apps, decisions int64
	database.DB.Model(&models.Application{}).Where("project_id = ?", id).Count(&apps)
	database.DB.Model(&models.Decision{}).Where("project_id = ?", id).Count(&decisions)

	render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"kind":    "project",
		"name":    project.Name,
		"action":  "/projects/" + idStr(id) + "/delete",
		"cancel":  "/projects/" + idStr(id),
		"warning": fmt.Sprintf("This also deletes %d application(s) with their tasks, artifacts and integrations, and %d decision(s).", apps, decisions),
	})
}

func DeleteProject(c *gin.Context) {
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

	files, err := database.DeleteProject(database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	removeFiles(files)

	database.CreateActivityLog(currentUserID(c), "project", id, nil, "delete", "Deleted project "+project.Name)
	flash(c, "Project deleted")
	c.Redirect(http.StatusFound, "/projects")
}

// removeFiles удаляет файлы артефактов после удаления записей.
func removeFiles(paths []string) {
	for _, p := range paths {
		if err := os.Remove(mediaPath(p)); err != nil && !os.IsNotExist(err) {
			deps.Logger.Warn().Err(err).Str("file", p).Msg("could not remove artifact file")
		}
	}
}
