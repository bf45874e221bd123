package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"familyhub-tracker/internal/bulk"
	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/metrics"
	"familyhub-tracker/internal/models"
)

//
// СПИСОК ЗАДАЧ
//

type taskRow struct {
	Task        models.Task
	Overdue     bool
	DaysOverdue int
	Variance    *int
}

func ListTasks(c *gin.Context) {
	filter := map[string]string{
		"project":     c.Query("project"),
		"application": c.Query("application"),
		"status":      c.Query("status"),
		"priority":    c.Query("priority"),
		"assignee":    c.Query("assignee"),
		"overdue":     c.Query("overdue"),
		"q":           strings.TrimSpace(c.Query("q")),
	}
	now := today()

	dbq := database.DB.Preload("Application.Project").Order("due_date IS NULL, due_date asc, id")
	if pid := optionalID(filter["project"]); pid != nil {
		dbq = dbq.Where("application_id IN (?)",
			database.DB.Model(&models.Application{}).Select("id").Where("project_id = ?", *pid))
	}
	if aid := optionalID(filter["application"]); aid != nil {
		dbq = dbq.Where("application_id = ?", *aid)
	}
	for _, col := range []string{"status", "priority", "assignee"} {
		if v := filter[col]; v != "" {
			dbq = dbq.Where(col+" = ?", v)
		}
	}
	if filter["overdue"] == "1" {
		dbq = dbq.Where("due_date < ? AND status IN ?", now, models.OpenTaskStatuses)
	}
	if q := filter["q"]; q != "" {
		pat := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pat, pat)
	}

	var tasks []models.Task
	if err := dbq.Find(&tasks).Error; err != nil {
		pageError(c, errs.Wrap(err, "load tasks"))
		return
	}
	rows := make([]taskRow, len(tasks))
	for i, t := range tasks {
		rows[i] = taskRow{
			Task:        t,
			Overdue:     metrics.TaskIsOverdue(t, now),
			DaysOverdue: metrics.DaysOverdue(t, now),
			Variance:    metrics.TaskHoursVariance(t),
		}
	}

	var projects []models.Project
	database.DB.Order("name asc").Find(&projects)
	var apps []models.Application
	database.DB.Order("name asc").Find(&apps)

	render(c, http.StatusOK, "tasks_list.html", gin.H{
		"tasks":      rows,
		"projects":   projects,
		"apps":       apps,
		"statuses":   models.TaskStatusChoices,
		"priorities": models.TaskPriorityChoices,
		"assignees":  models.AssigneeChoices,
		"filter":     filter,
	})
}

//
// КАРТОЧКА ЗАДАЧИ
//

func ShowTask(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	task, err := database.FindByID[models.Task](database.DB, id, "Application.Project")
	if err != nil {
		pageError(c, err)
		return
	}

	now := today()
	var next []models.Choice
	for _, ch := range models.TaskStatusChoices {
		if task.Status.CanTransition(models.TaskStatus(ch.Value)) {
			next = append(next, ch)
		}
	}

	variance := metrics.TaskHoursVariance(*task)
	render(c, http.StatusOK, "task_detail.html", gin.H{
		"task":          task,
		"overdue":       metrics.TaskIsOverdue(*task, now),
		"daysOverdue":   metrics.DaysOverdue(*task, now),
		"daysUntilDue":  metrics.DaysUntilDue(*task, now),
		"variance":      variance,
		"varianceLabel": metrics.VarianceLabel(variance),
		"hoursWarning":  task.HoursWarning(),
		"transitions":   next,
	})
}

//
// СОЗДАНИЕ / РЕДАКТИРОВАНИЕ
//

type taskForm struct {
	ApplicationID  string `form:"application_id"`
	Title          string `form:"title"`
	Description    string `form:"description"`
	Status         string `form:"status"`
	Priority       string `form:"priority"`
	Assignee       string `form:"assignee"`
	DueDate        string `form:"due_date"`
	EstimatedHours string `form:"estimated_hours"`
	ActualHours    string `form:"actual_hours"`
}

func (f taskForm) apply(t *models.Task, isNew bool) error {
	due, err := parseDate("due_date", f.DueDate)
	if err != nil {
		return err
	}
	est, err := optionalInt("estimated_hours", f.EstimatedHours)
	if err != nil {
		return err
	}
	act, err := optionalInt("actual_hours", f.ActualHours)
	if err != nil {
		return err
	}

	t.ApplicationID = 0
	if aid := optionalID(f.ApplicationID); aid != nil {
		t.ApplicationID = *aid
	}
	t.Title = f.Title
	t.Description = strings.TrimSpace(f.Description)
	t.Status = models.TaskStatus(f.Status)
	t.Priority = models.TaskPriority(f.Priority)
	t.Assignee = models.Assignee(f.Assignee)
	t.DueDate, t.EstimatedHours, t.ActualHours = due, est, act
	if err := t.Validate(isNew, today()); err != nil {
		return err
	}

	var exists int64
	database.DB.Model(&models.Application{}).Where("id = ?", t.ApplicationID).Count(&exists)
	if exists == 0 {
		return errs.Invalid("application_id", "application not found")
	}
	return nil
}

func renderTaskForm(c *gin.Context, status int, task models.Task, err error) {
	var apps []models.Application
	database.DB.Preload("Project").Order("name asc").Find(&apps)

	data := gin.H{
		"task":       task,
		"apps":       apps,
		"statuses":   models.TaskStatusChoices,
		"priorities": models.TaskPriorityChoices,
		"assignees":  models.AssigneeChoices,
		"isNew":      task.ID == 0,
	}
	if err != nil {
		data["error"] = errs.Message(err)
	}
	render(c, status, "task_form.html", data)
}

func ShowNewTask(c *gin.Context) {
	task := models.Task{Status: models.TaskPending, Priority: models.PriorityMedium, Assignee: models.AssigneeHuman}
	if aid := optionalID(c.Query("application")); aid != nil {
		task.ApplicationID = *aid
	}
	renderTaskForm(c, http.StatusOK, task, nil)
}

func CreateTask(c *gin.Context) {
	var form taskForm
	if err := bindForm(c, &form); err != nil {
		renderTaskForm(c, http.StatusBadRequest, models.Task{Status: models.TaskPending, Priority: models.PriorityMedium}, err)
		return
	}

	var task models.Task
	if err := form.apply(&task, true); err != nil {
		renderTaskForm(c, http.StatusBadRequest, task, err)
		return
	}
	if err := database.DB.Create(&task).Error; err != nil {
		renderTaskForm(c, http.StatusInternalServerError, task, errs.Invalid("", "could not save task"))
		return
	}

	database.CreateActivityLog(currentUserID(c), "task", task.ID,
		database.ProjectOfApplication(database.DB, task.ApplicationID), "create", "Created task "+task.Title)
	if w := task.HoursWarning(); w != "" {
		flash(c, w)
	}
	flash(c, "Task created")
	c.Redirect(http.StatusFound, "/tasks/"+idStr(task.ID))
}

func ShowEditTask(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	task, err := database.FindByID[models.Task](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	renderTaskForm(c, http.StatusOK, *task, nil)
}

func UpdateTask(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	task, err := database.FindByID[models.Task](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}

	var form taskForm
	if err := bindForm(c, &form); err != nil {
		renderTaskForm(c, http.StatusBadRequest, *task, err)
		return
	}
	if err := form.apply(task, false); err != nil {
		renderTaskForm(c, http.StatusBadRequest, *task, err)
		return
	}
	if err := database.DB.Save(task).Error; err != nil {
		renderTaskForm(c, http.StatusInternalServerError, *task, errs.Invalid("", "could not save task"))
		return
	}

	database.CreateActivityLog(currentUserID(c), "task", task.ID,
		database.ProjectOfApplication(database.DB, task.ApplicationID), "update", "Updated task "+task.Title)
	if w := task.HoursWarning(); w != "" {
		flash(c, w)
	}
	flash(c, "Task updated")
	c.Redirect(http.StatusFound, "/tasks/"+idStr(task.ID))
}

//
// УДАЛЕНИЕ
//

func ConfirmDeleteTask(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	task, err := database.FindByID[models.Task](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"kind":   "task",
		"name":   task.Title,
		"action": "/tasks/" + idStr(id) + "/delete",
		"cancel": "/tasks/" + idStr(id),
	})
}

func DeleteTask(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		pageError(c, err)
		return
	}
	task, err := database.FindByID[models.Task](database.DB, id)
	if err != nil {
		pageError(c, err)
		return
	}
	projectID := database.ProjectOfApplication(database.DB, task.ApplicationID)
	if err := database.DeleteByID[models.Task](database.DB, id); err != nil {
		pageError(c, err)
		return
	}

	database.CreateActivityLog(currentUserID(c), "task", id, projectID, "delete", "Deleted task "+task.Title)
	flash(c, "Task deleted")
	c.Redirect(http.StatusFound, "/applications/"+idStr(task.ApplicationID))
}

//
// МАССОВЫЕ ОПЕРАЦИИ И СТАТУС
//

// POST /tasks/bulk — форма со списка задач.
func BulkTasksForm(c *gin.Context) {
	var req bulk.Request
	if err := bindForm(c, &req); err != nil {
		flash(c, errs.Message(err))
		c.Redirect(http.StatusFound, bulkReturnPath(c))
		return
	}

	res, err := bulk.Apply(database.DB, deps.Clock, bulk.Actor{UserID: currentUserID(c)}, req)
	if err != nil && statusOf(err) == http.StatusInternalServerError {
		deps.Logger.Error().Err(err).Msg("bulk update failed")
		flash(c, "Bulk update failed")
	} else {
		flash(c, res.Message)
	}

	c.Redirect(http.StatusFound, bulkReturnPath(c))
}

// bulkReturnPath — куда вернуться после формы: только в список задач.
func bulkReturnPath(c *gin.Context) string {
	back := c.PostForm("next")
	if !strings.HasPrefix(back, "/tasks") {
		return "/tasks"
	}
	return back
}

// POST /api/tasks/bulk — {task_ids, action, value}.
func APIBulkTasks(c *gin.Context) {
	var req bulk.Request
	if err := c.ShouldBind(&req); err != nil {
		jsonError(c, errs.Invalid("", "invalid JSON payload"))
		return
	}

	res, err := bulk.Apply(database.DB, deps.Clock, bulk.Actor{UserID: currentUserID(c)}, req)
	if err != nil {
		jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type statusRequest struct {
	Status string `json:"status" form:"status"`
}

// POST /api/tasks/:id/status — смена статуса по допустимым переходам.
func APITaskStatus(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		jsonError(c, err)
		return
	}
	var req statusRequest
	if err := c.ShouldBind(&req); err != nil {
		jsonError(c, errs.Invalid("", "invalid JSON payload"))
		return
	}

	task, err := database.FindByID[models.Task](database.DB, id)
	if err != nil {
		jsonError(c, err)
		return
	}

	next := models.TaskStatus(req.Status)
	if !next.Valid() {
		jsonError(c, errs.Invalid("status", "invalid status %q", req.Status))
		return
	}
	if !task.Status.CanTransition(next) {
		jsonError(c, errs.Invalid("status", "cannot change status from %s to %s", task.Status.Label(), next.Label()))
		return
	}

	old := task.Status
	if err := database.DB.Model(task).Updates(map[string]any{"status": next, "updated_at": deps.Clock.Now()}).Error; err != nil {
		jsonError(c, errs.Wrap(err, "update task status"))
		return
	}

	database.CreateActivityLog(currentUserID(c), "task", task.ID,
		database.ProjectOfApplication(database.DB, task.ApplicationID), "status_change",
		"Status changed from "+old.Label()+" to "+next.Label())

	d := models.DisplayFor("task_status", string(next))
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"status":       next,
		"status_label": d.Label,
		"severity":     d.Severity,
		"message":      "Task status updated to " + d.Label,
	})
}
