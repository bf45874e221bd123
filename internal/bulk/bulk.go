// Package bulk — массовые изменения задач: статус, приоритет, исполнитель, срок.
//
// Запрос сначала проверяется целиком, и только потом в одной транзакции
// выполняется UPDATE ... WHERE id IN (...) вместе с записью в журнал.
package bulk

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/models"
)

type Action string

const (
	ActionStatus   Action = "status"
	ActionPriority Action = "priority"
	ActionAssignee Action = "assignee"
	ActionDueDate  Action = "due_date"
)

// алиасы из HTML-формы массовых операций
var aliases = map[string]struct {
	action Action
	value  string
}{
	"complete":        {ActionStatus, string(models.TaskCompleted)},
	"in_progress":     {ActionStatus, string(models.TaskInProgress)},
	"pending":         {ActionStatus, string(models.TaskPending)},
	"change_assignee": {ActionAssignee, ""},
	"update_due_date": {ActionDueDate, ""},
}

var columns = map[Action]string{
	ActionStatus:   "status",
	ActionPriority: "priority",
	ActionAssignee: "assignee",
	ActionDueDate:  "due_date",
}

// Request — {task_ids, action, value}.
type Request struct {
	TaskIDs []uint `json:"task_ids" form:"task_ids"`
	Action  string `json:"action" form:"action"`
	Value   string `json:"value" form:"value"`
}

type Result struct {
	Success       bool   `json:"success"`
	AffectedCount int64  `json:"affected_count"`
	DisplayValue  string `json:"display_value,omitempty"`
	Message       string `json:"message"`
}

// Actor — кто выполняет операцию (для журнала).
type Actor struct {
	UserID *uint
}

// plan — проверенный запрос, готовый к выполнению.
type plan struct {
	action  Action
	column  string
	value   any
	display string
}

// Validate проверяет запрос без обращения к базе.
func Validate(req Request) error {
	_, err := resolve(req)
	return err
}

func resolve(req Request) (plan, error) {
	name := strings.TrimSpace(req.Action)
	value := strings.TrimSpace(req.Value)

	action := Action(name)
	if alias, ok := aliases[name]; ok {
		action = alias.action
		if alias.value != "" {
			value = alias.value
		}
	}

	column, ok := columns[action]
	if !ok {
		return plan{}, errs.Invalid("action", "unknown bulk action %q", name)
	}
	p := plan{action: action, column: column}

	switch action {
	case ActionStatus:
		s := models.TaskStatus(value)
		if !s.Valid() {
			return plan{}, errs.Invalid("value", "a valid status is required")
		}
		p.value, p.display = s, s.Label()
	case ActionPriority:
		pr := models.TaskPriority(value)
		if !pr.Valid() {
			return plan{}, errs.Invalid("value", "a valid priority is required")
		}
		p.value, p.display = pr, pr.Label()
	case ActionAssignee:
		a := models.Assignee(value)
		if !a.Valid() {
			return plan{}, errs.Invalid("value", "a new assignee is required")
		}
		p.value, p.display = a, a.Label()
	case ActionDueDate:
		if value == "" {
			return plan{}, errs.Invalid("value", "a new due date is required")
		}
		d, err := time.Parse(time.DateOnly, value)
		if err != nil {
			return plan{}, errs.Invalid("value", "due date must be YYYY-MM-DD")
		}
		p.value, p.display = clock.DateOnly(d), d.Format("Jan 2, 2006")
	}
	return p, nil
}

// Apply выполняет запрос. Пустой список id или отсутствие совпадений — успех с нулём.
func Apply(db *gorm.DB, clk clock.Clock, actor Actor, req Request) (Result, error) {
	p, err := resolve(req)
	if err != nil {
		return Result{Success: false, Message: errs.Message(err)}, err
	}
	if len(req.TaskIDs) == 0 {
		return Result{Success: true, DisplayValue: p.display, Message: "No tasks selected"}, nil
	}

	var affected int64
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).
			Where("id IN ?", req.TaskIDs).
			UpdateColumns(map[string]any{
				p.column:     p.value,
				"updated_at": clk.Now(),
			})
		if res.Error != nil {
			return errs.Wrap(res.Error, "bulk update tasks")
		}
		affected = res.RowsAffected
		if affected == 0 {
			return nil
		}

		return database.RecordActivity(tx, database.Activity{
			UserID:  actor.UserID,
			Entity:  "task",
			Action:  "bulk_" + string(p.action),
			Details: fmt.Sprintf("Set %s to %s on %d tasks", p.column, p.display, affected),
		})
	})
	if err != nil {
		return Result{Success: false, Message: err.Error()}, err
	}

	return Result{
		Success:       true,
		AffectedCount: affected,
		DisplayValue:  p.display,
		Message:       message(p, affected),
	}, nil
}

func message(p plan, n int64) string {
	noun := "tasks"
	if n == 1 {
		noun = "task"
	}
	switch p.action {
	case ActionStatus:
		return fmt.Sprintf("Updated %d %s to %s", n, noun, p.display)
	case ActionPriority:
		return fmt.Sprintf("Set priority %s on %d %s", p.display, n, noun)
	case ActionAssignee:
		return fmt.Sprintf("Assigned %d %s to %s", n, noun, p.display)
	default:
		return fmt.Sprintf("Moved due date of %d %s to %s", n, noun, p.display)
	}
}
