package models

import (
	"strings"
	"time"

	"familyhub-tracker/internal/errs"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

var TaskStatusChoices = []Choice{
	{string(TaskPending), "Pending"},
	{string(TaskInProgress), "In Progress"},
	{string(TaskCompleted), "Completed"},
	{string(TaskBlocked), "Blocked"},
}

func (s TaskStatus) Valid() bool   { return validChoice(TaskStatusChoices, string(s)) }
func (s TaskStatus) Label() string { return labelOf(TaskStatusChoices, string(s)) }

// Open — задача ещё в работе; только такие считаются просроченными.
func (s TaskStatus) Open() bool {
	return s == TaskPending || s == TaskInProgress
}

// OpenTaskStatuses — для запросов "status IN ?".
var OpenTaskStatuses = []TaskStatus{TaskPending, TaskInProgress}

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskInProgress, TaskBlocked},
	TaskInProgress: {TaskCompleted, TaskBlocked},
	TaskBlocked:    {TaskInProgress},
	TaskCompleted:  nil,
}

// CanTransition — pending → in-progress → completed; blocked из pending/in-progress
// и обратно в in-progress.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

var TaskPriorityChoices = []Choice{
	{string(PriorityLow), "Low"},
	{string(PriorityMedium), "Medium"},
	{string(PriorityHigh), "High"},
	{string(PriorityCritical), "Critical"},
}

func (p TaskPriority) Valid() bool   { return validChoice(TaskPriorityChoices, string(p)) }
func (p TaskPriority) Label() string { return labelOf(TaskPriorityChoices, string(p)) }

// Assignee — вид исполнителя: человек, AI-ассистент или команда.
type Assignee string

const (
	AssigneeClaude  Assignee = "claude"
	AssigneeCopilot Assignee = "github-copilot"
	AssigneeHuman   Assignee = "human"
	AssigneeTeam    Assignee = "team"
)

var AssigneeChoices = []Choice{
	{string(AssigneeClaude), "Claude"},
	{string(AssigneeCopilot), "GitHub Copilot"},
	{string(AssigneeHuman), "Human"},
	{string(AssigneeTeam), "Team"},
}

func (a Assignee) Valid() bool   { return validChoice(AssigneeChoices, string(a)) }
func (a Assignee) Label() string { return labelOf(AssigneeChoices, string(a)) }

type Task struct {
	Model
	ApplicationID uint `gorm:"not null;index"`
	Application   Application

	Title       string       `gorm:"size:200;not null"`
	Description string       `gorm:"type:text"`
	Priority    TaskPriority `gorm:"type:varchar(10);not null;default:medium"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:pending;index"`
	Assignee    Assignee     `gorm:"type:varchar(20);not null;default:human"`

	DueDate        *time.Time `gorm:"index"`
	EstimatedHours *int
	ActualHours    *int
}

// Validate — isNew запрещает срок в прошлом только для новых задач.
func (t *Task) Validate(isNew bool, today time.Time) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return errs.Invalid("title", "task title is required")
	}
	if len(t.Title) > 200 {
		return errs.Invalid("title", "task title must be at most 200 characters")
	}
	if t.ApplicationID == 0 {
		return errs.Invalid("application_id", "select an application")
	}
	if !t.Status.Valid() {
		return errs.Invalid("status", "unknown task status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return errs.Invalid("priority", "unknown priority %q", t.Priority)
	}
	if !t.Assignee.Valid() {
		return errs.Invalid("assignee", "unknown assignee %q", t.Assignee)
	}
	if t.EstimatedHours != nil && *t.EstimatedHours < 0 {
		return errs.Invalid("estimated_hours", "estimated hours cannot be negative")
	}
	if t.ActualHours != nil && *t.ActualHours < 0 {
		return errs.Invalid("actual_hours", "actual hours cannot be negative")
	}
	if isNew && t.DueDate != nil && t.DueDate.Before(today) {
		return errs.Invalid("due_date", "due date cannot be in the past")
	}
	return nil
}

// HoursWarning — подсказка, когда факт больше оценки вдвое. Сохранению не мешает.
func (t Task) HoursWarning() string {
	if t.EstimatedHours == nil || t.ActualHours == nil || *t.EstimatedHours == 0 {
		return ""
	}
	if *t.ActualHours > *t.EstimatedHours*2 {
		return "Actual hours significantly exceed estimate. Consider updating the estimate."
	}
	return ""
}
