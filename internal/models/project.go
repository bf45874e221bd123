package models

import (
	"strings"
	"time"

	"familyhub-tracker/internal/errs"
)

type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on-hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

var ProjectStatusChoices = []Choice{
	{string(ProjectPlanning), "Planning"},
	{string(ProjectActive), "Active"},
	{string(ProjectOnHold), "On Hold"},
	{string(ProjectCompleted), "Completed"},
	{string(ProjectCancelled), "Cancelled"},
}

func (s ProjectStatus) Valid() bool   { return validChoice(ProjectStatusChoices, string(s)) }
func (s ProjectStatus) Label() string { return labelOf(ProjectStatusChoices, string(s)) }

type Project struct {
	Model
	Name        string        `gorm:"uniqueIndex;size:100;not null"`
	Description string        `gorm:"type:text"`
	Status      ProjectStatus `gorm:"type:varchar(20);not null;default:planning"`

	StartDate  *time.Time
	TargetDate *time.Time

	OwnerID *uint
	Owner   *User

	Applications []Application
	Decisions    []Decision
}

// Validate — проверки формы проекта; уникальность имени проверяет БД.
func (p *Project) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errs.Invalid("name", "project name is required")
	}
	if len(p.Name) > 100 {
		return errs.Invalid("name", "project name must be at most 100 characters")
	}
	if !p.Status.Valid() {
		return errs.Invalid("status", "unknown project status %q", p.Status)
	}
	if p.StartDate != nil && p.TargetDate != nil && p.TargetDate.Before(*p.StartDate) {
		return errs.Invalid("target_date", "target date must not be before the start date")
	}
	return nil
}
