package models

import (
	"strings"
	"time"

	"familyhub-tracker/internal/errs"
)

type DecisionStatus string

const (
	DecisionPending     DecisionStatus = "pending"
	DecisionDecided     DecisionStatus = "decided"
	DecisionImplemented DecisionStatus = "implemented"
	DecisionChanged     DecisionStatus = "changed"
)

var DecisionStatusChoices = []Choice{
	{string(DecisionPending), "Pending"},
	{string(DecisionDecided), "Decided"},
	{string(DecisionImplemented), "Implemented"},
	{string(DecisionChanged), "Changed"},
}

func (s DecisionStatus) Valid() bool   { return validChoice(DecisionStatusChoices, string(s)) }
func (s DecisionStatus) Label() string { return labelOf(DecisionStatusChoices, string(s)) }

type Impact string

const (
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

var ImpactChoices = []Choice{
	{string(ImpactLow), "Low"},
	{string(ImpactMedium), "Medium"},
	{string(ImpactHigh), "High"},
	{string(ImpactCritical), "Critical"},
}

func (i Impact) Valid() bool   { return validChoice(ImpactChoices, string(i)) }
func (i Impact) Label() string { return labelOf(ImpactChoices, string(i)) }

type Decision struct {
	Model
	ProjectID uint `gorm:"not null;index"`
	Project   Project

	ApplicationID *uint
	Application   *Application

	Title         string         `gorm:"size:200;not null"`
	Description   string         `gorm:"type:text"`
	Status        DecisionStatus `gorm:"type:varchar(20);not null;default:pending;index"`
	Impact        Impact         `gorm:"type:varchar(10);not null;default:medium"`
	DecisionMaker string         `gorm:"size:100"`
	DecidedDate   *time.Time
}

// Validate — app, если задано, должно принадлежать проекту решения.
func (d *Decision) Validate(app *Application) error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return errs.Invalid("title", "decision title is required")
	}
	if d.ProjectID == 0 {
		return errs.Invalid("project_id", "select a project")
	}
	if !d.Status.Valid() {
		return errs.Invalid("status", "unknown decision status %q", d.Status)
	}
	if !d.Impact.Valid() {
		return errs.Invalid("impact", "unknown impact %q", d.Impact)
	}
	if app != nil && app.ProjectID != d.ProjectID {
		return errs.Invalid("application_id", "application belongs to a different project")
	}
	return nil
}
