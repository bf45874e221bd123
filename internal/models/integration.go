package models

import (
	"familyhub-tracker/internal/errs"
)

type IntegrationType string

const (
	IntegrationDataSharing IntegrationType = "data-sharing"
	IntegrationUI          IntegrationType = "ui-integration"
	IntegrationAPI         IntegrationType = "api-integration"
	IntegrationFullMerge   IntegrationType = "full-merge"
)

var IntegrationTypeChoices = []Choice{
	{string(IntegrationDataSharing), "Data Sharing"},
	{string(IntegrationUI), "UI Integration"},
	{string(IntegrationAPI), "API Integration"},
	{string(IntegrationFullMerge), "Full Merge"},
}

func (t IntegrationType) Valid() bool   { return validChoice(IntegrationTypeChoices, string(t)) }
func (t IntegrationType) Label() string { return labelOf(IntegrationTypeChoices, string(t)) }

type IntegrationStatus string

const (
	IntegrationPlanned    IntegrationStatus = "planned"
	IntegrationInProgress IntegrationStatus = "in-progress"
	IntegrationCompleted  IntegrationStatus = "completed"
	IntegrationBlocked    IntegrationStatus = "blocked"
)

var IntegrationStatusChoices = []Choice{
	{string(IntegrationPlanned), "Planned"},
	{string(IntegrationInProgress), "In Progress"},
	{string(IntegrationCompleted), "Completed"},
	{string(IntegrationBlocked), "Blocked"},
}

func (s IntegrationStatus) Valid() bool   { return validChoice(IntegrationStatusChoices, string(s)) }
func (s IntegrationStatus) Label() string { return labelOf(IntegrationStatusChoices, string(s)) }

type IntegrationComplexity string

const (
	IntegrationSimple  IntegrationComplexity = "simple"
	IntegrationMedium  IntegrationComplexity = "medium"
	IntegrationComplex IntegrationComplexity = "complex"
)

var IntegrationComplexityChoices = []Choice{
	{string(IntegrationSimple), "Simple"},
	{string(IntegrationMedium), "Medium"},
	{string(IntegrationComplex), "Complex"},
}

// Normalize — старые записи используют "high" вместо "complex".
func (c IntegrationComplexity) Normalize() IntegrationComplexity {
	if c == "high" {
		return IntegrationComplex
	}
	return c
}

func (c IntegrationComplexity) Valid() bool {
	return validChoice(IntegrationComplexityChoices, string(c.Normalize()))
}

func (c IntegrationComplexity) Label() string {
	return labelOf(IntegrationComplexityChoices, string(c.Normalize()))
}

type Integration struct {
	Model
	FromAppID uint        `gorm:"not null;uniqueIndex:idx_integration_edge"`
	FromApp   Application `gorm:"foreignKey:FromAppID"`
	ToAppID   uint        `gorm:"not null;uniqueIndex:idx_integration_edge"`
	ToApp     Application `gorm:"foreignKey:ToAppID"`

	IntegrationType IntegrationType       `gorm:"type:varchar(20);not null;uniqueIndex:idx_integration_edge"`
	Status          IntegrationStatus     `gorm:"type:varchar(20);not null;default:planned"`
	Complexity      IntegrationComplexity `gorm:"type:varchar(10);not null;default:medium"`
	Description     string                `gorm:"type:text"`
	EstimatedWeeks  int                   `gorm:"not null"`
}

// Validate проверяет поля и концы ребра: from и to — разные приложения одного проекта.
func (i *Integration) Validate(from, to Application) error {
	if !i.IntegrationType.Valid() {
		return errs.Invalid("integration_type", "unknown integration type %q", i.IntegrationType)
	}
	if !i.Status.Valid() {
		return errs.Invalid("status", "unknown integration status %q", i.Status)
	}
	i.Complexity = i.Complexity.Normalize()
	if !i.Complexity.Valid() {
		return errs.Invalid("complexity", "unknown complexity %q", i.Complexity)
	}
	if i.EstimatedWeeks <= 0 {
		return errs.Invalid("estimated_weeks", "estimated weeks must be positive")
	}
	return ValidateEndpoints(from, to)
}

func ValidateEndpoints(from, to Application) error {
	if from.ID == 0 || to.ID == 0 {
		return errs.Invalid("", "both applications are required")
	}
	if from.ID == to.ID {
		return errs.Invalid("to_app_id", "source and target applications cannot be the same")
	}
	if from.ProjectID != to.ProjectID {
		return errs.Invalid("", "can only integrate applications within the same project")
	}
	return nil
}
