package models

import (
	"strings"

	"gorm.io/datatypes"

	"familyhub-tracker/internal/errs"
)

type ApplicationStatus string

const (
	AppPlanning    ApplicationStatus = "planning"
	AppReady       ApplicationStatus = "ready"
	AppDevelopment ApplicationStatus = "development"
	AppTesting     ApplicationStatus = "testing"
	AppProduction  ApplicationStatus = "production"
)

var ApplicationStatusChoices = []Choice{
	{string(AppPlanning), "Planning"},
	{string(AppReady), "Ready"},
	{string(AppDevelopment), "Development"},
	{string(AppTesting), "Testing"},
	{string(AppProduction), "Production"},
}

func (s ApplicationStatus) Valid() bool   { return validChoice(ApplicationStatusChoices, string(s)) }
func (s ApplicationStatus) Label() string { return labelOf(ApplicationStatusChoices, string(s)) }

type AppComplexity string

const (
	AppSimple AppComplexity = "simple"
	AppMedium AppComplexity = "medium"
	AppHigh   AppComplexity = "high"
)

var AppComplexityChoices = []Choice{
	{string(AppSimple), "Simple"},
	{string(AppMedium), "Medium"},
	{string(AppHigh), "High"},
}

func (c AppComplexity) Valid() bool   { return validChoice(AppComplexityChoices, string(c)) }
func (c AppComplexity) Label() string { return labelOf(AppComplexityChoices, string(c)) }

// DefaultWeeks — оценка в неделях, подставляемая формой по сложности.
func (c AppComplexity) DefaultWeeks() int {
	switch c {
	case AppSimple:
		return 2
	case AppHigh:
		return 8
	default:
		return 4
	}
}

type Application struct {
	Model
	ProjectID uint `gorm:"not null;uniqueIndex:idx_application_project_name"`
	Project   Project

	Name           string            `gorm:"size:100;not null;uniqueIndex:idx_application_project_name"`
	Description    string            `gorm:"type:text"`
	Status         ApplicationStatus `gorm:"type:varchar(20);not null;default:planning"`
	Complexity     AppComplexity     `gorm:"type:varchar(20);not null;default:medium"`
	EstimatedWeeks int               `gorm:"not null;default:4"`

	Features datatypes.JSONSlice[string]

	Tasks     []Task
	Artifacts []Artifact
}

func (a *Application) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return errs.Invalid("name", "application name is required")
	}
	if a.ProjectID == 0 {
		return errs.Invalid("project_id", "select a project")
	}
	if !a.Status.Valid() {
		return errs.Invalid("status", "unknown application status %q", a.Status)
	}
	if !a.Complexity.Valid() {
		return errs.Invalid("complexity", "unknown complexity %q", a.Complexity)
	}
	if a.EstimatedWeeks <= 0 {
		a.EstimatedWeeks = a.Complexity.DefaultWeeks()
	}
	return nil
}

// ParseFeatures — по одной фиче на строку, пустые строки пропускаются.
func ParseFeatures(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if f := strings.TrimSpace(line); f != "" {
			out = append(out, f)
		}
	}
	return out
}
