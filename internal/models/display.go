package models

// Severity — цвет бейджа в шаблонах (классы bootstrap).
type Severity string

const (
	SeveritySecondary Severity = "secondary"
	SeverityInfo      Severity = "info"
	SeverityPrimary   Severity = "primary"
	SeveritySuccess   Severity = "success"
	SeverityWarning   Severity = "warning"
	SeverityDanger    Severity = "danger"
)

// Display — метаданные отображения значения перечисления.
type Display struct {
	Label    string
	Severity Severity
}

type displayTable struct {
	choices  []Choice
	severity map[string]Severity
}

var displayTables = map[string]displayTable{
	"project_status": {ProjectStatusChoices, map[string]Severity{
		"planning": SeverityInfo, "active": SeverityPrimary, "on-hold": SeverityWarning,
		"completed": SeveritySuccess, "cancelled": SeverityDanger,
	}},
	"application_status": {ApplicationStatusChoices, map[string]Severity{
		"planning": SeverityInfo, "ready": SeveritySecondary, "development": SeverityPrimary,
		"testing": SeverityWarning, "production": SeveritySuccess,
	}},
	"task_status": {TaskStatusChoices, map[string]Severity{
		"pending": SeveritySecondary, "in-progress": SeverityPrimary,
		"completed": SeveritySuccess, "blocked": SeverityDanger,
	}},
	"priority": {TaskPriorityChoices, map[string]Severity{
		"low": SeveritySecondary, "medium": SeverityInfo, "high": SeverityWarning, "critical": SeverityDanger,
	}},
	"artifact_status": {ArtifactStatusChoices, map[string]Severity{
		"draft": SeveritySecondary, "in-progress": SeverityPrimary, "review": SeverityWarning, "complete": SeveritySuccess,
	}},
	"decision_status": {DecisionStatusChoices, map[string]Severity{
		"pending": SeverityWarning, "decided": SeverityPrimary, "implemented": SeveritySuccess, "changed": SeverityInfo,
	}},
	"impact": {ImpactChoices, map[string]Severity{
		"low": SeveritySecondary, "medium": SeverityInfo, "high": SeverityWarning, "critical": SeverityDanger,
	}},
	"integration_status": {IntegrationStatusChoices, map[string]Severity{
		"planned": SeverityInfo, "in-progress": SeverityPrimary, "completed": SeveritySuccess, "blocked": SeverityDanger,
	}},
	"complexity": {IntegrationComplexityChoices, map[string]Severity{
		"simple": SeveritySuccess, "medium": SeverityWarning, "complex": SeverityDanger, "high": SeverityDanger,
	}},
}

// DisplayFor возвращает подпись и цвет для значения поля field
// ("task_status", "priority", ...). Неизвестное — как есть, secondary.
func DisplayFor(field, value string) Display {
	table, ok := displayTables[field]
	if !ok {
		return Display{Label: value, Severity: SeveritySecondary}
	}
	sev, ok := table.severity[value]
	if !ok {
		sev = SeveritySecondary
	}
	label := labelOf(table.choices, value)
	if value == "high" && field == "complexity" {
		label = "Complex"
	}
	return Display{Label: label, Severity: sev}
}
