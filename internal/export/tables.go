package export

import (
	"strconv"
	"strings"
	"time"

	"familyhub-tracker/internal/metrics"
	"familyhub-tracker/internal/models"
)

// Column — колонка выгрузки: ключ в JSON/CSV и заголовок в Excel.
type Column struct {
	Key    string
	Header string
}

// Table — записи одного вида в фиксированном наборе колонок.
type Table struct {
	Kind    models.Kind
	Columns []Column
	Rows    [][]any
}

func (t Table) Len() int { return len(t.Rows) }

// Records — строки как объекты для JSON.
func (t Table) Records() []map[string]any {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			rec[c.Key] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

type field[T any] struct {
	key, header string
	value       func(T) any
}

func build[T any](kind models.Kind, fields []field[T], items []T) Table {
	t := Table{Kind: kind, Columns: make([]Column, len(fields)), Rows: make([][]any, 0, len(items))}
	for i, f := range fields {
		t.Columns[i] = Column{Key: f.key, Header: f.header}
	}
	for _, item := range items {
		row := make([]any, len(fields))
		for i, f := range fields {
			row[i] = f.value(item)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func date(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}

func stamp(t time.Time) any { return t.UTC().Format(time.RFC3339) }

func optInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func optID(v *uint) any {
	if v == nil {
		return nil
	}
	return *v
}

var projectFields = []field[models.Project]{
	{"id", "ID", func(p models.Project) any { return p.ID }},
	{"name", "Name", func(p models.Project) any { return p.Name }},
	{"description", "Description", func(p models.Project) any { return p.Description }},
	{"status", "Status", func(p models.Project) any { return string(p.Status) }},
	{"owner", "Owner", func(p models.Project) any {
		if p.Owner == nil {
			return ""
		}
		return p.Owner.Username
	}},
	{"start_date", "Start Date", func(p models.Project) any { return date(p.StartDate) }},
	{"target_date", "Target Date", func(p models.Project) any { return date(p.TargetDate) }},
	{"created_at", "Created", func(p models.Project) any { return stamp(p.CreatedAt) }},
	{"updated_at", "Updated", func(p models.Project) any { return stamp(p.UpdatedAt) }},
}

var applicationFields = []field[models.Application]{
	{"id", "ID", func(a models.Application) any { return a.ID }},
	{"name", "Name", func(a models.Application) any { return a.Name }},
	{"description", "Description", func(a models.Application) any { return a.Description }},
	{"status", "Status", func(a models.Application) any { return string(a.Status) }},
	{"complexity", "Complexity", func(a models.Application) any { return string(a.Complexity) }},
	{"estimated_weeks", "Estimated Weeks", func(a models.Application) any { return a.EstimatedWeeks }},
	{"features", "Features", func(a models.Application) any {
		if a.Features == nil {
			return []string{}
		}
		return []string(a.Features)
	}},
	{"project_id", "Project ID", func(a models.Application) any { return a.ProjectID }},
	{"project", "Project", func(a models.Application) any { return a.Project.Name }},
	{"created_at", "Created", func(a models.Application) any { return stamp(a.CreatedAt) }},
	{"updated_at", "Updated", func(a models.Application) any { return stamp(a.UpdatedAt) }},
}

var taskFields = []field[models.Task]{
	{"id", "ID", func(t models.Task) any { return t.ID }},
	{"title", "Title", func(t models.Task) any { return t.Title }},
	{"description", "Description", func(t models.Task) any { return t.Description }},
	{"status", "Status", func(t models.Task) any { return string(t.Status) }},
	{"priority", "Priority", func(t models.Task) any { return string(t.Priority) }},
	{"assignee", "Assignee", func(t models.Task) any { return string(t.Assignee) }},
	{"project", "Project", func(t models.Task) any { return t.Application.Project.Name }},
	{"application", "Application", func(t models.Task) any { return t.Application.Name }},
	{"due_date", "Due Date", func(t models.Task) any { return date(t.DueDate) }},
	{"estimated_hours", "Estimated Hours", func(t models.Task) any { return optInt(t.EstimatedHours) }},
	{"actual_hours", "Actual Hours", func(t models.Task) any { return optInt(t.ActualHours) }},
	{"created_at", "Created", func(t models.Task) any { return stamp(t.CreatedAt) }},
	{"updated_at", "Updated", func(t models.Task) any { return stamp(t.UpdatedAt) }},
}

var artifactFields = []field[models.Artifact]{
	{"id", "ID", func(a models.Artifact) any { return a.ID }},
	{"name", "Name", func(a models.Artifact) any { return a.Name }},
	{"type", "Type", func(a models.Artifact) any { return string(a.Type) }},
	{"description", "Description", func(a models.Artifact) any { return a.Description }},
	{"status", "Status", func(a models.Artifact) any { return string(a.Status) }},
	{"version", "Version", func(a models.Artifact) any { return a.Version }},
	{"application_id", "Application ID", func(a models.Artifact) any { return optID(a.ApplicationID) }},
	{"application", "Application", func(a models.Artifact) any {
		if a.Application == nil {
			return ""
		}
		return a.Application.Name
	}},
	{"file_name", "File", func(a models.Artifact) any { return a.FileName }},
	{"file_size", "File Size", func(a models.Artifact) any { return a.FileSize }},
	{"url", "URL", func(a models.Artifact) any { return a.URL }},
	{"created_at", "Created", func(a models.Artifact) any { return stamp(a.CreatedAt) }},
	{"updated_at", "Updated", func(a models.Artifact) any { return stamp(a.UpdatedAt) }},
}

var decisionFields = []field[models.Decision]{
	{"id", "ID", func(d models.Decision) any { return d.ID }},
	{"title", "Title", func(d models.Decision) any { return d.Title }},
	{"description", "Description", func(d models.Decision) any { return d.Description }},
	{"status", "Status", func(d models.Decision) any { return string(d.Status) }},
	{"impact", "Impact", func(d models.Decision) any { return string(d.Impact) }},
	{"decision_maker", "Decision Maker", func(d models.Decision) any { return d.DecisionMaker }},
	{"decided_date", "Decided", func(d models.Decision) any { return date(d.DecidedDate) }},
	{"project", "Project", func(d models.Decision) any { return d.Project.Name }},
	{"application", "Application", func(d models.Decision) any {
		if d.Application == nil {
			return ""
		}
		return d.Application.Name
	}},
	{"created_at", "Created", func(d models.Decision) any { return stamp(d.CreatedAt) }},
	{"updated_at", "Updated", func(d models.Decision) any { return stamp(d.UpdatedAt) }},
}

var integrationFields = []field[models.Integration]{
	{"id", "ID", func(i models.Integration) any { return i.ID }},
	{"from_app", "From", func(i models.Integration) any { return i.FromApp.Name }},
	{"to_app", "To", func(i models.Integration) any { return i.ToApp.Name }},
	{"integration_type", "Type", func(i models.Integration) any { return string(i.IntegrationType) }},
	{"status", "Status", func(i models.Integration) any { return string(i.Status) }},
	{"complexity", "Complexity", func(i models.Integration) any { return string(i.Complexity.Normalize()) }},
	{"estimated_weeks", "Estimated Weeks", func(i models.Integration) any { return i.EstimatedWeeks }},
	{"estimated_hours", "Estimated Hours", func(i models.Integration) any {
		return metrics.IntegrationEstimatedHours(i.EstimatedWeeks, i.Complexity)
	}},
	{"description", "Description", func(i models.Integration) any { return i.Description }},
	{"created_at", "Created", func(i models.Integration) any { return stamp(i.CreatedAt) }},
	{"updated_at", "Updated", func(i models.Integration) any { return stamp(i.UpdatedAt) }},
}

// cellText — значение ячейки строкой для CSV.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, "; ")
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	default:
		return ""
	}
}
