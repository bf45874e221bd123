// Package export выгружает данные трекера в JSON, CSV и Excel.
//
// Снимок строится одним запросом на вид сущности; фильтр по проекту
// проходит по цепочке владения: приложения проекта, их задачи и артефакты,
// решения проекта и интеграции, исходящие из его приложений.
package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/models"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ParseFormat принимает json, csv, excel (и xlsx как синоним).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	}
	return "", errs.Invalid("format", "unknown export format %q (json, csv, excel)", s)
}

// Extension — расширение файла по умолчанию.
func (f Format) Extension() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return string(f)
}

// ParseKinds разбирает список видов; пустой список — все виды.
// Результат всегда в каноническом порядке и без повторов.
func ParseKinds(values []string) ([]models.Kind, error) {
	seen := map[models.Kind]bool{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			k, ok := models.ParseKind(part)
			if !ok {
				return nil, errs.Invalid("include", "unknown data type %q", part)
			}
			seen[k] = true
		}
	}
	if len(seen) == 0 {
		return append([]models.Kind(nil), models.AllKinds...), nil
	}
	out := make([]models.Kind, 0, len(seen))
	for _, k := range models.AllKinds {
		if seen[k] {
			out = append(out, k)
		}
	}
	return out, nil
}

type Options struct {
	ProjectID *uint
	Format    Format
	Include   []models.Kind
}

// Info — блок export_info.
type Info struct {
	ExportID     string        `json:"export_id"`
	Timestamp    time.Time     `json:"timestamp"`
	Format       Format        `json:"format"`
	Project      string        `json:"project"`
	IncludeTypes []models.Kind `json:"include_types"`
}

// Document — готовая к записи выгрузка.
type Document struct {
	Info   Info
	Tables []Table
}

func (d *Document) Table(kind models.Kind) (Table, bool) {
	for _, t := range d.Tables {
		if t.Kind == kind {
			return t, true
		}
	}
	return Table{}, false
}

func (d *Document) Total() int {
	n := 0
	for _, t := range d.Tables {
		n += t.Len()
	}
	return n
}

// Summary — результат Export для вывода в консоль.
type Summary struct {
	Info   Info
	Counts map[models.Kind]int
	Total  int
	Files  []string
}

type Exporter struct {
	db       *gorm.DB
	clock    clock.Clock
	registry *Registry
}

func NewExporter(db *gorm.DB, clk clock.Clock, registry *Registry) *Exporter {
	if clk == nil {
		clk = clock.Real{}
	}
	if registry == nil {
		registry = NewRegistry(true)
	}
	return &Exporter{db: db, clock: clk, registry: registry}
}

// Build читает снимок и раскладывает его по таблицам.
func (e *Exporter) Build(opts Options) (*Document, error) {
	include := opts.Include
	if len(include) == 0 {
		include = models.AllKinds
	}

	info := Info{
		ExportID:     uuid.NewString(),
		Timestamp:    e.clock.Now().UTC(),
		Format:       opts.Format,
		Project:      "all",
		IncludeTypes: include,
	}

	if opts.ProjectID != nil {
		var p models.Project
		if err := e.db.First(&p, *opts.ProjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.Wrapf(errs.ErrNotFound, "project with ID %d", *opts.ProjectID)
			}
			return nil, errs.Wrap(err, "load project")
		}
		info.Project = p.Name
	}

	doc := &Document{Info: info}
	for _, kind := range include {
		t, err := e.table(kind, opts.ProjectID)
		if err != nil {
			return nil, errs.Wrapf(err, "export %s", kind)
		}
		doc.Tables = append(doc.Tables, t)
	}
	return doc, nil
}

func (e *Exporter) table(kind models.Kind, projectID *uint) (Table, error) {
	var appIDs *gorm.DB
	if projectID != nil {
		appIDs = e.db.Model(&models.Application{}).Select("id").Where("project_id = ?", *projectID)
	}

	switch kind {
	case models.KindProjects:
		var items []models.Project
		q := e.db.Preload("Owner").Order("id")
		if projectID != nil {
			q = q.Where("id = ?", *projectID)
		}
		err := q.Find(&items).Error
		return build(kind, projectFields, items), err

	case models.KindApplications:
		var items []models.Application
		q := e.db.Preload("Project").Order("id")
		if projectID != nil {
			q = q.Where("project_id = ?", *projectID)
		}
		err := q.Find(&items).Error
		return build(kind, applicationFields, items), err

	case models.KindTasks:
		var items []models.Task
		q := e.db.Preload("Application.Project").Order("id")
		if appIDs != nil {
			q = q.Where("application_id IN (?)", appIDs)
		}
		err := q.Find(&items).Error
		return build(kind, taskFields, items), err

	case models.KindArtifacts:
		var items []models.Artifact
		q := e.db.Preload("Application").Order("id")
		if appIDs != nil {
			q = q.Where("application_id IN (?)", appIDs)
		}
		err := q.Find(&items).Error
		return build(kind, artifactFields, items), err

	case models.KindDecisions:
		var items []models.Decision
		q := e.db.Preload("Project").Preload("Application").Order("id")
		if projectID != nil {
			q = q.Where("project_id = ?", *projectID)
		}
		err := q.Find(&items).Error
		return build(kind, decisionFields, items), err

	case models.KindIntegrations:
		var items []models.Integration
		q := e.db.Preload("FromApp").Preload("ToApp").Order("id")
		if appIDs != nil {
			q = q.Where("from_app_id IN (?)", appIDs)
		}
		err := q.Find(&items).Error
		return build(kind, integrationFields, items), err
	}
	return Table{}, errs.Invalid("include", "unknown data type %q", kind)
}

// Export строит снимок и пишет его в path. Каталог должен существовать.
func (e *Exporter) Export(opts Options, path string) (*Summary, error) {
	w, err := e.registry.Get(opts.Format)
	if err != nil {
		return nil, err
	}
	doc, err := e.Build(opts)
	if err != nil {
		return nil, err
	}
	files, err := w.WriteFiles(doc, path)
	if err != nil {
		return nil, errs.Wrapf(err, "write %s export", opts.Format)
	}

	s := &Summary{Info: doc.Info, Counts: map[models.Kind]int{}, Total: doc.Total(), Files: files}
	for _, t := range doc.Tables {
		s.Counts[t.Kind] = t.Len()
	}
	return s, nil
}

// Writer — запись документа в одном формате.
func (e *Exporter) Writer(f Format) (Writer, error) { return e.registry.Get(f) }

// DefaultPath — <dir>/familyhub_export_YYYYMMDD_HHMMSS.<ext>.
func DefaultPath(dir string, f Format, now time.Time) string {
	name := fmt.Sprintf("familyhub_export_%s.%s", now.Format("20060102_150405"), f.Extension())
	return filepath.Join(dir, name)
}
