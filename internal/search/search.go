// Package search — поиск по всем видам сущностей трекера.
package search

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/models"
)

const (
	// PageLimit — результатов на вид для страницы /search.
	PageLimit = 10
	// APILimit — результатов на вид для /api/search.
	APILimit = 5

	descriptionRunes = 100
	suggestionLimit  = 3
	suggestionMinLen = 2
)

// KindAll — поиск по всем видам.
const KindAll = "all"

type Query struct {
	Text      string
	Kind      string
	ProjectID *uint
	Limit     int
}

// Normalize обрезает текст и проверяет вид.
func (q *Query) Normalize() error {
	q.Text = strings.TrimSpace(q.Text)
	q.Kind = strings.ToLower(strings.TrimSpace(q.Kind))
	if q.Kind == "" {
		q.Kind = KindAll
	}
	if q.Kind != KindAll {
		if _, ok := models.ParseKind(q.Kind); !ok {
			return errs.Invalid("type", "unknown search type %q", q.Kind)
		}
	}
	if q.Limit <= 0 {
		q.Limit = PageLimit
	}
	return nil
}

func (q Query) includes(k models.Kind) bool {
	return q.Kind == KindAll || q.Kind == string(k)
}

type Result struct {
	Type        string `json:"type"`
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Status      string `json:"status"`
	Project     string `json:"project,omitempty"`
}

// Group — результаты одного вида в порядке ранжирования.
type Group struct {
	Kind    models.Kind `json:"kind"`
	Label   string      `json:"label"`
	Results []Result    `json:"results"`
}

type Results struct {
	Query  string  `json:"query"`
	Groups []Group `json:"groups"`
	Total  int     `json:"total_results"`
}

// Flat — все результаты одним списком (для API).
func (r *Results) Flat() []Result {
	out := make([]Result, 0, r.Total)
	for _, g := range r.Groups {
		out = append(out, g.Results...)
	}
	return out
}

// Short обрезает описание до 100 символов (рун, не байт).
func Short(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= descriptionRunes {
		return s
	}
	return string([]rune(s)[:descriptionRunes])
}

func pattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(text)) + "%"
}

// matchAny — LOWER(col) LIKE ? по любой из колонок.
func matchAny(q *gorm.DB, pat string, columns ...string) *gorm.DB {
	parts := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		parts[i] = "LOWER(" + col + `) LIKE ? ESCAPE '\'`
		args[i] = pat
	}
	return q.Where("("+strings.Join(parts, " OR ")+")", args...)
}

// titleFirst: сначала совпадения в заголовке, затем свежие.
func titleFirst(q *gorm.DB, column, pat string) *gorm.DB {
	return q.Order(clause.OrderBy{Expression: clause.Expr{
		SQL:                "CASE WHEN LOWER(" + column + `) LIKE ? ESCAPE '\' THEN 0 ELSE 1 END, updated_at DESC, id`,
		Vars:               []any{pat},
		WithoutParentheses: true,
	}})
}

func url(kind models.Kind, id uint) string {
	return "/" + string(kind) + "/" + strconv.FormatUint(uint64(id), 10)
}

// Run выполняет поиск. Пустой текст даёт пустой результат без запросов.
func Run(db *gorm.DB, q Query) (*Results, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	res := &Results{Query: q.Text}
	if q.Text == "" {
		return res, nil
	}
	pat := pattern(q.Text)

	var appIDs *gorm.DB
	if q.ProjectID != nil {
		appIDs = db.Model(&models.Application{}).Select("id").Where("project_id = ?", *q.ProjectID)
	}

	for _, kind := range models.AllKinds {
		if !q.includes(kind) {
			continue
		}
		found, err := searchKind(db, kind, pat, q, appIDs)
		if err != nil {
			return nil, errs.Wrapf(err, "search %s", kind)
		}
		res.Groups = append(res.Groups, Group{Kind: kind, Label: kind.Label(), Results: found})
		res.Total += len(found)
	}
	return res, nil
}

func searchKind(db *gorm.DB, kind models.Kind, pat string, q Query, appIDs *gorm.DB) ([]Result, error) {
	switch kind {
	case models.KindProjects:
		var items []models.Project
		tx := matchAny(db, pat, "name", "description")
		if q.ProjectID != nil {
			tx = tx.Where("id = ?", *q.ProjectID)
		}
		if err := titleFirst(tx, "name", pat).Limit(q.Limit).Find(&items).Error; err != nil {
			return nil, err
		}
		out := make([]Result, 0, len(items))
		for _, p := range items {
			out = append(out, Result{Type: kind.Entity(), ID: p.ID, Title: p.Name, Description: Short(p.Description),
				URL: url(kind, p.ID), Status: string(p.Status)})
		}
		return out, nil

	case models.KindApplications:
		var items []models.Application
		tx := matchAny(db.Preload("Project"), pat, "name", "description")
		if q.ProjectID != nil {
			tx = tx.Where("project_id = ?", *q.ProjectID)
		}
		if err := titleFirst(tx, "name", pat).Limit(q.Limit).Find(&items).Error; err != nil {
			return nil, err
		}
		out := make([]Result, 0, len(items))
		for _, a := range items {
			out = append(out, Result{Type: kind.Entity(), ID: a.ID, Title: a.Name, Description: Short(a.Description),
				URL: url(kind, a.ID), Status: string(a.Status), Project: a.Project.Name})
		}
		return out, nil

	case models.KindTasks:
		var items []models.Task
		tx := matchAny(db.Preload("Application.Project"), pat, "title", "description")
		if appIDs != nil {
			tx = tx.Where("application_id IN (?)", appIDs)
		}
		if err := titleFirst(tx, "title", pat).Limit(q.Limit).Find(&items).Error; err != nil {
			return nil, err
		}
		out := make([]Result, 0, len(items))
		for _, t := range items {
			out = append(out, Result{Type: kind.Entity(), ID: t.ID, Title: t.Title, Description: Short(t.Description),
				URL: url(kind, t.ID), Status: string(t.Status), Project: t.Application.Project.Name})
		}
		return out, nil

	case models.KindArtifacts:
		var items []models.Artifact
		tx := matchAny(db, pat, "name", "content", "description")
		if appIDs != nil {
			tx = tx.Where("application_id IN (?)", appIDs)
		}
		if err := titleFirst(tx, "name", pat).Limit(q.Limit).Find(&items).Error; err != nil {
			return nil, err
		}
		out := make([]Result, 0, len(items))
		for _, a := range items {
			out = append(out, Result{Type: kind.Entity(), ID: a.ID, Title: a.Name, Description: Short(a.Description),
				URL: url(kind, a.ID), Status: string(a.Status)})
		}
		return out, nil

	case models.KindDecisions:
		var items []models.Decision
		tx := matchAny(db.Preload("Project"), pat, "title", "description")
		if q.ProjectID != nil {
			tx = tx.Where("project_id = ?", *q.ProjectID)
		}
		if err := titleFirst(tx, "title", pat).Limit(q.Limit).Find(&items).Error; err != nil {
			return nil, err
		}
		out := make([]Result, 0, len(items))
		for _, d := range items {
			out = append(out, Result{Type: kind.Entity(), ID: d.ID, Title: d.Title, Description: Short(d.Description),
				URL: url(kind, d.ID), Status: string(d.Status), Project: d.Project.Name})
		}
		return out, nil

	case models.KindIntegrations:
		var items []models.Integration
		tx := matchAny(db.Preload("FromApp").Preload("ToApp"), pat, "description")
		if appIDs != nil {
			tx = tx.Where("from_app_id IN (?) OR to_app_id IN (?)", appIDs, appIDs)
		}
		if err := tx.Order("updated_at DESC, id").Limit(q.Limit).Find(&items).Error; err != nil {
			return nil, err
		}
		out := make([]Result, 0, len(items))
		for _, i := range items {
			out = append(out, Result{Type: kind.Entity(), ID: i.ID, Title: i.FromApp.Name + " → " + i.ToApp.Name,
				Description: Short(i.Description), URL: url(kind, i.ID), Status: string(i.Status)})
		}
		return out, nil
	}
	return nil, errs.Invalid("type", "unknown search type %q", kind)
}

// Suggestions — подсказки по началу запроса: имена проектов и приложений.
func Suggestions(db *gorm.DB, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < suggestionMinLen {
		return []string{}, nil
	}
	pat := pattern(text)

	var projects, apps []string
	if err := matchAny(db.Model(&models.Project{}), pat, "name").
		Order("name").Limit(suggestionLimit).Pluck("name", &projects).Error; err != nil {
		return nil, errs.Wrap(err, "suggest projects")
	}
	if err := matchAny(db.Model(&models.Application{}), pat, "name").
		Order("name").Limit(suggestionLimit).Pluck("name", &apps).Error; err != nil {
		return nil, errs.Wrap(err, "suggest applications")
	}

	out := make([]string, 0, len(projects)+len(apps))
	for _, p := range projects {
		out = append(out, "Project: "+p)
	}
	for _, a := range apps {
		out = append(out, "App: "+a)
	}
	return out, nil
}
