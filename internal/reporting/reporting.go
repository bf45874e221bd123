// Package reporting собирает показатели трекера из базы: дашборд, прогресс
// и статистика проекта, "здоровье" проектов, графики. Фильтры передаются
// явно через Filter, а не берутся из сессии.
package reporting

import (
	"time"

	"gorm.io/gorm"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/metrics"
	"familyhub-tracker/internal/models"
)

const DefaultDateRange = 30

// Filter — параметры одного запроса отчёта.
type Filter struct {
	ProjectID *uint
	// DateRange — окно "свежих" артефактов в днях; <= 0 означает 30.
	DateRange int
}

func (f Filter) days() int {
	if f.DateRange <= 0 {
		return DefaultDateRange
	}
	return f.DateRange
}

type Service struct {
	db    *gorm.DB
	clock clock.Clock
}

func New(db *gorm.DB, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{db: db, clock: clk}
}

func (s *Service) today() time.Time { return clock.Today(s.clock) }

// appIDs — подзапрос id приложений проекта.
func (s *Service) appIDs(projectID uint) *gorm.DB {
	return s.db.Model(&models.Application{}).Select("id").Where("project_id = ?", projectID)
}

func (s *Service) projects(f Filter) *gorm.DB {
	q := s.db.Model(&models.Project{})
	if f.ProjectID != nil {
		q = q.Where("projects.id = ?", *f.ProjectID)
	}
	return q
}

func (s *Service) applications(f Filter) *gorm.DB {
	q := s.db.Model(&models.Application{})
	if f.ProjectID != nil {
		q = q.Where("applications.project_id = ?", *f.ProjectID)
	}
	return q
}

func (s *Service) tasks(f Filter) *gorm.DB {
	q := s.db.Model(&models.Task{})
	if f.ProjectID != nil {
		q = q.Where("tasks.application_id IN (?)", s.appIDs(*f.ProjectID))
	}
	return q
}

func (s *Service) artifacts(f Filter) *gorm.DB {
	q := s.db.Model(&models.Artifact{})
	if f.ProjectID != nil {
		q = q.Where("artifacts.application_id IN (?)", s.appIDs(*f.ProjectID))
	}
	return q
}

func (s *Service) decisions(f Filter) *gorm.DB {
	q := s.db.Model(&models.Decision{})
	if f.ProjectID != nil {
		q = q.Where("decisions.project_id = ?", *f.ProjectID)
	}
	return q
}

// overdueScope — условие просрочки для запросов по задачам.
func (s *Service) overdueScope(q *gorm.DB) *gorm.DB {
	return q.Where("tasks.due_date < ? AND tasks.status IN ?", s.today(), models.OpenTaskStatuses)
}

func count(q *gorm.DB) (int64, error) {
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// TaskCounts — счётчики задач по группе (проект или приложение).
type TaskCounts struct {
	Total     int64
	Completed int64
	Overdue   int64
}

func (c TaskCounts) Completion() float64 {
	return metrics.CompletionPercentage(c.Completed, c.Total)
}

// taskCountsBy группирует задачи по applications.<column>.
func (s *Service) taskCountsBy(column string, where func(*gorm.DB) *gorm.DB) (map[uint]TaskCounts, error) {
	var rows []struct {
		GroupKey  uint
		Total     int64
		Completed int64
		Overdue   int64
	}
	q := s.db.Model(&models.Task{}).
		Joins("JOIN applications ON applications.id = tasks.application_id").
		Select(
			"applications."+column+" AS group_key, COUNT(*) AS total, "+
				"SUM(CASE WHEN tasks.status = ? THEN 1 ELSE 0 END) AS completed, "+
				"SUM(CASE WHEN tasks.status IN ? AND tasks.due_date < ? THEN 1 ELSE 0 END) AS overdue",
			models.TaskCompleted, models.OpenTaskStatuses, s.today(),
		).
		Group("applications." + column)
	if where != nil {
		q = where(q)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[uint]TaskCounts, len(rows))
	for _, r := range rows {
		out[r.GroupKey] = TaskCounts{Total: r.Total, Completed: r.Completed, Overdue: r.Overdue}
	}
	return out, nil
}

// ProjectTaskCounts — счётчики задач по проектам.
func (s *Service) ProjectTaskCounts(projectIDs ...uint) (map[uint]TaskCounts, error) {
	return s.taskCountsBy("project_id", func(q *gorm.DB) *gorm.DB {
		if len(projectIDs) > 0 {
			return q.Where("applications.project_id IN ?", projectIDs)
		}
		return q
	})
}

// ApplicationTaskCounts — счётчики задач по приложениям (всех или одного проекта).
func (s *Service) ApplicationTaskCounts(projectID *uint) (map[uint]TaskCounts, error) {
	return s.taskCountsBy("id", func(q *gorm.DB) *gorm.DB {
		if projectID != nil {
			return q.Where("applications.project_id = ?", *projectID)
		}
		return q
	})
}

// ProjectCompletion — процент выполнения задач проекта.
func (s *Service) ProjectCompletion(projectID uint) (float64, error) {
	counts, err := s.ProjectTaskCounts(projectID)
	if err != nil {
		return 0, err
	}
	return counts[projectID].Completion(), nil
}

// OverdueCount — число просроченных задач в рамках фильтра.
func (s *Service) OverdueCount(f Filter) (int64, error) {
	return count(s.overdueScope(s.tasks(f)))
}

// StatusCount — одна строка распределения по статусам.
type StatusCount struct {
	Status   string          `json:"status"`
	Label    string          `json:"label"`
	Severity models.Severity `json:"severity"`
	Count    int64           `json:"count"`
}

// groupCount — COUNT(*) по колонке column, упорядочено по значению.
func groupCount(q *gorm.DB, column, displayField string) ([]StatusCount, error) {
	var rows []struct {
		Value string
		N     int64
	}
	if err := q.Select(column + " AS value, COUNT(*) AS n").Group(column).Order(column).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]StatusCount, 0, len(rows))
	for _, r := range rows {
		d := models.DisplayFor(displayField, r.Value)
		out = append(out, StatusCount{Status: r.Value, Label: d.Label, Severity: d.Severity, Count: r.N})
	}
	return out, nil
}

// ProjectStatusDistribution — проекты по статусам.
func (s *Service) ProjectStatusDistribution(f Filter) ([]StatusCount, error) {
	return groupCount(s.projects(f), "projects.status", "project_status")
}
