package reporting

import (
	"fmt"
	"sort"
	"time"

	"familyhub-tracker/internal/metrics"
	"familyhub-tracker/internal/models"
)

const dashboardListLimit = 10

type Totals struct {
	Projects              int64   `json:"total_projects"`
	Applications          int64   `json:"total_applications"`
	Tasks                 int64   `json:"total_tasks"`
	Artifacts             int64   `json:"total_artifacts"`
	ProjectCompletionRate float64 `json:"project_completion_rate"`
	AppCompletionRate     float64 `json:"app_completion_rate"`
	TaskCompletionRate    float64 `json:"task_completion_rate"`
}

type OverdueTask struct {
	ID          uint                `json:"id"`
	Title       string              `json:"title"`
	Project     string              `json:"project"`
	Application string              `json:"application"`
	Priority    models.TaskPriority `json:"priority"`
	Status      models.TaskStatus   `json:"status"`
	DueDate     string              `json:"due_date"`
	DaysOverdue int                 `json:"days_overdue"`
	URL         string              `json:"url"`
}

type PendingDecision struct {
	ID             uint          `json:"id"`
	Title          string        `json:"title"`
	Project        string        `json:"project"`
	Impact         models.Impact `json:"impact"`
	AgeDays        int           `json:"age_days"`
	PendingTooLong bool          `json:"pending_too_long"`
	CreatedAt      time.Time     `json:"created_at"`
	URL            string        `json:"url"`
}

type RecentArtifact struct {
	ID          uint                  `json:"id"`
	Name        string                `json:"name"`
	Type        models.ArtifactType   `json:"type"`
	Status      models.ArtifactStatus `json:"status"`
	Version     string                `json:"version"`
	Application string                `json:"application"`
	UpdatedAt   time.Time             `json:"updated_at"`
	URL         string                `json:"url"`
}

type Activity struct {
	Entity    string    `json:"type"`
	EntityID  uint      `json:"id"`
	Action    string    `json:"action"`
	Details   string    `json:"description"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
}

// MonthlyChart — задачи по месяцам последнего изменения, в формате Chart.js.
type MonthlyChart struct {
	Labels    []string `json:"labels"`
	Completed []int64  `json:"completed"`
	Total     []int64  `json:"total"`
}

type Dashboard struct {
	Stats              Totals            `json:"stats"`
	RecentArtifacts    []RecentArtifact  `json:"recent_artifacts"`
	RecentActivity     []Activity        `json:"recent_activity"`
	OverdueTasks       []OverdueTask     `json:"overdue_tasks"`
	PendingDecisions   []PendingDecision `json:"pending_decisions"`
	ChartData          MonthlyChart      `json:"chart_data"`
	StatusDistribution []StatusCount     `json:"status_distribution"`
	DateRange          int               `json:"date_range"`
	ProjectID          *uint             `json:"project_id"`
}

// Dashboard собирает главную страницу целиком.
func (s *Service) Dashboard(f Filter) (*Dashboard, error) {
	d := &Dashboard{DateRange: f.days(), ProjectID: f.ProjectID}

	var err error
	if d.Stats, err = s.Totals(f); err != nil {
		return nil, err
	}
	if d.RecentArtifacts, err = s.RecentArtifacts(f, dashboardListLimit); err != nil {
		return nil, err
	}
	if d.RecentActivity, err = s.RecentActivity(f, dashboardListLimit); err != nil {
		return nil, err
	}
	if d.OverdueTasks, err = s.OverdueTasks(f, dashboardListLimit); err != nil {
		return nil, err
	}
	if d.PendingDecisions, err = s.PendingDecisions(f, dashboardListLimit); err != nil {
		return nil, err
	}
	if d.ChartData, err = s.MonthlyTasks(f); err != nil {
		return nil, err
	}
	if d.StatusDistribution, err = s.ProjectStatusDistribution(f); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Totals(f Filter) (Totals, error) {
	var t Totals
	var doneProjects, liveApps, doneTasks int64
	var err error
	if t.Projects, err = count(s.projects(f)); err != nil {
		return t, err
	}
	if t.Applications, err = count(s.applications(f)); err != nil {
		return t, err
	}
	if t.Tasks, err = count(s.tasks(f)); err != nil {
		return t, err
	}
	if t.Artifacts, err = count(s.artifacts(f)); err != nil {
		return t, err
	}
	if doneProjects, err = count(s.projects(f).Where("projects.status = ?", models.ProjectCompleted)); err != nil {
		return t, err
	}
	if liveApps, err = count(s.applications(f).Where("applications.status = ?", models.AppProduction)); err != nil {
		return t, err
	}
	if doneTasks, err = count(s.tasks(f).Where("tasks.status = ?", models.TaskCompleted)); err != nil {
		return t, err
	}

	t.ProjectCompletionRate = metrics.Rate(doneProjects, t.Projects)
	t.AppCompletionRate = metrics.Rate(liveApps, t.Applications)
	t.TaskCompletionRate = metrics.Rate(doneTasks, t.Tasks)
	return t, nil
}

// OverdueTasks — просроченные задачи, самые старые сроки первыми.
func (s *Service) OverdueTasks(f Filter, limit int) ([]OverdueTask, error) {
	var tasks []models.Task
	err := s.overdueScope(s.tasks(f)).
		Preload("Application.Project").
		Order("tasks.due_date ASC, tasks.id ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	today := s.today()
	out := make([]OverdueTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, OverdueTask{
			ID:          t.ID,
			Title:       t.Title,
			Project:     t.Application.Project.Name,
			Application: t.Application.Name,
			Priority:    t.Priority,
			Status:      t.Status,
			DueDate:     t.DueDate.Format(time.DateOnly),
			DaysOverdue: metrics.DaysOverdue(t, today),
			URL:         fmt.Sprintf("/tasks/%d", t.ID),
		})
	}
	return out, nil
}

// PendingDecisions — нерешённые вопросы, новые первыми.
func (s *Service) PendingDecisions(f Filter, limit int) ([]PendingDecision, error) {
	var decisions []models.Decision
	err := s.decisions(f).
		Where("decisions.status = ?", models.DecisionPending).
		Preload("Project").
		Order("decisions.created_at DESC, decisions.id DESC").
		Limit(limit).
		Find(&decisions).Error
	if err != nil {
		return nil, err
	}

	today := s.today()
	out := make([]PendingDecision, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, PendingDecision{
			ID:             d.ID,
			Title:          d.Title,
			Project:        d.Project.Name,
			Impact:         d.Impact,
			AgeDays:        metrics.AgeInDays(d.CreatedAt, today),
			PendingTooLong: metrics.IsPendingTooLong(d.Status, d.CreatedAt, today),
			CreatedAt:      d.CreatedAt,
			URL:            fmt.Sprintf("/decisions/%d", d.ID),
		})
	}
	return out, nil
}

// RecentArtifacts — артефакты, изменённые за последние f.DateRange дней.
func (s *Service) RecentArtifacts(f Filter, limit int) ([]RecentArtifact, error) {
	cutoff := s.clock.Now().AddDate(0, 0, -f.days())

	var artifacts []models.Artifact
	err := s.artifacts(f).
		Where("artifacts.updated_at >= ?", cutoff).
		Preload("Application").
		Order("artifacts.updated_at DESC, artifacts.id DESC").
		Limit(limit).
		Find(&artifacts).Error
	if err != nil {
		return nil, err
	}

	out := make([]RecentArtifact, 0, len(artifacts))
	for _, a := range artifacts {
		row := RecentArtifact{
			ID:        a.ID,
			Name:      a.Name,
			Type:      a.Type,
			Status:    a.Status,
			Version:   a.Version,
			UpdatedAt: a.UpdatedAt,
			URL:       fmt.Sprintf("/artifacts/%d", a.ID),
		}
		if a.Application != nil {
			row.Application = a.Application.Name
		}
		out = append(out, row)
	}
	return out, nil
}

// RecentActivity — последние записи журнала активности.
func (s *Service) RecentActivity(f Filter, limit int) ([]Activity, error) {
	q := s.db.Model(&models.ActivityLog{}).Preload("User").Order("created_at DESC, id DESC").Limit(limit)
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}

	var logs []models.ActivityLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}

	out := make([]Activity, 0, len(logs))
	for _, l := range logs {
		a := Activity{
			Entity:    l.Entity,
			EntityID:  l.EntityID,
			Action:    l.Action,
			Details:   l.Details,
			Timestamp: l.CreatedAt,
			URL:       EntityURL(l.Entity, l.EntityID),
		}
		if l.User != nil {
			a.User = l.User.Username
		}
		out = append(out, a)
	}
	return out, nil
}

// MonthlyTasks — задачи, изменённые за последний год, по месяцам.
// Группировка в Go: TruncMonth по-разному пишется в SQLite и Postgres.
func (s *Service) MonthlyTasks(f Filter) (MonthlyChart, error) {
	since := s.clock.Now().AddDate(-1, 0, 0)

	var rows []struct {
		Status    models.TaskStatus
		UpdatedAt time.Time
	}
	err := s.tasks(f).
		Select("tasks.status, tasks.updated_at").
		Where("tasks.updated_at >= ?", since).
		Scan(&rows).Error
	if err != nil {
		return MonthlyChart{}, err
	}

	type bucket struct{ completed, total int64 }
	buckets := map[time.Time]*bucket{}
	for _, r := range rows {
		u := r.UpdatedAt.UTC()
		month := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
		b, ok := buckets[month]
		if !ok {
			b = &bucket{}
			buckets[month] = b
		}
		b.total++
		if r.Status == models.TaskCompleted {
			b.completed++
		}
	}

	months := make([]time.Time, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	chart := MonthlyChart{Labels: []string{}, Completed: []int64{}, Total: []int64{}}
	for _, m := range months {
		chart.Labels = append(chart.Labels, m.Format("January 2006"))
		chart.Completed = append(chart.Completed, buckets[m].completed)
		chart.Total = append(chart.Total, buckets[m].total)
	}
	return chart, nil
}

// EntityURL — ссылка на страницу сущности по имени из журнала.
func EntityURL(entity string, id uint) string {
	switch entity {
	case "project", "application", "task", "artifact", "decision", "integration":
		return fmt.Sprintf("/%ss/%d", entity, id)
	}
	return ""
}
