package reporting

import (
	"errors"

	"gorm.io/gorm"

	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/metrics"
	"familyhub-tracker/internal/models"
)

type AppProgress struct {
	ID             uint                     `json:"id"`
	Name           string                   `json:"name"`
	Status         models.ApplicationStatus `json:"status"`
	Progress       float64                  `json:"progress"`
	TotalTasks     int64                    `json:"total_tasks"`
	CompletedTasks int64                    `json:"completed_tasks"`
	OverdueTasks   int64                    `json:"overdue_tasks"`
}

type ProjectProgress struct {
	ID                   uint          `json:"id"`
	Name                 string        `json:"name"`
	CompletionPercentage float64       `json:"completion_percentage"`
	TotalTasks           int64         `json:"total_tasks"`
	CompletedTasks       int64         `json:"completed_tasks"`
	Applications         []AppProgress `json:"applications"`
}

type ProjectStatistics struct {
	ApplicationsCount    int64            `json:"applications_count"`
	TotalTasks           int64            `json:"total_tasks"`
	CompletedTasks       int64            `json:"completed_tasks"`
	OverdueTasks         int64            `json:"overdue_tasks"`
	ArtifactsCount       int64            `json:"artifacts_count"`
	DecisionsCount       int64            `json:"decisions_count"`
	PendingDecisions     int64            `json:"pending_decisions"`
	IntegrationsCount    int64            `json:"integrations_count"`
	EstimatedHours       int64            `json:"estimated_hours"`
	ActualHours          int64            `json:"actual_hours"`
	IntegrationHours     int              `json:"integration_hours"`
	TasksByStatus        map[string]int64 `json:"tasks_by_status"`
	TasksByPriority      map[string]int64 `json:"tasks_by_priority"`
	CompletionPercentage float64          `json:"completion_percentage"`
	HealthScore          float64          `json:"health_score"`
	DaysRemaining        *int             `json:"days_remaining"`
}

type ProjectHealth struct {
	ProjectID            uint                 `json:"project_id"`
	ProjectName          string               `json:"project_name"`
	HealthScore          float64              `json:"health_score"`
	CompletionPercentage float64              `json:"completion_percentage"`
	Status               models.ProjectStatus `json:"status"`
	IsOverdue            bool                 `json:"is_overdue"`
	OverdueTasks         int64                `json:"overdue_tasks"`
	DaysRemaining        *int                 `json:"days_remaining"`
}

// ProjectSummary — строка списка проектов.
type ProjectSummary struct {
	Project       models.Project
	Applications  int64
	Tasks         TaskCounts
	Completion    float64
	HealthScore   float64
	IsOverdue     bool
	DaysRemaining *int
}

type Stats struct {
	Projects       int64   `json:"projects"`
	Applications   int64   `json:"applications"`
	Tasks          int64   `json:"tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

func (s *Service) loadProject(id uint) (models.Project, error) {
	var p models.Project
	if err := s.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, errs.Wrapf(errs.ErrNotFound, "project %d", id)
		}
		return p, err
	}
	return p, nil
}

// ProjectProgress — выполнение проекта и каждого его приложения.
func (s *Service) ProjectProgress(projectID uint) (*ProjectProgress, error) {
	project, err := s.loadProject(projectID)
	if err != nil {
		return nil, err
	}

	var apps []models.Application
	if err := s.db.Where("project_id = ?", projectID).Order("name").Find(&apps).Error; err != nil {
		return nil, err
	}
	counts, err := s.ApplicationTaskCounts(&projectID)
	if err != nil {
		return nil, err
	}

	out := &ProjectProgress{ID: project.ID, Name: project.Name, Applications: make([]AppProgress, 0, len(apps))}
	for _, a := range apps {
		c := counts[a.ID]
		out.TotalTasks += c.Total
		out.CompletedTasks += c.Completed
		out.Applications = append(out.Applications, AppProgress{
			ID:             a.ID,
			Name:           a.Name,
			Status:         a.Status,
			Progress:       c.Completion(),
			TotalTasks:     c.Total,
			CompletedTasks: c.Completed,
			OverdueTasks:   c.Overdue,
		})
	}
	out.CompletionPercentage = metrics.CompletionPercentage(out.CompletedTasks, out.TotalTasks)
	return out, nil
}

// ProjectStatistics — сводка по одному проекту.
func (s *Service) ProjectStatistics(projectID uint) (*ProjectStatistics, error) {
	project, err := s.loadProject(projectID)
	if err != nil {
		return nil, err
	}
	f := Filter{ProjectID: &projectID}
	st := &ProjectStatistics{}

	if st.ApplicationsCount, err = count(s.applications(f)); err != nil {
		return nil, err
	}
	if st.TotalTasks, err = count(s.tasks(f)); err != nil {
		return nil, err
	}
	if st.CompletedTasks, err = count(s.tasks(f).Where("tasks.status = ?", models.TaskCompleted)); err != nil {
		return nil, err
	}
	if st.OverdueTasks, err = s.OverdueCount(f); err != nil {
		return nil, err
	}
	if st.ArtifactsCount, err = count(s.artifacts(f)); err != nil {
		return nil, err
	}
	if st.DecisionsCount, err = count(s.decisions(f)); err != nil {
		return nil, err
	}
	if st.PendingDecisions, err = count(s.decisions(f).Where("decisions.status = ?", models.DecisionPending)); err != nil {
		return nil, err
	}

	var hours struct {
		Estimated int64
		Actual    int64
	}
	if err := s.tasks(f).
		Select("COALESCE(SUM(tasks.estimated_hours), 0) AS estimated, COALESCE(SUM(tasks.actual_hours), 0) AS actual").
		Scan(&hours).Error; err != nil {
		return nil, err
	}
	st.EstimatedHours, st.ActualHours = hours.Estimated, hours.Actual

	var integrations []models.Integration
	if err := s.db.Where("from_app_id IN (?)", s.appIDs(projectID)).Find(&integrations).Error; err != nil {
		return nil, err
	}
	st.IntegrationsCount = int64(len(integrations))
	for _, i := range integrations {
		st.IntegrationHours += metrics.IntegrationEstimatedHours(i.EstimatedWeeks, i.Complexity)
	}

	if st.TasksByStatus, err = countMap(s.tasks(f), "tasks.status", "task_status"); err != nil {
		return nil, err
	}
	if st.TasksByPriority, err = countMap(s.tasks(f), "tasks.priority", "priority"); err != nil {
		return nil, err
	}

	today := s.today()
	st.CompletionPercentage = metrics.CompletionPercentage(st.CompletedTasks, st.TotalTasks)
	st.HealthScore = metrics.HealthScore(st.CompletionPercentage, project.StartDate, project.TargetDate, today)
	st.DaysRemaining = metrics.DaysRemaining(project.TargetDate, today)
	return st, nil
}

func countMap(q *gorm.DB, column, field string) (map[string]int64, error) {
	rows, err := groupCount(q, column, field)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// ProjectSummaries — показатели для переданных проектов, в том же порядке.
func (s *Service) ProjectSummaries(projects []models.Project) ([]ProjectSummary, error) {
	if len(projects) == 0 {
		return []ProjectSummary{}, nil
	}
	ids := make([]uint, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}

	counts, err := s.ProjectTaskCounts(ids...)
	if err != nil {
		return nil, err
	}

	var appRows []struct {
		ProjectID uint
		N         int64
	}
	if err := s.db.Model(&models.Application{}).
		Select("project_id, COUNT(*) AS n").
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&appRows).Error; err != nil {
		return nil, err
	}
	apps := make(map[uint]int64, len(appRows))
	for _, r := range appRows {
		apps[r.ProjectID] = r.N
	}

	today := s.today()
	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		c := counts[p.ID]
		completion := c.Completion()
		out = append(out, ProjectSummary{
			Project:       p,
			Applications:  apps[p.ID],
			Tasks:         c,
			Completion:    completion,
			HealthScore:   metrics.HealthScore(completion, p.StartDate, p.TargetDate, today),
			IsOverdue:     metrics.ProjectIsOverdue(p, today),
			DaysRemaining: metrics.DaysRemaining(p.TargetDate, today),
		})
	}
	return out, nil
}

// ProjectHealth — "здоровье" всех проектов (или одного по фильтру).
func (s *Service) ProjectHealth(f Filter) ([]ProjectHealth, error) {
	var projects []models.Project
	if err := s.projects(f).Order("name").Find(&projects).Error; err != nil {
		return nil, err
	}
	summaries, err := s.ProjectSummaries(projects)
	if err != nil {
		return nil, err
	}

	out := make([]ProjectHealth, 0, len(summaries))
	for _, sm := range summaries {
		out = append(out, ProjectHealth{
			ProjectID:            sm.Project.ID,
			ProjectName:          sm.Project.Name,
			HealthScore:          sm.HealthScore,
			CompletionPercentage: sm.Completion,
			Status:               sm.Project.Status,
			IsOverdue:            sm.IsOverdue,
			OverdueTasks:         sm.Tasks.Overdue,
			DaysRemaining:        sm.DaysRemaining,
		})
	}
	return out, nil
}

// Stats — счётчики для подвала страниц.
func (s *Service) Stats() (Stats, error) {
	var st Stats
	var done int64
	var err error
	if st.Projects, err = count(s.db.Model(&models.Project{})); err != nil {
		return st, err
	}
	if st.Applications, err = count(s.db.Model(&models.Application{})); err != nil {
		return st, err
	}
	if st.Tasks, err = count(s.db.Model(&models.Task{})); err != nil {
		return st, err
	}
	if done, err = count(s.db.Model(&models.Task{}).Where("status = ?", models.TaskCompleted)); err != nil {
		return st, err
	}
	st.CompletionRate = metrics.CompletionPercentage(done, st.Tasks)
	return st, nil
}
