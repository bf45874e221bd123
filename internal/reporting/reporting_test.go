package reporting_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/models"
	"familyhub-tracker/internal/reporting"
	"familyhub-tracker/internal/testutil"
)

type fixture struct {
	db       *gorm.DB
	svc      *reporting.Service
	hub      models.Project
	other    models.Project
	timesht  models.Application
	daycare  models.Application
	otherApp models.Application
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := fixture{db: db, svc: reporting.New(db, clock.Fixed{At: testutil.Today.Add(12 * time.Hour)})}

	f.hub = testutil.Project(t, db, "FamilyHub", func(p *models.Project) {
		p.StartDate = testutil.DaysFromToday(-50)
		p.TargetDate = testutil.DaysFromToday(50)
	})
	f.other = testutil.Project(t, db, "Other", func(p *models.Project) { p.Status = models.ProjectCompleted })

	f.timesht = testutil.Application(t, db, f.hub.ID, "Timesheet Tracker")
	f.daycare = testutil.Application(t, db, f.hub.ID, "Daycare Invoice Tracker", func(a *models.Application) {
		a.Status = models.AppProduction
	})
	f.otherApp = testutil.Application(t, db, f.other.ID, "Elsewhere")

	est := func(e, a int) func(*models.Task) {
		return func(t *models.Task) { t.EstimatedHours, t.ActualHours = &e, &a }
	}
	testutil.Task(t, db, f.timesht.ID, "Design schema", models.TaskCompleted, est(8, 10))
	testutil.Task(t, db, f.timesht.ID, "Build API", models.TaskInProgress, func(t *models.Task) {
		t.DueDate = testutil.DaysFromToday(-2)
		t.Priority = models.PriorityHigh
	})
	testutil.Task(t, db, f.timesht.ID, "Write docs", models.TaskPending, func(t *models.Task) {
		t.DueDate = testutil.DaysFromToday(-5)
	})
	testutil.Task(t, db, f.daycare.ID, "Blocked on vendor", models.TaskBlocked, func(t *models.Task) {
		t.DueDate = testutil.DaysFromToday(-10)
	})
	testutil.Task(t, db, f.daycare.ID, "Ship", models.TaskCompleted, est(4, 3))
	testutil.Task(t, db, f.otherApp.ID, "Elsewhere overdue", models.TaskPending, func(t *models.Task) {
		t.DueDate = testutil.DaysFromToday(-1)
	})
	return f
}

func TestTotalsRespectProjectFilter(t *testing.T) {
	f := setup(t)

	all, err := f.svc.Totals(reporting.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Projects)
	assert.EqualValues(t, 3, all.Applications)
	assert.EqualValues(t, 6, all.Tasks)
	assert.InDelta(t, 50.0, all.ProjectCompletionRate, 0.001)

	hub, err := f.svc.Totals(reporting.Filter{ProjectID: &f.hub.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, hub.Projects)
	assert.EqualValues(t, 2, hub.Applications)
	assert.EqualValues(t, 5, hub.Tasks)
	assert.InDelta(t, 40.0, hub.TaskCompletionRate, 0.001)
	assert.InDelta(t, 50.0, hub.AppCompletionRate, 0.001)
}

func TestOverdueTasksExcludeBlockedAndSortByDueDate(t *testing.T) {
	f := setup(t)

	got, err := f.svc.OverdueTasks(reporting.Filter{ProjectID: &f.hub.ID}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Write docs", got[0].Title)
	assert.Equal(t, 5, got[0].DaysOverdue)
	assert.Equal(t, "Timesheet Tracker", got[0].Application)
	assert.Equal(t, "FamilyHub", got[0].Project)
	assert.Equal(t, "Build API", got[1].Title)

	n, err := f.svc.OverdueCount(reporting.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestProjectProgress(t *testing.T) {
	f := setup(t)

	p, err := f.svc.ProjectProgress(f.hub.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, p.TotalTasks)
	assert.EqualValues(t, 2, p.CompletedTasks)
	assert.Equal(t, 40.0, p.CompletionPercentage)

	require.Len(t, p.Applications, 2)
	// по имени: Daycare, Timesheet
	assert.Equal(t, "Daycare Invoice Tracker", p.Applications[0].Name)
	assert.Equal(t, 50.0, p.Applications[0].Progress)
	assert.Equal(t, 33.3, p.Applications[1].Progress)
	assert.EqualValues(t, 2, p.Applications[1].OverdueTasks)

	_, err = f.svc.ProjectProgress(999)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestProjectProgressWithoutTasks(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.Project(t, db, "Empty")
	testutil.Application(t, db, p.ID, "Nothing yet")

	got, err := reporting.New(db, clock.Fixed{At: testutil.Today}).ProjectProgress(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.CompletionPercentage)
	assert.Equal(t, 0.0, got.Applications[0].Progress)
}

func TestProjectStatistics(t *testing.T) {
	f := setup(t)
	testutil.Integration(t, f.db, f.timesht.ID, f.daycare.ID, models.IntegrationDataSharing, func(i *models.Integration) {
		i.Complexity = models.IntegrationComplex
		i.EstimatedWeeks = 2
	})
	testutil.Decision(t, f.db, f.hub.ID, "Pick a database")
	testutil.Artifact(t, f.db, &f.timesht.ID, "Requirements")

	st, err := f.svc.ProjectStatistics(f.hub.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.ApplicationsCount)
	assert.EqualValues(t, 5, st.TotalTasks)
	assert.EqualValues(t, 2, st.OverdueTasks)
	assert.EqualValues(t, 1, st.ArtifactsCount)
	assert.EqualValues(t, 1, st.PendingDecisions)
	assert.EqualValues(t, 12, st.EstimatedHours)
	assert.EqualValues(t, 13, st.ActualHours)
	assert.Equal(t, 200, st.IntegrationHours)
	assert.EqualValues(t, 1, st.TasksByStatus["blocked"])
	assert.EqualValues(t, 1, st.TasksByPriority["high"])
	// 40% при ожидаемых 50%: (0.6*0.4 + 0.4*0.8) * 100
	assert.Equal(t, 56.0, st.HealthScore)
	require.NotNil(t, st.DaysRemaining)
	assert.Equal(t, 50, *st.DaysRemaining)
}

func TestProjectHealth(t *testing.T) {
	f := setup(t)

	health, err := f.svc.ProjectHealth(reporting.Filter{})
	require.NoError(t, err)
	require.Len(t, health, 2)

	assert.Equal(t, "FamilyHub", health[0].ProjectName)
	assert.Equal(t, 56.0, health[0].HealthScore)
	assert.EqualValues(t, 2, health[0].OverdueTasks)
	assert.False(t, health[0].IsOverdue)

	assert.Equal(t, "Other", health[1].ProjectName)
	assert.Equal(t, 40.0, health[1].HealthScore)
}

func TestMonthlyTasksBucketsByUpdatedMonth(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.Project(t, db, "Chart")
	a := testutil.Application(t, db, p.ID, "App")

	at := func(y int, m time.Month, d int) func(*models.Task) {
		return func(t *models.Task) {
			ts := time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
			t.CreatedAt, t.UpdatedAt = ts, ts
		}
	}
	testutil.Task(t, db, a.ID, "a", models.TaskCompleted, at(2026, 9, 3))
	testutil.Task(t, db, a.ID, "b", models.TaskPending, at(2026, 9, 20))
	testutil.Task(t, db, a.ID, "c", models.TaskCompleted, at(2026, 10, 1))
	testutil.Task(t, db, a.ID, "old", models.TaskCompleted, at(2025, 1, 1))

	chart, err := reporting.New(db, clock.Fixed{At: testutil.Today}).MonthlyTasks(reporting.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"September 2026", "October 2026"}, chart.Labels)
	assert.Equal(t, []int64{1, 1}, chart.Completed)
	assert.Equal(t, []int64{2, 1}, chart.Total)
}

func TestRecentArtifactsWindow(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.Project(t, db, "Docs")
	a := testutil.Application(t, db, p.ID, "App")

	updated := func(days int) func(*models.Artifact) {
		return func(x *models.Artifact) {
			ts := testutil.Today.AddDate(0, 0, -days)
			x.CreatedAt, x.UpdatedAt = ts, ts
		}
	}
	testutil.Artifact(t, db, &a.ID, "fresh", updated(3))
	testutil.Artifact(t, db, &a.ID, "stale", updated(45))

	svc := reporting.New(db, clock.Fixed{At: testutil.Today})

	got, err := svc.RecentArtifacts(reporting.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Name)
	assert.Equal(t, "App", got[0].Application)

	got, err = svc.RecentArtifacts(reporting.Filter{DateRange: 90}, 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDashboardAndStats(t *testing.T) {
	f := setup(t)
	old := testutil.Today.AddDate(0, 0, -40)
	testutil.Decision(t, f.db, f.hub.ID, "Auth provider", func(d *models.Decision) { d.CreatedAt = old })
	require.NoError(t, database.RecordActivity(f.db, database.Activity{
		Entity: "task", EntityID: 1, ProjectID: &f.hub.ID, Action: "update", Details: "Task updated",
	}))

	d, err := f.svc.Dashboard(reporting.Filter{ProjectID: &f.hub.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 5, d.Stats.Tasks)
	assert.Len(t, d.OverdueTasks, 2)
	require.Len(t, d.PendingDecisions, 1)
	assert.True(t, d.PendingDecisions[0].PendingTooLong)
	assert.Equal(t, 40, d.PendingDecisions[0].AgeDays)
	require.Len(t, d.RecentActivity, 1)
	assert.Equal(t, "/tasks/1", d.RecentActivity[0].URL)
	assert.Equal(t, reporting.DefaultDateRange, d.DateRange)
	require.Len(t, d.StatusDistribution, 1)
	assert.Equal(t, "Active", d.StatusDistribution[0].Label)

	st, err := f.svc.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 6, st.Tasks)
	assert.Equal(t, 33.3, st.CompletionRate)
}
