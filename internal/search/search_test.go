package search_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/models"
	"familyhub-tracker/internal/search"
	"familyhub-tracker/internal/testutil"
)

func TestRunGroupsAndRanksTitleMatchesFirst(t *testing.T) {
	db := testutil.NewDB(t)
	hub := testutil.Project(t, db, "FamilyHub")
	other := testutil.Project(t, db, "Budget")
	app := testutil.Application(t, db, hub.ID, "Timesheet Tracker")
	otherApp := testutil.Application(t, db, other.ID, "Ledger")

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	testutil.Task(t, db, app.ID, "Refactor storage", models.TaskPending, func(x *models.Task) {
		x.Description = "Move the invoice tables"
	})
	testutil.Task(t, db, app.ID, "Invoice export", models.TaskInProgress, func(x *models.Task) {
		x.CreatedAt, x.UpdatedAt = old, old
	})
	testutil.Task(t, db, otherApp.ID, "Invoice import", models.TaskPending)

	res, err := search.Run(db, search.Query{Text: "  INVOICE ", ProjectID: &hub.ID})
	require.NoError(t, err)
	assert.Equal(t, "INVOICE", res.Query)
	require.Len(t, res.Groups, len(models.AllKinds))

	tasks := res.Groups[2]
	assert.Equal(t, models.KindTasks, tasks.Kind)
	assert.Equal(t, "Tasks", tasks.Label)
	require.Len(t, tasks.Results, 2, "other project's task is filtered out")
	assert.Equal(t, "Invoice export", tasks.Results[0].Title, "title match ranks above description match")
	assert.Equal(t, "Refactor storage", tasks.Results[1].Title)
	assert.Equal(t, "task", tasks.Results[0].Type)
	assert.Equal(t, "in-progress", tasks.Results[0].Status)
	assert.Equal(t, "FamilyHub", tasks.Results[0].Project)
	assert.Equal(t, 2, res.Total)
}

func TestRunSingleKindAndLimit(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.Project(t, db, "FamilyHub")
	app := testutil.Application(t, db, p.ID, "Timesheet")
	for i := 0; i < 7; i++ {
		testutil.Task(t, db, app.ID, "Write docs", models.TaskPending)
	}
	testutil.Artifact(t, db, &app.ID, "API docs")

	res, err := search.Run(db, search.Query{Text: "docs", Kind: "tasks", Limit: search.APILimit})
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	assert.Len(t, res.Groups[0].Results, search.APILimit)
	assert.Len(t, res.Flat(), search.APILimit)
	assert.Equal(t, "/tasks/", res.Flat()[0].URL[:7])
}

func TestRunMatchesArtifactContentAndIntegrations(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.Project(t, db, "FamilyHub")
	a := testutil.Application(t, db, p.ID, "Timesheet")
	b := testutil.Application(t, db, p.ID, "Daycare")
	testutil.Artifact(t, db, &a.ID, "Schema", func(x *models.Artifact) { x.Content = "uses OAuth tokens" })
	testutil.Integration(t, db, a.ID, b.ID, models.IntegrationDataSharing, func(i *models.Integration) {
		i.Description = "Share OAuth sessions"
	})

	res, err := search.Run(db, search.Query{Text: "oauth", ProjectID: &p.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	flat := res.Flat()
	assert.Equal(t, "artifact", flat[0].Type)
	assert.Equal(t, "integration", flat[1].Type)
	assert.Equal(t, "Timesheet → Daycare", flat[1].Title)
}

func TestRunEscapesWildcards(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.Project(t, db, "100% done")
	testutil.Project(t, db, "1000 things")

	res, err := search.Run(db, search.Query{Text: "100%", Kind: "projects"})
	require.NoError(t, err)
	require.Len(t, res.Flat(), 1)
	assert.Equal(t, "100% done", res.Flat()[0].Title)
}

func TestRunEmptyAndInvalid(t *testing.T) {
	db := testutil.NewDB(t)

	res, err := search.Run(db, search.Query{Text: "   "})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Groups)

	_, err = search.Run(db, search.Query{Text: "x", Kind: "users"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestShortCountsRunes(t *testing.T) {
	long := strings.Repeat("ж", 150)
	assert.Equal(t, 100, len([]rune(search.Short(long))))
	assert.Equal(t, "short", search.Short(" short "))
}

func TestSuggestions(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.Project(t, db, "FamilyHub")
	testutil.Application(t, db, p.ID, "Family Budget")

	got, err := search.Suggestions(db, "fam")
	require.NoError(t, err)
	assert.Equal(t, []string{"Project: FamilyHub", "App: Family Budget"}, got)

	got, err = search.Suggestions(db, "f")
	require.NoError(t, err)
	assert.Empty(t, got)
}
