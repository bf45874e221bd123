package export_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/export"
	"familyhub-tracker/internal/models"
	"familyhub-tracker/internal/testutil"
)

var fixedNow = clock.Fixed{At: time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)}

type world struct {
	db       *gorm.DB
	hub      models.Project
	other    models.Project
	hubApps  []models.Application
	otherApp models.Application
}

func seedWorld(t *testing.T) world {
	t.Helper()
	db := testutil.NewDB(t)
	owner := testutil.User(t, db, "owner", models.RoleManager)

	w := world{db: db}
	w.hub = testutil.Project(t, db, "FamilyHub", func(p *models.Project) { p.OwnerID = &owner.ID })
	w.other = testutil.Project(t, db, "Other")

	for _, name := range []string{"Timesheet", "Daycare", "AutoCraftCV"} {
		w.hubApps = append(w.hubApps, testutil.Application(t, db, w.hub.ID, name, func(a *models.Application) {
			a.Features = []string{"Time tracking", "Reports"}
		}))
	}
	w.otherApp = testutil.Application(t, db, w.other.ID, "Elsewhere")

	for _, a := range w.hubApps {
		testutil.Task(t, db, a.ID, a.Name+": setup", models.TaskCompleted)
		testutil.Task(t, db, a.ID, a.Name+": build", models.TaskPending, func(x *models.Task) {
			x.DueDate = testutil.Date(2026, 11, 1)
		})
		testutil.Artifact(t, db, &a.ID, a.Name+" - Requirements")
	}
	testutil.Task(t, db, w.otherApp.ID, "leak?", models.TaskPending)
	testutil.Artifact(t, db, &w.otherApp.ID, "other doc")
	testutil.Artifact(t, db, nil, "standalone")

	testutil.Decision(t, db, w.hub.ID, "Use Postgres")
	testutil.Decision(t, db, w.other.ID, "Other decision")

	testutil.Integration(t, db, w.hubApps[0].ID, w.hubApps[1].ID, models.IntegrationDataSharing)
	testutil.Integration(t, db, w.hubApps[2].ID, w.hubApps[0].ID, models.IntegrationAPI, func(i *models.Integration) {
		i.Complexity = models.IntegrationComplex
		i.EstimatedWeeks = 2
	})
	return w
}

func TestProjectFilterDoesNotLeak(t *testing.T) {
	w := seedWorld(t)
	ex := export.NewExporter(w.db, fixedNow, export.NewRegistry(false))

	doc, err := ex.Build(export.Options{ProjectID: &w.hub.ID, Format: export.FormatJSON, Include: []models.Kind{models.KindTasks}})
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)

	tasks, ok := doc.Table(models.KindTasks)
	require.True(t, ok)
	assert.Equal(t, 6, tasks.Len())
	for _, rec := range tasks.Records() {
		assert.Equal(t, "FamilyHub", rec["project"])
		assert.NotEqual(t, "leak?", rec["title"])
	}
	assert.Equal(t, "FamilyHub", doc.Info.Project)
	assert.Equal(t, []models.Kind{models.KindTasks}, doc.Info.IncludeTypes)
}

func TestJSONRoundTripMatchesFilteredCounts(t *testing.T) {
	w := seedWorld(t)
	ex := export.NewExporter(w.db, fixedNow, export.NewRegistry(false))

	path := filepath.Join(t.TempDir(), "export.json")
	summary, err := ex.Export(export.Options{ProjectID: &w.hub.ID, Format: export.FormatJSON}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, summary.Files)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		ExportInfo struct {
			ExportID     string   `json:"export_id"`
			Timestamp    string   `json:"timestamp"`
			Format       string   `json:"format"`
			Project      string   `json:"project"`
			IncludeTypes []string `json:"include_types"`
		} `json:"export_info"`
		Data map[string][]map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.NotEmpty(t, doc.ExportInfo.ExportID)
	assert.Equal(t, "2026-10-15T09:30:00Z", doc.ExportInfo.Timestamp)
	assert.Equal(t, "json", doc.ExportInfo.Format)
	assert.Equal(t, "FamilyHub", doc.ExportInfo.Project)
	assert.Equal(t, []string{"projects", "applications", "tasks", "artifacts", "decisions", "integrations"}, doc.ExportInfo.IncludeTypes)

	want := map[string]int{"projects": 1, "applications": 3, "tasks": 6, "artifacts": 3, "decisions": 1, "integrations": 2}
	for kind, n := range want {
		assert.Len(t, doc.Data[kind], n, kind)
		assert.Equal(t, n, summary.Counts[models.Kind(kind)], kind)
	}
	assert.Equal(t, 16, summary.Total)

	project := doc.Data["projects"][0]
	assert.Equal(t, "owner", project["owner"])
	app := doc.Data["applications"][0]
	assert.Equal(t, []any{"Time tracking", "Reports"}, app["features"])
	integration := doc.Data["integrations"][1]
	assert.Equal(t, "AutoCraftCV", integration["from_app"])
	assert.EqualValues(t, 200, integration["estimated_hours"])
}

func TestUnfilteredExportIncludesEverything(t *testing.T) {
	w := seedWorld(t)
	ex := export.NewExporter(w.db, fixedNow, nil)

	doc, err := ex.Build(export.Options{Format: export.FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, "all", doc.Info.Project)

	counts := map[models.Kind]int{}
	for _, tbl := range doc.Tables {
		counts[tbl.Kind] = tbl.Len()
	}
	assert.Equal(t, map[models.Kind]int{
		models.KindProjects: 2, models.KindApplications: 4, models.KindTasks: 7,
		models.KindArtifacts: 5, models.KindDecisions: 2, models.KindIntegrations: 2,
	}, counts)
}

func TestCSVWritesOneFilePerKindWithFixedColumns(t *testing.T) {
	w := seedWorld(t)
	ex := export.NewExporter(w.db, fixedNow, export.NewRegistry(false))

	dir := t.TempDir()
	summary, err := ex.Export(export.Options{
		ProjectID: &w.other.ID,
		Format:    export.FormatCSV,
		Include:   []models.Kind{models.KindTasks, models.KindIntegrations},
	}, filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "out_tasks.csv"),
		filepath.Join(dir, "out_integrations.csv"),
	}, summary.Files)

	readCSV := func(name string) [][]string {
		f, err := os.Open(name)
		require.NoError(t, err)
		defer f.Close()
		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		return rows
	}

	tasks := readCSV(summary.Files[0])
	require.Len(t, tasks, 2)
	assert.Equal(t, []string{
		"id", "title", "description", "status", "priority", "assignee", "project", "application",
		"due_date", "estimated_hours", "actual_hours", "created_at", "updated_at",
	}, tasks[0])
	assert.Equal(t, "leak?", tasks[1][1])
	assert.Equal(t, "", tasks[1][8], "no due date")

	integrations := readCSV(summary.Files[1])
	require.Len(t, integrations, 1, "header only")
	assert.Equal(t, "id", integrations[0][0])
}

func TestExcelWorkbookLayout(t *testing.T) {
	w := seedWorld(t)
	ex := export.NewExporter(w.db, fixedNow, export.NewRegistry(true))

	path := filepath.Join(t.TempDir(), "export.xlsx")
	_, err := ex.Export(export.Options{ProjectID: &w.hub.ID, Format: export.FormatExcel}, path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Projects", "Applications", "Tasks", "Artifacts", "Decisions", "Integrations"}, f.GetSheetList())

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, "FamilyHub Development Tracker - Export Summary", summary[0][0])
	assert.Equal(t, []string{"Project:", "FamilyHub"}, summary[2])
	assert.Equal(t, []string{"Data Type", "Record Count"}, summary[5])
	assert.Equal(t, []string{"Tasks", "6"}, summary[8])

	tasks, err := f.GetRows("Tasks")
	require.NoError(t, err)
	assert.Len(t, tasks, 7)
	assert.Equal(t, "Title", tasks[0][1])

	styleID, err := f.GetCellStyle("Tasks", "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	assert.Equal(t, 1, style.Fill.Pattern)
}

func TestExcelUnavailableIsConfigurationError(t *testing.T) {
	w := seedWorld(t)
	ex := export.NewExporter(w.db, fixedNow, export.NewRegistry(false))

	_, err := ex.Export(export.Options{Format: export.FormatExcel}, filepath.Join(t.TempDir(), "x.xlsx"))
	require.ErrorIs(t, err, errs.ErrFormatUnavailable)
	assert.NotErrorIs(t, err, errs.ErrValidation)
}

func TestUnknownProject(t *testing.T) {
	w := seedWorld(t)
	missing := uint(999)
	_, err := export.NewExporter(w.db, fixedNow, nil).Build(export.Options{ProjectID: &missing})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStreamCSVSingleKind(t *testing.T) {
	w := seedWorld(t)
	ex := export.NewExporter(w.db, fixedNow, nil)

	doc, err := ex.Build(export.Options{Format: export.FormatCSV, Include: []models.Kind{models.KindDecisions}})
	require.NoError(t, err)
	wr, err := ex.Writer(export.FormatCSV)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, wr.Stream(doc, &buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestParseHelpers(t *testing.T) {
	f, err := export.ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, export.FormatExcel, f)
	_, err = export.ParseFormat("pdf")
	assert.ErrorIs(t, err, errs.ErrValidation)

	kinds, err := export.ParseKinds([]string{"tasks,projects", "tasks"})
	require.NoError(t, err)
	assert.Equal(t, []models.Kind{models.KindProjects, models.KindTasks}, kinds)

	all, err := export.ParseKinds(nil)
	require.NoError(t, err)
	assert.Equal(t, models.AllKinds, all)

	_, err = export.ParseKinds([]string{"users"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	assert.Equal(t, filepath.Join("exports", "familyhub_export_20261015_093000.xlsx"),
		export.DefaultPath("exports", export.FormatExcel, fixedNow.At))
	assert.Equal(t, "Integrations", export.SheetName(models.KindIntegrations))
}
