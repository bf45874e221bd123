package seed_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"familyhub-tracker/internal/clock"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/export"
	"familyhub-tracker/internal/models"
	"familyhub-tracker/internal/seed"
	"familyhub-tracker/internal/testutil"
)

var clk = clock.Fixed{At: testutil.Today.Add(10 * time.Hour)}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestComprehensiveDataset(t *testing.T) {
	db := testutil.NewDB(t)

	sum, err := seed.Run(db, clk, zerolog.Nop(), seed.Options{User: "alex"})
	require.NoError(t, err)

	assert.True(t, sum.OwnerCreated)
	assert.EqualValues(t, 1, sum.Projects)
	assert.EqualValues(t, 7, sum.Applications)
	assert.EqualValues(t, 8+2*6+4*6, sum.Tasks)
	assert.EqualValues(t, 3*7, sum.Artifacts)
	assert.EqualValues(t, 5, sum.Decisions)
	assert.EqualValues(t, 2, sum.Integrations)

	assert.Equal(t, sum.Tasks, count(t, db, &models.Task{}))
	assert.Equal(t, sum.Artifacts, count(t, db, &models.Artifact{}))

	var owner models.User
	require.NoError(t, db.Where("username = ?", "alex").First(&owner).Error)
	assert.Equal(t, "alex@familyhub.dev", owner.Email)
	assert.Equal(t, "Project Owner", owner.FullName())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(seed.DefaultPassword)))

	var project models.Project
	require.NoError(t, db.Where("name = ?", "FamilyHub").First(&project).Error)
	assert.Equal(t, models.ProjectActive, project.Status)
	require.NotNil(t, project.StartDate)
	require.NotNil(t, project.TargetDate)
	assert.True(t, project.StartDate.Equal(*testutil.DaysFromToday(-90)), project.StartDate)
	assert.True(t, project.TargetDate.Equal(*testutil.DaysFromToday(180)), project.TargetDate)
	require.NotNil(t, project.OwnerID)
	assert.Equal(t, owner.ID, *project.OwnerID)

	var timesheet models.Application
	require.NoError(t, db.Where("name = ?", "Timesheet Tracker").First(&timesheet).Error)
	assert.Equal(t, 4, timesheet.EstimatedWeeks)
	assert.Contains(t, []string(timesheet.Features), "Overlap validation")

	var tasks []models.Task
	require.NoError(t, db.Find(&tasks).Error)
	for _, task := range tasks {
		require.NotNil(t, task.DueDate, task.Title)
		assert.True(t, strings.Contains(task.Title, ": "), task.Title)
		switch task.Status {
		case models.TaskCompleted:
			assert.True(t, task.DueDate.Before(testutil.Today), task.Title)
		case models.TaskInProgress:
			assert.True(t, task.DueDate.After(testutil.Today), task.Title)
			assert.False(t, task.DueDate.After(*testutil.DaysFromToday(14)), task.Title)
		default:
			assert.False(t, task.DueDate.Before(*testutil.DaysFromToday(15)), task.Title)
		}
	}

	var artifact models.Artifact
	require.NoError(t, db.Where("name = ?", "AutoCraftCV - Test Plan").First(&artifact).Error)
	assert.Equal(t, "Sample content for Test Plan of AutoCraftCV.", artifact.Content)
	assert.Equal(t, "1.0", artifact.Version)

	var pending int64
	require.NoError(t, db.Model(&models.Decision{}).Where("status = ?", models.DecisionPending).Count(&pending).Error)
	assert.EqualValues(t, 1, pending)

	var api models.Integration
	require.NoError(t, db.Preload("FromApp").Where("integration_type = ?", models.IntegrationAPI).First(&api).Error)
	assert.Equal(t, "AutoCraftCV", api.FromApp.Name)
	assert.Equal(t, models.IntegrationComplex, api.Complexity)
}

func TestSecondRunNeedsReset(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := seed.Run(db, clk, zerolog.Nop(), seed.Options{})
	require.NoError(t, err)

	_, err = seed.Run(db, clk, zerolog.Nop(), seed.Options{})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.EqualValues(t, 1, count(t, db, &models.Project{}), "failed run leaves data untouched")

	sum, err := seed.Run(db, clk, zerolog.Nop(), seed.Options{Reset: true, Minimal: true})
	require.NoError(t, err)
	assert.False(t, sum.OwnerCreated, "admin exists from the first run")
	assert.EqualValues(t, 44, sum.Deleted["tasks"])
	assert.EqualValues(t, 2, sum.Deleted["integrations"])
	assert.EqualValues(t, 1, sum.Deleted["projects"])

	assert.EqualValues(t, 1, count(t, db, &models.Project{}))
	assert.EqualValues(t, 2, count(t, db, &models.Application{}))
	assert.EqualValues(t, 3, count(t, db, &models.Task{}))
	assert.EqualValues(t, 0, count(t, db, &models.Artifact{}))
	assert.EqualValues(t, 1, count(t, db, &models.User{}))
}

func TestMinimalDatasetUsesExistingOwner(t *testing.T) {
	db := testutil.NewDB(t)
	existing := testutil.User(t, db, "admin", models.RoleManager)

	sum, err := seed.Run(db, clk, zerolog.Nop(), seed.Options{Minimal: true})
	require.NoError(t, err)
	assert.False(t, sum.OwnerCreated)
	assert.EqualValues(t, 3, sum.Tasks)

	var daycare models.Application
	require.NoError(t, db.Where("name = ?", "Daycare Invoice Tracker").First(&daycare).Error)
	assert.Equal(t, models.AppSimple, daycare.Complexity)
	assert.Equal(t, models.AppProduction, daycare.Status)

	var project models.Project
	require.NoError(t, db.First(&project).Error)
	assert.Equal(t, existing.ID, *project.OwnerID)
}

func TestSeededDataExportRoundTrip(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := seed.Run(db, clk, zerolog.Nop(), seed.Options{})
	require.NoError(t, err)

	var project models.Project
	require.NoError(t, db.First(&project).Error)

	path := filepath.Join(t.TempDir(), "familyhub.json")
	_, err = export.NewExporter(db, clk, export.NewRegistry(false)).
		Export(export.Options{ProjectID: &project.ID, Format: export.FormatJSON}, path)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Data map[string][]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	want := map[string]int64{
		"projects":     count(t, db, &models.Project{}),
		"applications": count(t, db, &models.Application{}),
		"tasks":        count(t, db, &models.Task{}),
		"artifacts":    count(t, db, &models.Artifact{}),
		"decisions":    count(t, db, &models.Decision{}),
		"integrations": count(t, db, &models.Integration{}),
	}
	for kind, n := range want {
		assert.Len(t, doc.Data[kind], int(n), kind)
	}
}
