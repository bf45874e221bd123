package database_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/models"
	"familyhub-tracker/internal/testutil"
)

func TestDialectorByDSN(t *testing.T) {
	assert.IsType(t, &postgres.Dialector{}, database.Dialector("postgres://u:p@localhost:5432/tracker"))
	assert.IsType(t, &postgres.Dialector{}, database.Dialector("host=db user=u dbname=tracker sslmode=disable"))
	assert.Equal(t, "sqlite", database.Dialector("sqlite:tracker.db").Name())
	assert.Equal(t, "sqlite", database.Dialector("tracker.db").Name())
}

func TestEnsureManagerIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)

	require.NoError(t, database.EnsureManager(db, "admin", "Admin123!", zerolog.Nop()))
	require.NoError(t, database.EnsureManager(db, "other", "Other123!", zerolog.Nop()))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, models.RoleManager, users[0].Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].PasswordHash), []byte("Admin123!")))
}

func TestDeleteProjectWalksOwnership(t *testing.T) {
	db := testutil.NewDB(t)

	p := testutil.Project(t, db, "FamilyHub")
	a1 := testutil.Application(t, db, p.ID, "Timesheet")
	a2 := testutil.Application(t, db, p.ID, "Daycare")
	testutil.Task(t, db, a1.ID, "t1", models.TaskPending)
	testutil.Task(t, db, a2.ID, "t2", models.TaskCompleted)
	testutil.Artifact(t, db, &a1.ID, "doc", func(a *models.Artifact) { a.FilePath = "artifacts/doc.md" })
	testutil.Decision(t, db, p.ID, "Use Postgres", func(d *models.Decision) { d.ApplicationID = &a1.ID })
	testutil.Integration(t, db, a1.ID, a2.ID, models.IntegrationDataSharing)

	other := testutil.Project(t, db, "Other")
	oa := testutil.Application(t, db, other.ID, "Keep")
	testutil.Task(t, db, oa.ID, "keep", models.TaskPending)
	standalone := testutil.Artifact(t, db, nil, "standalone")

	files, err := database.DeleteProject(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"artifacts/doc.md"}, files)

	count := func(model any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return n
	}
	assert.EqualValues(t, 1, count(&models.Project{}))
	assert.EqualValues(t, 1, count(&models.Application{}))
	assert.EqualValues(t, 1, count(&models.Task{}))
	assert.EqualValues(t, 0, count(&models.Decision{}))
	assert.EqualValues(t, 0, count(&models.Integration{}))
	assert.EqualValues(t, 1, count(&models.Artifact{}))

	var left models.Artifact
	require.NoError(t, db.First(&left).Error)
	assert.Equal(t, standalone.ID, left.ID)
}

func TestDeleteApplicationDetachesDecisions(t *testing.T) {
	db := testutil.NewDB(t)

	p := testutil.Project(t, db, "FamilyHub")
	a1 := testutil.Application(t, db, p.ID, "Timesheet")
	a2 := testutil.Application(t, db, p.ID, "Daycare")
	d := testutil.Decision(t, db, p.ID, "Shared auth", func(d *models.Decision) { d.ApplicationID = &a1.ID })
	testutil.Integration(t, db, a2.ID, a1.ID, models.IntegrationAPI)

	_, err := database.DeleteApplication(db, a1.ID)
	require.NoError(t, err)

	var got models.Decision
	require.NoError(t, db.First(&got, d.ID).Error)
	assert.Nil(t, got.ApplicationID)

	var n int64
	require.NoError(t, db.Model(&models.Integration{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDeleteMissing(t *testing.T) {
	db := testutil.NewDB(t)

	_, err := database.DeleteProject(db, 42)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	assert.ErrorIs(t, database.DeleteByID[models.Task](db, 42), errs.ErrNotFound)

	_, err = database.FindByID[models.Application](db, 42)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRecordActivity(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.User(t, db, "alex", models.RoleDeveloper)
	p := testutil.Project(t, db, "FamilyHub")

	require.NoError(t, database.RecordActivity(db, database.Activity{
		UserID: &u.ID, Entity: "project", EntityID: p.ID, ProjectID: &p.ID, Action: "create", Details: "Created FamilyHub",
	}))

	var logs []models.ActivityLog
	require.NoError(t, db.Preload("User").Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "alex", logs[0].User.Username)
	assert.Equal(t, p.ID, *logs[0].ProjectID)
}
