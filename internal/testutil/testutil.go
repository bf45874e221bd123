// Package testutil — временная SQLite-база и фикстуры для тестов.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"familyhub-tracker/internal/database"
	"familyhub-tracker/internal/models"
)

// Today — "сегодня" для всех тестов с фиксированными часами.
var Today = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

// NewDB открывает чистую базу в t.TempDir() с включёнными внешними ключами.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "sqlite:" + filepath.Join(t.TempDir(), "tracker.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := database.Open(dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Date — дата в UTC, как её хранит трекер.
func Date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// DaysFromToday — Today + n дней.
func DaysFromToday(n int) *time.Time {
	t := Today.AddDate(0, 0, n)
	return &t
}

func Ptr[T any](v T) *T { return &v }

func User(t *testing.T, db *gorm.DB, username string, role models.UserRole) models.User {
	t.Helper()
	u := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func Project(t *testing.T, db *gorm.DB, name string, mut ...func(*models.Project)) models.Project {
	t.Helper()
	p := models.Project{Name: name, Status: models.ProjectActive, Description: name + " description"}
	for _, m := range mut {
		m(&p)
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func Application(t *testing.T, db *gorm.DB, projectID uint, name string, mut ...func(*models.Application)) models.Application {
	t.Helper()
	a := models.Application{
		ProjectID:      projectID,
		Name:           name,
		Status:         models.AppDevelopment,
		Complexity:     models.AppMedium,
		EstimatedWeeks: 4,
	}
	for _, m := range mut {
		m(&a)
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func Task(t *testing.T, db *gorm.DB, appID uint, title string, status models.TaskStatus, mut ...func(*models.Task)) models.Task {
	t.Helper()
	task := models.Task{
		ApplicationID: appID,
		Title:         title,
		Status:        status,
		Priority:      models.PriorityMedium,
		Assignee:      models.AssigneeHuman,
	}
	for _, m := range mut {
		m(&task)
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func Artifact(t *testing.T, db *gorm.DB, appID *uint, name string, mut ...func(*models.Artifact)) models.Artifact {
	t.Helper()
	a := models.Artifact{
		ApplicationID: appID,
		Name:          name,
		Type:          models.ArtifactDocumentation,
		Content:       name + " content",
		Version:       models.DefaultArtifactVersion,
		Status:        models.ArtifactDraft,
	}
	for _, m := range mut {
		m(&a)
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func Decision(t *testing.T, db *gorm.DB, projectID uint, title string, mut ...func(*models.Decision)) models.Decision {
	t.Helper()
	d := models.Decision{
		ProjectID: projectID,
		Title:     title,
		Status:    models.DecisionPending,
		Impact:    models.ImpactMedium,
	}
	for _, m := range mut {
		m(&d)
	}
	require.NoError(t, db.Create(&d).Error)
	return d
}

func Integration(t *testing.T, db *gorm.DB, fromID, toID uint, typ models.IntegrationType, mut ...func(*models.Integration)) models.Integration {
	t.Helper()
	i := models.Integration{
		FromAppID:       fromID,
		ToAppID:         toID,
		IntegrationType: typ,
		Status:          models.IntegrationPlanned,
		Complexity:      models.IntegrationMedium,
		EstimatedWeeks:  2,
	}
	for _, m := range mut {
		m(&i)
	}
	require.NoError(t, db.Create(&i).Error)
	return i
}
