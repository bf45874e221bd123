package database

import (
	"errors"

	"gorm.io/gorm"

	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/models"
)

// Удаление идёт явно по цепочке владения:
// Project → Application → {Task, Artifact, Integration}, Project → Decision.
// Решения, ссылавшиеся на удаляемое приложение, остаются в проекте без ссылки.
// Возвращаются пути загруженных файлов удалённых артефактов — их чистит вызывающий
// после успешного коммита.

func DeleteProject(db *gorm.DB, id uint) ([]string, error) {
	var files []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, id).Error; err != nil {
			return notFound(err, "project", id)
		}

		var appIDs []uint
		if err := tx.Model(&models.Application{}).Where("project_id = ?", id).Pluck("id", &appIDs).Error; err != nil {
			return errs.Wrap(err, "list applications")
		}

		var err error
		if files, err = deleteApplications(tx, appIDs); err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Decision{}).Error; err != nil {
			return errs.Wrap(err, "delete decisions")
		}
		return errs.Wrap(tx.Delete(&project).Error, "delete project")
	})
	return files, err
}

func DeleteApplication(db *gorm.DB, id uint) ([]string, error) {
	var files []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.First(&app, id).Error; err != nil {
			return notFound(err, "application", id)
		}
		var err error
		files, err = deleteApplications(tx, []uint{id})
		return err
	})
	return files, err
}

func deleteApplications(tx *gorm.DB, ids []uint) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var files []string
	if err := tx.Model(&models.Artifact{}).
		Where("application_id IN ? AND file_path <> ''", ids).
		Pluck("file_path", &files).Error; err != nil {
		return nil, errs.Wrap(err, "list artifact files")
	}

	if err := tx.Where("from_app_id IN ? OR to_app_id IN ?", ids, ids).Delete(&models.Integration{}).Error; err != nil {
		return nil, errs.Wrap(err, "delete integrations")
	}
	if err := tx.Where("application_id IN ?", ids).Delete(&models.Task{}).Error; err != nil {
		return nil, errs.Wrap(err, "delete tasks")
	}
	if err := tx.Where("application_id IN ?", ids).Delete(&models.Artifact{}).Error; err != nil {
		return nil, errs.Wrap(err, "delete artifacts")
	}
	if err := tx.Model(&models.Decision{}).
		Where("application_id IN ?", ids).
		Update("application_id", nil).Error; err != nil {
		return nil, errs.Wrap(err, "detach decisions")
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Application{}).Error; err != nil {
		return nil, errs.Wrap(err, "delete applications")
	}
	return files, nil
}

// DeleteByID удаляет листовую сущность (задачу, артефакт, решение, интеграцию).
func DeleteByID[T any](db *gorm.DB, id uint) error {
	res := db.Delete(new(T), id)
	if res.Error != nil {
		return errs.Wrap(res.Error, "delete")
	}
	if res.RowsAffected == 0 {
		return errs.Wrapf(errs.ErrNotFound, "id %d", id)
	}
	return nil
}

// FindByID — First с переводом gorm.ErrRecordNotFound в errs.ErrNotFound.
func FindByID[T any](db *gorm.DB, id uint, preload ...string) (*T, error) {
	q := db
	for _, p := range preload {
		q = q.Preload(p)
	}
	var out T
	if err := q.First(&out, id).Error; err != nil {
		return nil, notFound(err, "record", id)
	}
	return &out, nil
}

func notFound(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.Wrapf(errs.ErrNotFound, "%s %d", entity, id)
	}
	return errs.Wrapf(err, "load %s %d", entity, id)
}
