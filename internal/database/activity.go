package database

import (
	"gorm.io/gorm"

	"familyhub-tracker/internal/models"
)

// Activity — запись для журнала активности.
type Activity struct {
	UserID    *uint
	Entity    string
	EntityID  uint
	ProjectID *uint
	Action    string
	Details   string
}

// RecordActivity пишет запись в журнал через db (можно передать транзакцию).
func RecordActivity(db *gorm.DB, a Activity) error {
	if db == nil {
		return nil
	}
	record := models.ActivityLog{
		UserID:    a.UserID,
		Entity:    a.Entity,
		EntityID:  a.EntityID,
		ProjectID: a.ProjectID,
		Action:    a.Action,
		Details:   a.Details,
	}
	return db.Create(&record).Error
}

// helper для обработчиков: ошибка журнала не должна ломать основное действие
func CreateActivityLog(userID *uint, entity string, entityID uint, projectID *uint, action, details string) {
	_ = RecordActivity(DB, Activity{
		UserID:    userID,
		Entity:    entity,
		EntityID:  entityID,
		ProjectID: projectID,
		Action:    action,
		Details:   details,
	})
}

// ProjectOfApplication возвращает проект приложения (для журнала); nil, если не найдено.
func ProjectOfApplication(db *gorm.DB, appID uint) *uint {
	var app models.Application
	if err := db.Select("id", "project_id").First(&app, appID).Error; err != nil {
		return nil
	}
	return &app.ProjectID
}
