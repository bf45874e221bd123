package models

import "time"

// ActivityLog — журнал действий: кто, что и над какой сущностью сделал.
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`

	// nil — действие из CLI
	UserID *uint
	User   *User

	Entity    string `gorm:"size:50;not null"` // "project", "task", ...
	EntityID  uint
	ProjectID *uint  `gorm:"index"`
	Action    string `gorm:"size:50;not null"` // "create", "bulk_status", ...
	Details   string `gorm:"type:text"`
}
