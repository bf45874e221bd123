package database

import (
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"familyhub-tracker/internal/errs"
	"familyhub-tracker/internal/models"
)

// DB — общее подключение для HTTP-обработчиков. Сервисные пакеты
// (reporting, bulk, export) получают *gorm.DB параметром.
var DB *gorm.DB

type Options struct {
	DSN         string
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      zerolog.Logger
}

// Dialector выбирает драйвер по DSN: postgres:// и "host=..." — Postgres,
// всё остальное (sqlite:, file:, путь к файлу) — SQLite.
func Dialector(dsn string) gorm.Dialector {
	switch {
	case strings.HasPrefix(dsn, "postgres://"),
		strings.HasPrefix(dsn, "postgresql://"),
		strings.Contains(dsn, "host="):
		return postgres.Open(dsn)
	default:
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	}
}

// Open — одна попытка подключения без миграций.
func Open(dsn string, lg zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(Dialector(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger: gormlogger.New(&lg, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errs.Wrap(err, "open database")
	}
	return db, nil
}

// Connect повторяет Open, пока база не поднимется (docker-compose стартует её параллельно).
func Connect(opts Options) (*gorm.DB, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= opts.MaxAttempts; i++ {
		opts.Logger.Info().Int("attempt", i).Int("max", opts.MaxAttempts).Msg("connecting to database")

		db, err = Open(opts.DSN, opts.Logger)
		if err == nil {
			if sqlDB, pingErr := db.DB(); pingErr == nil {
				err = sqlDB.Ping()
			} else {
				err = pingErr
			}
		}
		if err == nil {
			opts.Logger.Info().Msg("connected to database")
			return db, nil
		}

		opts.Logger.Warn().Err(err).Msg("database not ready")
		if i < opts.MaxAttempts {
			time.Sleep(opts.RetryDelay)
		}
	}
	return nil, errs.Wrapf(err, "connect after %d attempts", opts.MaxAttempts)
}

// Migrate создаёт/обновляет схему.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Application{},
		&models.Task{},
		&models.Artifact{},
		&models.Decision{},
		&models.Integration{},
		&models.ActivityLog{},
	)
	return errs.Wrap(err, "migrate")
}

// Init — подключение, миграции и менеджер по умолчанию; результат кладётся в DB.
func Init(opts Options, adminUsername, adminPassword string) error {
	db, err := Connect(opts)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return err
	}
	if err := EnsureManager(db, adminUsername, adminPassword, opts.Logger); err != nil {
		return err
	}
	DB = db
	return nil
}

// EnsureManager создаёт учётку менеджера, если в базе нет ни одного.
func EnsureManager(db *gorm.DB, username, password string, lg zerolog.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).
		Where("role = ?", models.RoleManager).
		Count(&count).Error; err != nil {
		return errs.Wrap(err, "check manager user")
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errs.Wrap(err, "hash default password")
	}

	user := models.User{
		Username:     username,
		Email:        username + "@familyhub.local",
		PasswordHash: string(hash),
		Role:         models.RoleManager,
	}
	if err := db.Create(&user).Error; err != nil {
		return errs.Wrap(err, "create default manager")
	}

	lg.Info().Str("username", username).Msg("created default manager account")
	return nil
}
