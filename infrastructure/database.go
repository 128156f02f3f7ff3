package infrastructure

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"shiftmatch/domain"
)

// Models lists every table the binaries migrate.
func Models() []any {
	return []any{
		&domain.SystemAdmin{}, &domain.PasswordResetToken{}, &domain.SystemSetting{}, &domain.ActivityLog{},
		&domain.Facility{}, &domain.FacilityAdmin{}, &domain.User{}, &domain.WorkerCertificate{},
		&domain.Job{}, &domain.JobWorkDate{}, &domain.Application{},
		&domain.Attendance{}, &domain.AttendanceModificationRequest{},
		&domain.Message{}, &domain.Review{},
		&domain.NotificationSetting{}, &domain.NotificationLog{}, &domain.Notification{},
		&domain.MinimumWage{}, &domain.MinimumWageHistory{},
		&domain.Bank{}, &domain.Branch{},
		&domain.LandingPage{}, &domain.LPTrackingEvent{},
	}
}

// OpenDatabase connects to MySQL or PostgreSQL and migrates the schema.
func OpenDatabase(cfg *Config, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DBDSN)
	case "postgres":
		dialector = postgres.New(postgres.Config{DSN: cfg.DBDSN})
	default:
		return nil, fmt.Errorf("database: driver %q has no SQL backend", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, GormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("connected to database and migrated schema", zap.String("driver", cfg.DBDriver))
	return db, nil
}

// GormConfig routes gorm's slow-query and error logging through zap.
func GormConfig(logger *zap.Logger) *gorm.Config {
	return &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// SeedDatabase inserts the default notification templates and, when the table is empty, the
// first system admin. Existing rows are left alone so the command can run on every deploy.
func SeedDatabase(ctx context.Context, db *gorm.DB, adminEmail, adminPasswordHash string, logger *zap.Logger) error {
	settings := domain.DefaultNotificationSettings()
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "notification_key"}}, DoNothing: true}).
		Create(&settings).Error; err != nil {
		return fmt.Errorf("failed to seed notification settings: %w", err)
	}

	var count int64
	if err := db.WithContext(ctx).Model(&domain.SystemAdmin{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count system admins: %w", err)
	}
	if count > 0 || adminEmail == "" {
		logger.Info("seeded notification settings", zap.Int("settings", len(settings)))
		return nil
	}
	admin := domain.SystemAdmin{Email: adminEmail, PasswordHash: adminPasswordHash, Name: "System Admin", Role: "super"}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed system admin: %w", err)
	}
	logger.Info("seeded notification settings and system admin",
		zap.Int("settings", len(settings)), zap.String("admin", adminEmail))
	return nil
}
