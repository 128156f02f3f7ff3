// Package persistence implements the application repositories on gorm for MySQL and PostgreSQL.
package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shiftmatch/application"
	"shiftmatch/domain"
)

// Store owns the connection and hands out repositories bound to it.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

type txKey struct{}

// conn returns the transaction carried by ctx, or the root connection.
func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// write returns a connection that never cascades into associations.
func (s *Store) write(ctx context.Context) *gorm.DB {
	return s.conn(ctx).Omit(clause.Associations)
}

// WithinTx runs fn in one transaction. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Repositories wires every repository onto this store.
func (s *Store) Repositories() application.Repositories {
	return application.Repositories{
		Tx:             s,
		Facilities:     facilityRepo{s},
		FacilityAdmins: facilityAdminRepo{s},
		SystemAdmins:   systemAdminRepo{s},
		Users:          userRepo{s},
		Certificates:   certificateRepo{s},
		Jobs:           jobRepo{s},
		Applications:   applicationRepo{s},
		Attendances:    attendanceRepo{s},
		Modifications:  modificationRepo{s},
		Messages:       messageRepo{s},
		Reviews:        reviewRepo{s},
		NotifSettings:  notifSettingRepo{s},
		NotifLogs:      notifLogRepo{s},
		Notifications:  notificationRepo{s},
		SystemSettings: systemSettingRepo{s},
		MinimumWages:   minimumWageRepo{s},
		Banks:          bankRepo{s},
		LandingPages:   landingPageRepo{s},
		ActivityLogs:   activityLogRepo{s},
		PasswordResets: passwordResetRepo{s},
		Analytics:      analyticsRepo{s},
	}
}

// translate maps gorm errors onto domain errors. what names the entity in the message.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NotFound(what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.Conflict("DUPLICATE", what+" already exists")
	}
	return err
}

// first loads one row into dst and translates a miss into NotFound.
func first(q *gorm.DB, dst any, what string) error {
	return translate(q.First(dst).Error, what)
}

// save writes every column of model. Associations are never cascaded by callers of write.
func save(q *gorm.DB, model any, what string) error {
	return translate(q.Save(model).Error, what)
}

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1
	}
	return offset, limit
}
