package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shiftmatch/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})
	return New(db), mock
}

func TestFacilityGet_MissingRowIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT \\* FROM `facilities` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := s.Repositories().Facilities.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserFindByEmail_LowercasesLookup(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE LOWER\\(email\\) = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name"}).AddRow(3, "hanako@example.com", "山田 花子"))

	u, err := s.Repositories().Users.FindByEmail(context.Background(), "Hanako@Example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 3, u.ID)
	assert.Equal(t, "山田 花子", u.Name)
}

func TestAdjustWorkDateCounts_IncrementsInSQL(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE `job_work_dates` SET .*`applied_count`=applied_count \\+ \\?.*WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `job_work_dates` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := s.Repositories().Jobs
	require.NoError(t, repo.AdjustWorkDateCounts(context.Background(), 7, 1, 1))
	err := repo.AdjustWorkDateCounts(context.Background(), 8, -1, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteWorkDate_RemovesApplicationsInOneTx(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `applications` WHERE work_date_id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `job_work_dates` WHERE `job_work_dates`.`id` = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, s.Repositories().Jobs.DeleteWorkDate(context.Background(), 5))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `applications`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM `job_work_dates`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	err := s.Repositories().Jobs.DeleteWorkDate(context.Background(), 6)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPromoteToWorking_NoIDsSkipsQuery(t *testing.T) {
	s, _ := newMockStore(t)
	n, err := s.Repositories().Jobs.PromoteToWorking(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCancelStats_ScansBothCounters(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(CASE WHEN status = \\? AND cancelled_by = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"cancels", "settled"}).AddRow(2, 5))

	cancels, settled, err := s.Repositories().Applications.CancelStats(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, cancels)
	assert.EqualValues(t, 5, settled)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `activity_logs`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	boom := errors.New("boom")
	repos := s.Repositories()
	err := repos.Tx.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := repos.ActivityLogs.Create(ctx, &domain.ActivityLog{Action: "JOB_CREATE", Result: "success"}); err != nil {
			return err
		}
		return repos.Tx.WithinTx(ctx, func(context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)
}

func TestWithinTx_Commits(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `applications` SET `status`=\\?").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	repos := s.Repositories()
	var moved int64
	err := repos.Tx.WithinTx(context.Background(), func(ctx context.Context) error {
		var err error
		moved, err = repos.Applications.TransitionMany(ctx, []uint{1, 2}, domain.StatusScheduled, domain.StatusWorking)
		return err
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, moved)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "job"))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound, "job"), domain.ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey, "user"), domain.ErrConflict)
	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other, "job"))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_a\\b`, escapeLike(`100%_a\b`))
}
