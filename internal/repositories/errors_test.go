package repositories_test

import (
	"errors"
	"net"
	"testing"

	"projectwatch/internal/apperror"
	"projectwatch/internal/models"
	"projectwatch/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRepo(t *testing.T) (*repositories.GORMUserRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return repositories.NewGORMUserRepository(db), mock
}

func TestStore_ConnectionLossIsUnavailable(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnError(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")})

	_, err := repo.Get(1)

	assert.True(t, errors.Is(err, apperror.ErrStoreUnavailable))
	assert.Equal(t, apperror.InternalMessage, apperror.PublicMessage(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UnknownFailureIsOpaque(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(errors.New("relation \"users\" is corrupt"))

	_, err := repo.GetAll()

	assert.True(t, errors.Is(err, apperror.ErrStore))
	assert.Equal(t, apperror.InternalMessage, apperror.PublicMessage(err))
	assert.NotContains(t, apperror.PublicMessage(err), "corrupt")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateConflictRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})
	mock.ExpectRollback()

	_, err := repo.Create(&models.User{Username: "alice", PasswordHash: "hash"})

	assert.True(t, errors.Is(err, apperror.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"duplicate", gorm.ErrDuplicatedKey, apperror.ErrConflict},
		{"foreign key", gorm.ErrForeignKeyViolated, apperror.ErrValidation},
		{"check", gorm.ErrCheckConstraintViolated, apperror.ErrValidation},
		{"pg too long", &pgconn.PgError{Code: "22001"}, apperror.ErrValidation},
		{"pg not null", &pgconn.PgError{Code: "23502"}, apperror.ErrValidation},
		{"pg connection", &pgconn.PgError{Code: "08006"}, apperror.ErrStoreUnavailable},
		{"mysql duplicate", &mysqldriver.MySQLError{Number: 1062}, apperror.ErrConflict},
		{"mysql too long", &mysqldriver.MySQLError{Number: 1406}, apperror.ErrValidation},
		{"mysql invalid conn", mysqldriver.ErrInvalidConn, apperror.ErrStoreUnavailable},
		{"other", errors.New("boom"), apperror.ErrStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repositories.Translate("op", tt.err)
			assert.True(t, apperror.Is(err, tt.kind), "got %v", err)
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}
