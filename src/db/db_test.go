package db

import (
	"context"
	"log"
	"testing"

	"mazza/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

func TestLockProductUsesRowLock(t *testing.T) {
	gormDB, mock := NewMockDB()
	repo := NewRepository(gormDB)
	id := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "status", "quantity_total", "quantity_reserved"}).
		AddRow(id.String(), "ACTIVE", 3, 1)
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1 .*FOR UPDATE`).WillReturnRows(rows)

	p, err := repo.LockProduct(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, 2, p.QuantityAvailable())
	assert.Equal(t, types.PRODUCT_ACTIVE, p.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockProductNotFound(t *testing.T) {
	gormDB, mock := NewMockDB()
	repo := NewRepository(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "products" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.LockProduct(context.Background(), uuid.New())
	var notFoundErr *types.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
	assert.Equal(t, "product", notFoundErr.Entity)
}

func TestLockBookingUsesRowLock(t *testing.T) {
	gormDB, mock := NewMockDB()
	repo := NewRepository(gormDB)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(id.String(), "CONFIRMED"))

	b, err := repo.LockBooking(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.BOOKING_CONFIRMED, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniqueViolationClassification(t *testing.T) {
	orderErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_bookings_order_number"}
	keyErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_bookings_idempotency_key"}
	fkErr := &pgconn.PgError{Code: "23503", ConstraintName: "fk_bookings_payment"}

	assert.True(t, IsDuplicateOrderNumber(orderErr))
	assert.False(t, IsDuplicateOrderNumber(keyErr))
	assert.True(t, IsDuplicateIdempotencyKey(keyErr))
	assert.False(t, IsUniqueViolation(fkErr))
	assert.False(t, IsUniqueViolation(nil))

	sqliteErr := assert.AnError
	assert.False(t, IsUniqueViolation(sqliteErr))
}

func TestReadiness(t *testing.T) {
	var r Readiness
	assert.False(t, r.Ready())
	r.MarkReady()
	assert.True(t, r.Ready())
}
