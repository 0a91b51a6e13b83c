package db

import (
	"errors"
	"strings"

	"mazza/src/types"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func uniqueViolationOn(err error, column string) bool {
	if !IsUniqueViolation(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.Contains(pgErr.ConstraintName, column)
	}
	return strings.Contains(err.Error(), column)
}

func IsDuplicateOrderNumber(err error) bool {
	return uniqueViolationOn(err, "order_number")
}

func IsDuplicateIdempotencyKey(err error) bool {
	return uniqueViolationOn(err, "idempotency_key")
}

func notFound(entity, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &types.NotFoundError{Entity: entity, ID: id}
	}
	return err
}
