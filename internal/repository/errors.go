package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/consulting-platform/internal/db"
	"github.com/Leganyst/consulting-platform/internal/domain"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// translate переводит ошибки gorm/драйвера в доменные.
func translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NotFound(entity)
	case IsUniqueViolation(err):
		return &domain.Error{Kind: domain.KindConflict, Reason: entity + " already exists", Err: err}
	}
	return fmt.Errorf("%s: %w", entity, err)
}

func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsSerializationFailure — транзакцию можно безопасно повторить.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}

// forUpdate добавляет SELECT ... FOR UPDATE там, где диалект это поддерживает.
func forUpdate(q *gorm.DB) *gorm.DB {
	if db.IsPostgres(q) {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}
