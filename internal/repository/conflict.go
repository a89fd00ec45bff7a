package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the SQLSTATE postgres reports for a unique index hit.
const pgUniqueViolation = "23505"

// maxConflictAttempts bounds how often a find-or-create transaction is
// restarted after losing an insert race.
const maxConflictAttempts = 3

var ErrDuplicate = errors.New("duplicate key")

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// inTx runs fn in a transaction and restarts it when it fails on a unique
// violation. On postgres a failed statement poisons the transaction, so the
// retry has to begin a fresh one rather than re-query inside the old one.
func inTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < maxConflictAttempts; attempt++ {
		err = db.Transaction(fn)
		if !isUniqueViolation(err) {
			return err
		}
	}
	return err
}
