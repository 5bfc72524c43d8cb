package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/labdata/labdata/internal/platform/apierr"
)

// PostgreSQL SQLSTATE codes the repositories translate.
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

// ForeignKeyViolation reports whether err is a foreign key violation and, if
// so, the name of the violated constraint.
func ForeignKeyViolation(err error) (string, bool) {
	return violation(err, codeForeignKeyViolation)
}

// UniqueViolation reports whether err is a unique constraint violation and,
// if so, the name of the violated constraint.
func UniqueViolation(err error) (string, bool) {
	return violation(err, codeUniqueViolation)
}

// CheckViolation reports whether err is a CHECK constraint violation and, if
// so, the name of the violated constraint.
func CheckViolation(err error) (string, bool) {
	return violation(err, codeCheckViolation)
}

func violation(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// ConstraintColumn derives the column from a PostgreSQL default constraint
// name, e.g. "tests_lab_id_fkey" on table "tests" yields "lab_id".
func ConstraintColumn(table, constraint string) string {
	col := strings.TrimPrefix(constraint, table+"_")
	for _, suffix := range []string{"_fkey", "_key", "_check"} {
		if strings.HasSuffix(col, suffix) {
			return strings.TrimSuffix(col, suffix)
		}
	}
	return col
}

// TranslateError maps store errors raised on table onto apierr values:
// no rows becomes ErrNotFound, a foreign key violation a "<x> not found"
// error on the referencing column, a unique violation an "already exists"
// error on the unique column. Other errors are returned unchanged.
func TranslateError(table string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apierr.ErrNotFound
	}
	if c, ok := ForeignKeyViolation(err); ok {
		col := ConstraintColumn(table, c)
		target := strings.ReplaceAll(strings.TrimSuffix(col, "_id"), "_", " ")
		return apierr.Field(col, target+" not found")
	}
	if c, ok := UniqueViolation(err); ok {
		col := ConstraintColumn(table, c)
		return apierr.Field(col, "a record with this "+col+" already exists")
	}
	return err
}
