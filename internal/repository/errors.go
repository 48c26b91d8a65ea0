package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorKind classifies storage failures so callers never inspect error text.
type ErrorKind int

const (
	KindStorage ErrorKind = iota
	KindNotFound
	KindMissingColumn
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindMissingColumn:
		return "missing column"
	default:
		return "storage"
	}
}

// Error is returned by every repository method.
type Error struct {
	Kind   ErrorKind
	Op     string
	Column string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the addressed row does not exist.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}

// IsMissingColumn reports whether err was caused by column not existing in
// the backend schema.
func IsMissingColumn(err error, column string) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindMissingColumn && e.Column == column
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	kind, column := classify(err)
	return &Error{Kind: kind, Op: op, Column: column, Err: err}
}

func notFound(op string) error {
	return &Error{Kind: KindNotFound, Op: op, Err: gorm.ErrRecordNotFound}
}

// pgUndefinedColumn is SQLSTATE undefined_column.
const pgUndefinedColumn = "42703"

func classify(err error) (ErrorKind, string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound, ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUndefinedColumn {
			return KindStorage, ""
		}
		if pgErr.ColumnName != "" {
			return KindMissingColumn, pgErr.ColumnName
		}
		return KindMissingColumn, quoted(pgErr.Message)
	}

	// SQLite reports schema mismatches only through the message.
	msg := err.Error()
	for _, marker := range []string{"has no column named ", "no such column: "} {
		if i := strings.Index(msg, marker); i >= 0 {
			return KindMissingColumn, columnName(msg[i+len(marker):])
		}
	}
	return KindStorage, ""
}

func columnName(rest string) string {
	if i := strings.IndexAny(rest, " ,)"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "."); i >= 0 {
		rest = rest[i+1:]
	}
	return strings.Trim(rest, "`\"")
}

func quoted(msg string) string {
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
