// package repositories provides persistence layer implementations for all model types.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// sq builds queries with "?" placeholders for SQLite.
var sq = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// querier is satisfied by both [*sql.DB] and [*sql.Tx].
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both [*sql.Row] and [*sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable identifiers (student roll number #42, payment receipt #1015).
// Pass the transaction that inserts the row so a failed insert does not consume a number.
func NextSequence(ctx context.Context, q querier, table string) (int, error) {
	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := q.QueryRowContext(ctx, query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to increment %s sequence: %w", table, err)
	}
	return sequence, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE (or primary key) constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

// isForeignKeyViolation reports whether err is a SQLite FOREIGN KEY constraint failure.
func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint")
}

// expectOne converts a zero-row update or delete into [shared.ErrNotFound].
func expectOne(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, shared.ErrNotFound)
	}
	return nil
}

// withDateRange applies the "from" (inclusive) and "to" (exclusive) criteria to column.
func withDateRange(b squirrel.SelectBuilder, column string, c models.Criteria) squirrel.SelectBuilder {
	if from, ok := c.Time("from"); ok {
		b = b.Where(squirrel.GtOrEq{column: shared.DateOnly(from)})
	}
	if to, ok := c.Time("to"); ok {
		b = b.Where(squirrel.Lt{column: shared.DateOnly(to)})
	}
	return b
}

// withEq applies equality filters for each criteria key present, mapping keys to columns.
// String-kinded values (including enum types) and bools are supported; empty strings are ignored.
func withEq(b squirrel.SelectBuilder, c models.Criteria, columns map[string]string) squirrel.SelectBuilder {
	for key, column := range columns {
		v, ok := c[key]
		if !ok || v == nil {
			continue
		}

		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.String:
			if rv.String() != "" {
				b = b.Where(squirrel.Eq{column: rv.String()})
			}
		case reflect.Bool:
			b = b.Where(squirrel.Eq{column: rv.Bool()})
		}
	}
	return b
}

// withSearch matches term as a case-insensitive substring of any of columns.
func withSearch(b squirrel.SelectBuilder, term string, columns ...string) squirrel.SelectBuilder {
	term = strings.TrimSpace(term)
	if term == "" {
		return b
	}
	pattern := "%" + term + "%"
	or := squirrel.Or{}
	for _, col := range columns {
		or = append(or, squirrel.Like{col: pattern})
	}
	return b.Where(or)
}

// countRows runs SELECT COUNT(*) over the filtered query.
func countRows(ctx context.Context, db *sql.DB, b squirrel.SelectBuilder) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return total, nil
}

// paged applies LIMIT/OFFSET for page.
func paged(b squirrel.SelectBuilder, page models.Page) squirrel.SelectBuilder {
	page = page.Normalize()
	return b.Limit(uint64(page.Size)).Offset(uint64(page.Offset()))
}

// queryAll runs the built query and scans each row with scan.
func queryAll[T any](ctx context.Context, db *sql.DB, b squirrel.SelectBuilder, scan func(scanner) (T, error)) ([]T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// queryOne runs the built query and scans the single row, mapping no rows to [shared.ErrNotFound].
func queryOne[T any](ctx context.Context, db *sql.DB, b squirrel.SelectBuilder, entity string, scan func(scanner) (T, error)) (T, error) {
	var zero T

	query, args, err := b.ToSql()
	if err != nil {
		return zero, fmt.Errorf("failed to build query: %w", err)
	}

	item, err := scan(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, fmt.Errorf("%s: %w", entity, shared.ErrNotFound)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to query %s: %w", entity, err)
	}
	return item, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return shared.DateOnly(*t)
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullableString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
