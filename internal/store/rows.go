package store

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"item-catalog-service/internal/domain"
)

// itemViewColumns is the fixed row shape produced by selectItemViews.
var itemViewColumns = []string{"id", "name", "category", "image_name"}

// mapItemViews maps every row of an item-view query. It fails fast if the
// result set does not have exactly the itemViewColumns shape or a value does
// not scan into its field.
func mapItemViews(rows *sqlx.Rows) ([]domain.ItemView, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	if !slices.Equal(cols, itemViewColumns) {
		return nil, fmt.Errorf("%w: got columns %v, want %v", ErrUnexpectedRowShape, cols, itemViewColumns)
	}

	items := make([]domain.ItemView, 0)
	for rows.Next() {
		var v domain.ItemView
		if err := rows.StructScan(&v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedRowShape, err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}
	return items, nil
}

// isUniqueViolation reports whether err is a unique-constraint failure from
// either supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
		// Primary result code only, when extended codes are not reported.
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}
