package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"item-catalog-service/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a mock DB and SQLStore for testing. The driver
// name is "postgres" so queries are rebound to $n placeholders.
func newMockDBAndStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *SQLStore) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")

	store := NewSQLStore(sqlx.NewDb(db, "postgres"))
	require.NotNil(t, store, "Store should not be nil")

	return db, mock, store
}

const (
	selectCategoryPattern = `SELECT id, name FROM categories WHERE name = \$1`
	insertCategoryPattern = `INSERT INTO categories \(name\) VALUES \(\$1\) RETURNING id`
)

var itemViewRowColumns = []string{"id", "name", "category", "image_name"}

func TestSQLStore_GetOrCreateCategory_Existing(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(selectCategoryPattern).
		WithArgs("phone").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(3), "phone"))

	id, err := store.GetOrCreateCategory(context.Background(), "phone")

	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestSQLStore_GetOrCreateCategory_Inserts(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(selectCategoryPattern).
		WithArgs("phone").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery(insertCategoryPattern).
		WithArgs("phone").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := store.GetOrCreateCategory(context.Background(), "phone")

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetOrCreateCategory_ConflictRetriesLookup(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(selectCategoryPattern).
		WithArgs("phone").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery(insertCategoryPattern).
		WithArgs("phone").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "categories_name_key"})
	mock.ExpectQuery(selectCategoryPattern).
		WithArgs("phone").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(9), "phone"))

	id, err := store.GetOrCreateCategory(context.Background(), "phone")

	require.NoError(t, err, "A uniqueness conflict must resolve to the existing row")
	assert.Equal(t, int64(9), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetOrCreateCategory_Unresolved(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(selectCategoryPattern).
		WithArgs("phone").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery(insertCategoryPattern).
		WithArgs("phone").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(selectCategoryPattern).
		WithArgs("phone").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := store.GetOrCreateCategory(context.Background(), "phone")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCategoryUnresolved), "Error should be ErrCategoryUnresolved")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetOrCreateCategory_InsertFault(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(selectCategoryPattern).
		WithArgs("phone").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery(insertCategoryPattern).
		WithArgs("phone").
		WillReturnError(errors.New("disk I/O error"))

	_, err := store.GetOrCreateCategory(context.Background(), "phone")

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCategoryUnresolved))
	assert.Contains(t, err.Error(), "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet(), "A non-conflict insert failure must not retry the lookup")
}

func TestSQLStore_GetCategoryByName_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(selectCategoryPattern).
		WithArgs("toys").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	category, err := store.GetCategoryByName(context.Background(), "toys")

	assert.Nil(t, category)
	assert.True(t, errors.Is(err, ErrCategoryNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateItem(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	item := &domain.Item{Name: "used iPhone 16e", CategoryID: 3, ImageName: "abc.jpg"}
	mock.ExpectQuery(`INSERT INTO items \(name, category_id, image_name\) VALUES \(\$1, \$2, \$3\) RETURNING id`).
		WithArgs(item.Name, item.CategoryID, item.ImageName).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	id, err := store.CreateItem(context.Background(), item)

	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetItemByID_Found(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(`FROM items\s+JOIN categories ON categories.id = items.category_id WHERE items.id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(itemViewRowColumns).AddRow(int64(1), "used iPhone 16e", "phone", "abc.jpg"))

	item, err := store.GetItemByID(context.Background(), 1)

	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, domain.ItemView{ID: 1, Name: "used iPhone 16e", Category: "phone", ImageName: "abc.jpg"}, *item)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetItemByID_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE items.id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(itemViewRowColumns))

	item, err := store.GetItemByID(context.Background(), 42)

	assert.Nil(t, item)
	assert.True(t, errors.Is(err, ErrItemNotFound), "Error should be ErrItemNotFound")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ListItems_UnexpectedRowShape(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(`ORDER BY items.id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category"}).AddRow(int64(1), "x", "y"))

	items, err := store.ListItems(context.Background())

	assert.Nil(t, items)
	assert.True(t, errors.Is(err, ErrUnexpectedRowShape), "Error should be ErrUnexpectedRowShape")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ListItems_UnexpectedColumnType(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(`ORDER BY items.id`).
		WillReturnRows(sqlmock.NewRows(itemViewRowColumns).AddRow("not-a-number", "x", "y", "z.jpg"))

	_, err := store.ListItems(context.Background())

	assert.True(t, errors.Is(err, ErrUnexpectedRowShape))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ListItems_Empty(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(`ORDER BY items.id`).WillReturnRows(sqlmock.NewRows(itemViewRowColumns))

	items, err := store.ListItems(context.Background())

	require.NoError(t, err)
	require.NotNil(t, items, "An empty result should be an empty slice, not nil")
	assert.Empty(t, items)
}

func TestSQLStore_SearchItems_LiteralSubstring(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE strpos\(items.name, \$1\) > 0 ORDER BY items.id`).
		WithArgs("100%_off").
		WillReturnRows(sqlmock.NewRows(itemViewRowColumns).AddRow(int64(4), "100%_off shirt", "clothes", "d.jpg"))

	items, err := store.SearchItems(context.Background(), "100%_off")

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "100%_off shirt", items[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SearchItems_UnknownDriver(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewSQLStore(sqlx.NewDb(db, "mysql"))

	_, err = store.SearchItems(context.Background(), "iPhone")
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestSQLStore_EnsureSchema_Postgres(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS categories \(\s+id BIGSERIAL PRIMARY KEY`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS items`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_items_category_id`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_EnsureSchema_UnknownDriver(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(sqlx.NewDb(db, "oracle"))
	err = store.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no schema for driver "oracle"`)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}), "foreign key violation is not a uniqueness violation")
	assert.False(t, isUniqueViolation(errors.New("UNIQUE constraint failed")), "plain errors are never classified")
}

func TestDriversRegistered(t *testing.T) {
	drivers := sql.Drivers()
	assert.Contains(t, drivers, "postgres")
	assert.Contains(t, drivers, "sqlite")
}
