package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	"item-catalog-service/internal/config"
	"item-catalog-service/internal/domain"
)

// Predefined errors for store operations
var (
	ErrCategoryNotFound   = errors.New("store: category not found")
	ErrCategoryUnresolved = errors.New("store: category still missing after a uniqueness conflict")
	ErrItemNotFound       = errors.New("store: item not found")
	ErrUnexpectedRowShape = errors.New("store: unexpected row shape")
)

// Queries are written with '?' placeholders and rebound per driver.
const (
	selectCategoryByName = `SELECT id, name FROM categories WHERE name = ?`
	insertCategory       = `INSERT INTO categories (name) VALUES (?) RETURNING id`
	insertItem           = `INSERT INTO items (name, category_id, image_name) VALUES (?, ?, ?) RETURNING id`
	selectItemViews      = `
		SELECT items.id AS id, items.name AS name, categories.name AS category, items.image_name AS image_name
		FROM items
		JOIN categories ON categories.id = items.category_id`
)

// SQLStore implements the CategoryStorer and ItemStorer interfaces on top of
// sqlx. It works with both the sqlite and postgres drivers.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore creates a new SQLStore instance.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Open connects to the configured database and verifies the connection.
// For sqlite the parent directory of the database file is created if needed.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	var driverName, dsn string
	switch cfg.Driver {
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: failed to create database directory %s: %w", dir, err)
			}
		}
		driverName, dsn = "sqlite", cfg.SQLiteDSN()
	case config.DriverPostgres:
		driverName, dsn = "postgres", cfg.Postgres.DSN()
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open %s database: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to ping %s database: %w", driverName, err)
	}
	return db, nil
}

// --- CategoryStorer Implementation ---

// GetOrCreateCategory returns the id of the category with the given name,
// inserting it first if it does not exist. A concurrent insert of the same
// name surfaces as a uniqueness violation, after which the lookup is retried
// once and its result is taken as canonical.
func (s *SQLStore) GetOrCreateCategory(ctx context.Context, name string) (int64, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: GetOrCreateCategory failed to acquire connection: %w", err)
	}
	defer conn.Close()

	category, err := s.getCategoryByName(ctx, conn, name)
	if err == nil {
		return category.ID, nil
	}
	if !errors.Is(err, ErrCategoryNotFound) {
		return 0, err
	}

	var id int64
	err = conn.QueryRowxContext(ctx, s.db.Rebind(insertCategory), name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !isUniqueViolation(err) {
		return 0, fmt.Errorf("store: GetOrCreateCategory failed to insert category %q: %w", name, err)
	}

	category, err = s.getCategoryByName(ctx, conn, name)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return 0, fmt.Errorf("%w: %q", ErrCategoryUnresolved, name)
		}
		return 0, err
	}
	return category.ID, nil
}

func (s *SQLStore) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	return s.getCategoryByName(ctx, s.db, name)
}

func (s *SQLStore) getCategoryByName(ctx context.Context, q sqlx.QueryerContext, name string) (*domain.Category, error) {
	var category domain.Category
	err := sqlx.GetContext(ctx, q, &category, s.db.Rebind(selectCategoryByName), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByName failed to scan row: %w", err)
	}
	return &category, nil
}

// --- ItemStorer Implementation ---

// CreateItem inserts the item and returns its new id. item.CategoryID must
// reference an existing category.
func (s *SQLStore) CreateItem(ctx context.Context, item *domain.Item) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(insertItem), item.Name, item.CategoryID, item.ImageName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: CreateItem failed to insert item: %w", err)
	}
	return id, nil
}

func (s *SQLStore) ListItems(ctx context.Context) ([]domain.ItemView, error) {
	rows, err := s.db.QueryxContext(ctx, selectItemViews+` ORDER BY items.id`)
	if err != nil {
		return nil, fmt.Errorf("store: ListItems failed to query items: %w", err)
	}
	defer rows.Close()

	items, err := mapItemViews(rows)
	if err != nil {
		return nil, fmt.Errorf("store: ListItems: %w", err)
	}
	return items, nil
}

func (s *SQLStore) GetItemByID(ctx context.Context, id int64) (*domain.ItemView, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(selectItemViews+` WHERE items.id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("store: GetItemByID failed to query item: %w", err)
	}
	defer rows.Close()

	items, err := mapItemViews(rows)
	if err != nil {
		return nil, fmt.Errorf("store: GetItemByID: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrItemNotFound
	}
	return &items[0], nil
}

// containsPredicates matches items.name against a literal, case-sensitive
// substring, per driver. No wildcard characters are interpreted.
var containsPredicates = map[string]string{
	"sqlite":   `instr(items.name, ?) > 0`,
	"postgres": `strpos(items.name, ?) > 0`,
}

// SearchItems returns the items whose name contains keyword as a substring,
// compared byte for byte.
func (s *SQLStore) SearchItems(ctx context.Context, keyword string) ([]domain.ItemView, error) {
	predicate, ok := containsPredicates[s.db.DriverName()]
	if !ok {
		return nil, fmt.Errorf("store: SearchItems unsupported driver %q", s.db.DriverName())
	}
	query := selectItemViews + ` WHERE ` + predicate + ` ORDER BY items.id`
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), keyword)
	if err != nil {
		return nil, fmt.Errorf("store: SearchItems failed to query items: %w", err)
	}
	defer rows.Close()

	items, err := mapItemViews(rows)
	if err != nil {
		return nil, fmt.Errorf("store: SearchItems: %w", err)
	}
	return items, nil
}

// Ping reports whether the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		log.Println("INFO: Closing database connection pool...")
		err := s.db.Close()
		if err != nil {
			log.Printf("ERROR: Failed to close database connection pool: %v", err)
			return err
		}
		log.Println("INFO: Database connection pool closed successfully.")
		return nil
	}
	return nil
}
