package store

import (
	"context"

	"item-catalog-service/internal/domain"
)

// CategoryStorer defines the database operations for categories.
// Categories are only ever created through GetOrCreateCategory.
type CategoryStorer interface {
	GetOrCreateCategory(ctx context.Context, name string) (int64, error)
	GetCategoryByName(ctx context.Context, name string) (*domain.Category, error)
}

// ItemStorer defines the database operations for items.
type ItemStorer interface {
	CreateItem(ctx context.Context, item *domain.Item) (int64, error)
	ListItems(ctx context.Context) ([]domain.ItemView, error)
	GetItemByID(ctx context.Context, id int64) (*domain.ItemView, error)
	SearchItems(ctx context.Context, keyword string) ([]domain.ItemView, error) // Substring match on item name
}
