// Package catalog validates catalog requests and orchestrates the image store
// and the category and item repositories behind them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-playground/validator/v10"

	"item-catalog-service/internal/domain"
	"item-catalog-service/internal/imagestore"
	"item-catalog-service/internal/store"
)

// Options configures a Service.
type Options struct {
	// DefaultImage is served by FetchImage when the requested image is absent.
	DefaultImage string
}

// Service exposes the catalog operations. It is safe for concurrent use.
type Service struct {
	images       imagestore.Store
	categories   store.CategoryStorer
	items        store.ItemStorer
	defaultImage string
	validate     *validator.Validate
}

// NewService creates a new Service with its dependencies.
func NewService(images imagestore.Store, categories store.CategoryStorer, items store.ItemStorer, opts Options) *Service {
	return &Service{
		images:       images,
		categories:   categories,
		items:        items,
		defaultImage: opts.DefaultImage,
		validate:     newValidator(),
	}
}

// AddItemResult confirms a stored item.
type AddItemResult struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	ImageName string `json:"image_name"`
	Message   string `json:"message"`
}

// Image is a stored image opened for reading. IsDefault reports whether the
// requested image was missing and the default image was substituted.
type Image struct {
	Name      string
	Body      io.ReadCloser
	IsDefault bool
}

func (s *Service) ListItems(ctx context.Context) ([]domain.ItemView, error) {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, storageFault("list items", err)
	}
	return items, nil
}

func (s *Service) GetItem(ctx context.Context, in GetItemInput) (*domain.ItemView, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}
	item, err := s.items.GetItemByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return nil, fmt.Errorf("%w: item %d", ErrNotFound, in.ID)
		}
		return nil, storageFault("get item", err)
	}
	return item, nil
}

// AddItem stores the image, resolves the category and inserts the item, in
// that order. The steps are not atomic: a failure after the image or the
// category was written leaves them in place, and the add is reported failed.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (*AddItemResult, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}

	imageName, err := s.images.Save(ctx, in.Image)
	if err != nil {
		return nil, storageFault("save image", err)
	}

	categoryID, err := s.categories.GetOrCreateCategory(ctx, in.Category)
	if err != nil {
		return nil, storageFault("resolve category", err)
	}

	id, err := s.items.CreateItem(ctx, &domain.Item{
		Name:       in.Name,
		CategoryID: categoryID,
		ImageName:  imageName,
	})
	if err != nil {
		return nil, storageFault("insert item", err)
	}

	log.Printf("INFO: Item %d added: name=%q category=%q image=%s", id, in.Name, in.Category, imageName)
	return &AddItemResult{
		ID:        id,
		Name:      in.Name,
		Category:  in.Category,
		ImageName: imageName,
		Message:   fmt.Sprintf("item received: %s, category: %s, image_name: %s", in.Name, in.Category, imageName),
	}, nil
}

func (s *Service) SearchItems(ctx context.Context, in SearchInput) ([]domain.ItemView, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}
	items, err := s.items.SearchItems(ctx, in.Keyword)
	if err != nil {
		return nil, storageFault("search items", err)
	}
	return items, nil
}

// FetchImage opens the named image, or the default image if it is absent.
// The name is checked before any lookup. The caller closes Image.Body.
func (s *Service) FetchImage(ctx context.Context, in FetchImageInput) (*Image, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}
	if err := imagestore.ValidateName(in.Name); err != nil {
		return nil, &FieldError{Field: "image_name", Reason: "must be a plain file name ending in " + imagestore.Extension}
	}

	body, err := s.images.Open(ctx, in.Name)
	if err == nil {
		return &Image{Name: in.Name, Body: body}, nil
	}
	if !errors.Is(err, imagestore.ErrImageNotFound) {
		return nil, storageFault("open image", err)
	}

	log.Printf("INFO: Image not found: %s, serving %s", in.Name, s.defaultImage)
	body, err = s.images.Open(ctx, s.defaultImage)
	if err != nil {
		return nil, storageFault("open default image", err)
	}
	return &Image{Name: s.defaultImage, Body: body, IsDefault: true}, nil
}
