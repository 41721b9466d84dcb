// Copyright (c) 2026 Civilex. All rights reserved.

package laws

import (
	"context"
	"strings"
	"time"

	"github.com/civilex/portal/pkg/pagination"
	"github.com/civilex/portal/pkg/slug"
	"github.com/civilex/portal/pkg/uuidv7"
)

// Service implements the catalogue use cases.
type Service struct {
	store Store
}

// NewService constructs a catalogue [Service].
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ListCategories returns every category ordered by name.
func (service *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	return service.store.ListCategories(ctx)
}

// ListLaws returns one page of laws plus the total for pagination metadata.
func (service *Service) ListLaws(ctx context.Context, params pagination.Params, categorySlug string) ([]*Law, int, error) {
	return service.store.ListLaws(ctx, params, categorySlug)
}

// GetBySlug resolves a single law by its URL slug.
func (service *Service) GetBySlug(ctx context.Context, lawSlug string) (*Law, error) {
	return service.store.FindBySlug(ctx, lawSlug)
}

// PublishInput holds the data for a new catalogue entry.
type PublishInput struct {
	CategoryID  string
	Title       string
	Summary     string
	PublishedAt time.Time
}

/*
Publish creates a new catalogue entry with a derived URL slug.

Description: The slug comes from the title (accents stripped, lowercased),
which keeps Spanish titles addressable in plain ASCII URLs. A duplicate title
in the same spelling surfaces as a Conflict from the unique slug index.

Parameters:
  - ctx: context.Context
  - input: PublishInput

Returns:
  - *Law: Created entry
  - error: Conflict or storage faults
*/
func (service *Service) Publish(ctx context.Context, input PublishInput) (*Law, error) {
	publishedAt := input.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now()
	}

	law := &Law{
		ID:          uuidv7.New(),
		CategoryID:  input.CategoryID,
		Title:       strings.TrimSpace(input.Title),
		Slug:        slug.From(input.Title),
		Summary:     strings.TrimSpace(input.Summary),
		PublishedAt: publishedAt,
	}

	if err := service.store.CreateLaw(ctx, law); err != nil {
		return nil, err
	}

	return law, nil
}
