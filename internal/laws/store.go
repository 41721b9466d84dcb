// Copyright (c) 2026 Civilex. All rights reserved.

package laws

import (
	"context"

	"github.com/civilex/portal/pkg/pagination"
)

// Store defines the persistence contract for the legal catalogue.
type Store interface {

	// ListCategories returns every category ordered by name.
	ListCategories(ctx context.Context) ([]*Category, error)

	/*
		ListLaws returns one page of laws, newest publication first.

		categorySlug filters by category when non-empty.

		Returns:
		  - []*Law: The page contents
		  - int: Total matching rows (for pagination metadata)
		  - error: Storage faults
	*/
	ListLaws(ctx context.Context, params pagination.Params, categorySlug string) ([]*Law, int, error)

	// FindBySlug resolves a law by its URL slug.
	FindBySlug(ctx context.Context, slug string) (*Law, error)

	// CreateLaw persists a new catalogue entry.
	CreateLaw(ctx context.Context, law *Law) error
}
