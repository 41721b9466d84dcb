// Copyright (c) 2026 Civilex. All rights reserved.

package laws

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civilex/portal/internal/platform/dberr"
	"github.com/civilex/portal/pkg/pagination"
)

// PostgresStore implements [Store] using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewStore creates the PostgreSQL implementation of the catalogue [Store].
func NewStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ListCategories returns every category ordered by name.
func (store *PostgresStore) ListCategories(ctx context.Context) ([]*Category, error) {
	const query = `
		SELECT id, nombre, slug
		FROM categorias_leyes
		ORDER BY nombre ASC`

	rows, err := store.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("laws_store_list_categories_failed: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		category := &Category{}
		if err := rows.Scan(&category.ID, &category.Name, &category.Slug); err != nil {
			return nil, fmt.Errorf("laws_store_scan_category_failed: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("laws_store_list_categories_rows_failed: %w", err)
	}

	return categories, nil
}

/*
ListLaws returns one page of laws, newest publication first.

Description: The count and the page run as two statements against the same
pool. Slight drift between them under concurrent publishes is acceptable for
a browse listing.

Parameters:
  - ctx: context.Context
  - params: pagination.Params
  - categorySlug: string (empty = all categories)

Returns:
  - []*Law: The page contents
  - int: Total matching rows
  - error: Storage faults
*/
func (store *PostgresStore) ListLaws(ctx context.Context, params pagination.Params, categorySlug string) ([]*Law, int, error) {
	const countQuery = `
		SELECT count(*)
		FROM leyes l
		JOIN categorias_leyes c ON c.id = l.categoria_id
		WHERE ($1 = '' OR c.slug = $1)`

	var total int
	if err := store.pool.QueryRow(ctx, countQuery, categorySlug).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("laws_store_count_failed: %w", err)
	}

	const pageQuery = `
		SELECT l.id, l.categoria_id, l.titulo, l.slug, l.resumen, l.publicada_en
		FROM leyes l
		JOIN categorias_leyes c ON c.id = l.categoria_id
		WHERE ($1 = '' OR c.slug = $1)
		ORDER BY l.publicada_en DESC
		LIMIT $2 OFFSET $3`

	rows, err := store.pool.Query(ctx, pageQuery, categorySlug, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("laws_store_list_failed: %w", err)
	}
	defer rows.Close()

	var results []*Law
	for rows.Next() {
		law := &Law{}
		err := rows.Scan(&law.ID, &law.CategoryID, &law.Title, &law.Slug, &law.Summary, &law.PublishedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("laws_store_scan_failed: %w", err)
		}
		results = append(results, law)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("laws_store_list_rows_failed: %w", err)
	}

	return results, total, nil
}

// FindBySlug resolves a law by its URL slug.
func (store *PostgresStore) FindBySlug(ctx context.Context, slug string) (*Law, error) {
	const query = `
		SELECT id, categoria_id, titulo, slug, resumen, publicada_en
		FROM leyes
		WHERE slug = $1`

	law := &Law{}
	err := store.pool.QueryRow(ctx, query, slug).Scan(
		&law.ID,
		&law.CategoryID,
		&law.Title,
		&law.Slug,
		&law.Summary,
		&law.PublishedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "Ley")
	}

	return law, nil
}

// CreateLaw persists a new catalogue entry.
func (store *PostgresStore) CreateLaw(ctx context.Context, law *Law) error {
	const query = `
		INSERT INTO leyes (id, categoria_id, titulo, slug, resumen, publicada_en)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := store.pool.Exec(ctx, query,
		law.ID,
		law.CategoryID,
		law.Title,
		law.Slug,
		law.Summary,
		law.PublishedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "Ley")
	}

	return nil
}
