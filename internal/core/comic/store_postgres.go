// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mirava/internal/platform/apperr"
	"github.com/taibuivan/mirava/internal/platform/database/schema"
	"github.com/taibuivan/mirava/internal/platform/dberr"
)

// # PostgreSQL Repository

// repository implements the [Repository] interface using pgx.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed catalogue store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

/*
List retrieves catalogue entries matching the filter.

Description: Uses a window function for the total count so listing and
pagination metadata come back in a single round-trip.

Parameters:
  - context: context.Context
  - filter: Filter (Search and status constraints)
  - limit: int
  - offset: int

Returns:
  - []*Comic: Matching entries ordered by title
  - int: Total matching count
*/
func (repository *repository) List(context context.Context, filter Filter, limit, offset int) ([]*Comic, int, error) {

	// Query construction
	var queryBuilder strings.Builder
	var args []any
	argID := 1

	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s,
			COUNT(*) OVER() AS total_count
		FROM %s
		WHERE %s IS NULL
	`,
		schema.CoreComic.ID,
		schema.CoreComic.Title,
		schema.CoreComic.Slug,
		schema.CoreComic.Status,
		schema.CoreComic.Description,
		schema.CoreComic.CoverURL,
		schema.CoreComic.ViewCount,
		schema.CoreComic.CreatedAt,
		schema.CoreComic.UpdatedAt,
		schema.CoreComic.Table,
		schema.CoreComic.DeletedAt,
	))

	// Title search injection
	if filter.Search != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND %s ILIKE $%d", schema.CoreComic.Title, argID))
		args = append(args, "%"+filter.Search+"%")
		argID++
	}

	// Status filter injection
	if filter.Status != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = $%d", schema.CoreComic.Status, argID))
		args = append(args, filter.Status)
		argID++
	}

	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s ASC", schema.CoreComic.Title))
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	// Query execution
	rows, err := repository.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to list comics: %w", err)
	}
	defer rows.Close()

	// Entity hydration
	var comics []*Comic
	var totalCount int

	for rows.Next() {
		var comic Comic
		err := rows.Scan(
			&comic.ID,
			&comic.Title,
			&comic.Slug,
			&comic.Status,
			&comic.Description,
			&comic.CoverURL,
			&comic.ViewCount,
			&comic.CreatedAt,
			&comic.UpdatedAt,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: failed to scan comic: %w", err)
		}
		comics = append(comics, &comic)
	}

	return comics, totalCount, nil
}

/*
FindByIDOrSlug resolves a comic by its UUID or URL slug.

Description: A single query covers both lookup styles; UUIDs and slugs
cannot collide because slugs never match the UUID grammar.

Parameters:
  - context: context.Context
  - idOrSlug: string

Returns:
  - *Comic: The hydrated entity
  - error: apperr.NotFound on absent rows
*/
func (repository *repository) FindByIDOrSlug(context context.Context, idOrSlug string) (*Comic, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE (%s::text = $1 OR %s = $1) AND %s IS NULL
	`,
		schema.CoreComic.ID,
		schema.CoreComic.Title,
		schema.CoreComic.Slug,
		schema.CoreComic.Status,
		schema.CoreComic.Description,
		schema.CoreComic.CoverURL,
		schema.CoreComic.ViewCount,
		schema.CoreComic.CreatedAt,
		schema.CoreComic.UpdatedAt,
		schema.CoreComic.DeletedAt,
		schema.CoreComic.Table,
		schema.CoreComic.ID,
		schema.CoreComic.Slug,
		schema.CoreComic.DeletedAt,
	)

	var comic Comic
	err := repository.pool.QueryRow(context, query, idOrSlug).Scan(
		&comic.ID,
		&comic.Title,
		&comic.Slug,
		&comic.Status,
		&comic.Description,
		&comic.CoverURL,
		&comic.ViewCount,
		&comic.CreatedAt,
		&comic.UpdatedAt,
		&comic.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Comic")
		}
		return nil, fmt.Errorf("postgres: failed to find comic: %w", err)
	}

	return &comic, nil
}

/*
Create persists a new catalogue entry.

Returns:
  - error: apperr.Conflict when the slug is already taken
*/
func (repository *repository) Create(context context.Context, comic *Comic) error {

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		schema.CoreComic.Table,
		schema.CoreComic.ID,
		schema.CoreComic.Title,
		schema.CoreComic.Slug,
		schema.CoreComic.Status,
		schema.CoreComic.Description,
		schema.CoreComic.CoverURL,
	)

	_, err := repository.pool.Exec(context, query,
		comic.ID,
		comic.Title,
		comic.Slug,
		comic.Status,
		comic.Description,
		comic.CoverURL,
	)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict("A comic with this slug already exists")
		}
		return fmt.Errorf("postgres: failed to create comic: %w", err)
	}

	return nil
}

/*
IncrementViewCount atomically updates a comic's view counter.
*/
func (repository *repository) IncrementViewCount(context context.Context, id string, delta int64) error {

	// Direct atomic increment to prevent race conditions during heavy traffic
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + $1 WHERE %s = $2`,
		schema.CoreComic.Table, schema.CoreComic.ViewCount, schema.CoreComic.ViewCount, schema.CoreComic.ID)

	_, err := repository.pool.Exec(context, query, delta, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to increment view count: %w", err)
	}

	return nil
}

/*
SoftDelete hides a comic record.
*/
func (repository *repository) SoftDelete(context context.Context, id string) error {

	query := fmt.Sprintf(`UPDATE %s SET %s = NOW() WHERE %s = $1 AND %s IS NULL`,
		schema.CoreComic.Table, schema.CoreComic.DeletedAt, schema.CoreComic.ID, schema.CoreComic.DeletedAt)

	result, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete comic: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound("Comic")
	}

	return nil
}
