// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

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
	"github.com/taibuivan/mirava/internal/publish"
)

// # PostgreSQL Repository

// repository implements the [Repository] interface using pgx.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed chapter store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// chapterColumns is the scan column list shared by list and find queries.
func chapterColumns() string {
	return strings.Join([]string{
		schema.CoreChapter.ID,
		schema.CoreChapter.ComicID,
		schema.CoreChapter.UploaderID,
		schema.CoreChapter.Volume,
		schema.CoreChapter.Number,
		schema.CoreChapter.Title,
		schema.CoreChapter.Status,
		schema.CoreChapter.PagesCount,
		schema.CoreChapter.CompressionRatio,
		schema.CoreChapter.PublishedAt,
		schema.CoreChapter.CreatedAt,
		schema.CoreChapter.UpdatedAt,
	}, ", ")
}

// scanChapter hydrates one chapter row in chapterColumns order.
func scanChapter(row pgx.Row, extra ...any) (*Chapter, error) {
	var chapter Chapter
	targets := []any{
		&chapter.ID,
		&chapter.ComicID,
		&chapter.UploaderID,
		&chapter.Volume,
		&chapter.Number,
		&chapter.Title,
		&chapter.Status,
		&chapter.PagesCount,
		&chapter.CompressionRatio,
		&chapter.PublishedAt,
		&chapter.CreatedAt,
		&chapter.UpdatedAt,
	}
	targets = append(targets, extra...)

	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	return &chapter, nil
}

/*
ListByComic retrieves chapters linked to a specific comic.

Description: Returns lifecycle metadata ordered by chapter number, with the
total count computed by a window function in the same round-trip.

Parameters:
  - context: context.Context
  - comicID: string (Owner ID)
  - filter: Filter (Status and sort direction)
  - limit: int
  - offset: int

Returns:
  - []*Chapter: Matching chapters
  - int: Total matching count
*/
func (repository *repository) ListByComic(context context.Context, comicID string, filter Filter, limit, offset int) ([]*Chapter, int, error) {

	// Query construction
	var queryBuilder strings.Builder
	var args []any
	argID := 2

	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM %s
		WHERE %s = $1 AND %s IS NULL
	`,
		chapterColumns(),
		schema.CoreChapter.Table,
		schema.CoreChapter.ComicID,
		schema.CoreChapter.DeletedAt,
	))
	args = append(args, comicID)

	// Status filter injection
	if filter.Status != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = $%d", schema.CoreChapter.Status, argID))
		args = append(args, filter.Status)
		argID++
	}

	// Ordering and pagination limits
	sortDir := "DESC"
	if strings.ToLower(filter.SortDir) == "asc" {
		sortDir = "ASC"
	}

	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s %s, %s %s",
		schema.CoreChapter.Volume, sortDir, schema.CoreChapter.Number, sortDir))
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	// Query execution
	rows, err := repository.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to list chapters: %w", err)
	}
	defer rows.Close()

	// Entity hydration
	var chapters []*Chapter
	var totalCount int

	for rows.Next() {
		chapter, err := scanChapter(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: failed to scan chapter: %w", err)
		}
		chapters = append(chapters, chapter)
	}

	return chapters, totalCount, nil
}

/*
FindByID returns the chapter with the given unique identifier.

Returns:
  - *Chapter: Hydrated metadata
  - error: apperr.NotFound on absent rows
*/
func (repository *repository) FindByID(context context.Context, id string) (*Chapter, error) {

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1 AND %s IS NULL
	`,
		chapterColumns(),
		schema.CoreChapter.Table,
		schema.CoreChapter.ID,
		schema.CoreChapter.DeletedAt,
	)

	chapter, err := scanChapter(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Chapter")
		}
		return nil, fmt.Errorf("postgres: failed to find chapter: %w", err)
	}

	return chapter, nil
}

/*
Create persists a new chapter record.

Description: Chapters are always created in draft; lifecycle transitions go
through [Repository.SetStatus] or the publication pipeline's transaction.
*/
func (repository *repository) Create(context context.Context, chapter *Chapter) error {

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		schema.CoreChapter.Table,
		schema.CoreChapter.ID,
		schema.CoreChapter.ComicID,
		schema.CoreChapter.UploaderID,
		schema.CoreChapter.Volume,
		schema.CoreChapter.Number,
		schema.CoreChapter.Title,
		schema.CoreChapter.Status,
	)

	_, err := repository.pool.Exec(context, query,
		chapter.ID,
		chapter.ComicID,
		chapter.UploaderID,
		chapter.Volume,
		chapter.Number,
		chapter.Title,
		chapter.Status,
	)
	if err != nil {
		// A foreign-key violation here means the comic does not exist.
		return dberr.Wrap(err, "postgres: failed to create chapter")
	}

	return nil
}

/*
SetStatus transitions a chapter's lifecycle state.

Returns:
  - error: apperr.NotFound when targeting a missing row
*/
func (repository *repository) SetStatus(context context.Context, id string, status publish.Status) error {

	query := fmt.Sprintf(`
		UPDATE %s SET %s = $1, %s = NOW()
		WHERE %s = $2 AND %s IS NULL
	`,
		schema.CoreChapter.Table,
		schema.CoreChapter.Status,
		schema.CoreChapter.UpdatedAt,
		schema.CoreChapter.ID,
		schema.CoreChapter.DeletedAt,
	)

	result, err := repository.pool.Exec(context, query, status, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to set chapter status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound("Chapter")
	}

	return nil
}

/*
SoftDelete hides a chapter record.
*/
func (repository *repository) SoftDelete(context context.Context, id string) error {

	query := fmt.Sprintf(`UPDATE %s SET %s = NOW() WHERE %s = $1 AND %s IS NULL`,
		schema.CoreChapter.Table, schema.CoreChapter.DeletedAt, schema.CoreChapter.ID, schema.CoreChapter.DeletedAt)

	result, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete chapter: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound("Chapter")
	}

	return nil
}

// # Page Management

/*
ListPages retrieves images associated with a specific chapter.

Returns:
  - []*Page: Page records sorted by display order
*/
func (repository *repository) ListPages(context context.Context, chapterID string) ([]*Page, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, COALESCE(%s, ''), %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s ASC
	`,
		schema.CorePage.ID,
		schema.CorePage.ChapterID,
		schema.CorePage.PageNumber,
		schema.CorePage.ImageKey,
		schema.CorePage.OriginalFilename,
		schema.CorePage.Width,
		schema.CorePage.Height,
		schema.CorePage.Table,
		schema.CorePage.ChapterID,
		schema.CorePage.PageNumber,
	)

	rows, err := repository.pool.Query(context, query, chapterID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		var page Page
		err := rows.Scan(
			&page.ID,
			&page.ChapterID,
			&page.PageNumber,
			&page.ImageKey,
			&page.OriginalFilename,
			&page.Width,
			&page.Height,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan page: %w", err)
		}
		pages = append(pages, &page)
	}

	return pages, nil
}

/*
CreatePage persists a single uploaded page record.
*/
func (repository *repository) CreatePage(context context.Context, page *Page) error {

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		schema.CorePage.Table,
		schema.CorePage.ID,
		schema.CorePage.ChapterID,
		schema.CorePage.PageNumber,
		schema.CorePage.ImageKey,
		schema.CorePage.OriginalFilename,
		schema.CorePage.Width,
		schema.CorePage.Height,
	)

	_, err := repository.pool.Exec(context, query,
		page.ID,
		page.ChapterID,
		page.PageNumber,
		page.ImageKey,
		page.OriginalFilename,
		page.Width,
		page.Height,
	)
	if err != nil {
		return dberr.Wrap(err, "postgres: failed to create page")
	}

	return nil
}

/*
NextPageNumber computes the next free display position for a chapter.
*/
func (repository *repository) NextPageNumber(context context.Context, chapterID string) (int, error) {

	query := fmt.Sprintf(`SELECT COALESCE(MAX(%s), 0) + 1 FROM %s WHERE %s = $1`,
		schema.CorePage.PageNumber, schema.CorePage.Table, schema.CorePage.ChapterID)

	var next int
	if err := repository.pool.QueryRow(context, query, chapterID).Scan(&next); err != nil {
		return 0, fmt.Errorf("postgres: failed to compute next page number: %w", err)
	}

	return next, nil
}

/*
CountPages returns the number of page rows for a chapter.
*/
func (repository *repository) CountPages(context context.Context, chapterID string) (int, error) {

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
		schema.CorePage.Table, schema.CorePage.ChapterID)

	var count int
	if err := repository.pool.QueryRow(context, query, chapterID).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: failed to count pages: %w", err)
	}

	return count, nil
}
