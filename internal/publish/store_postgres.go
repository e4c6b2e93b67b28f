// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package publish — PostgreSQL implementation of the metadata synchronizer.

The transaction boundary here is the single ordering guarantee of the whole
pipeline: readers may observe the chapter's new state only after COMMIT, and
a failed transaction leaves both the chapter row and every page row exactly
as they were before the publish attempt. Object-store side effects are
intentionally not rolled back; orphaned copies are idempotent no-ops on the
next attempt.
*/
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mirava/internal/platform/apperr"
	"github.com/taibuivan/mirava/internal/platform/database/schema"
	"github.com/taibuivan/mirava/pkg/uuid"
)

// repository implements [Repository] using pgx.
type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed publication store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// # Reads

// ChapterForPublish loads the chapter row joined with the parent comic's
// slug, which anchors the permanent key scheme.
func (repository *repository) ChapterForPublish(context context.Context, chapterID string) (*Chapter, error) {

	query := fmt.Sprintf(`
		SELECT
			ch.%s, ch.%s, co.%s,
			ch.%s, ch.%s, ch.%s, ch.%s, ch.%s
		FROM %s ch
		JOIN %s co ON ch.%s = co.%s
		WHERE ch.%s = $1 AND ch.%s IS NULL
	`,
		schema.CoreChapter.ID, schema.CoreChapter.ComicID, schema.CoreComic.Slug,
		schema.CoreChapter.Volume, schema.CoreChapter.Number, schema.CoreChapter.Status,
		schema.CoreChapter.PagesCount, schema.CoreChapter.PublishedAt,
		schema.CoreChapter.Table,
		schema.CoreComic.Table, schema.CoreChapter.ComicID, schema.CoreComic.ID,
		schema.CoreChapter.ID, schema.CoreChapter.DeletedAt,
	)

	var chapter Chapter
	var status string

	err := repository.pool.QueryRow(context, query, chapterID).Scan(
		&chapter.ID,
		&chapter.ComicID,
		&chapter.ComicSlug,
		&chapter.Volume,
		&chapter.Number,
		&status,
		&chapter.PagesCount,
		&chapter.PublishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Chapter")
		}
		return nil, fmt.Errorf("postgres: failed to load chapter for publish: %w", err)
	}

	chapter.Status = Status(status)
	return &chapter, nil
}

// Pages returns the chapter's page rows ordered by page number.
func (repository *repository) Pages(context context.Context, chapterID string) ([]*Page, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, COALESCE(%s, ''), %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s ASC
	`,
		schema.CorePage.ID, schema.CorePage.PageNumber, schema.CorePage.ImageKey, schema.CorePage.OriginalFilename,
		schema.CorePage.Width, schema.CorePage.Height,
		schema.CorePage.Table,
		schema.CorePage.ChapterID,
		schema.CorePage.PageNumber,
	)

	rows, err := repository.pool.Query(context, query, chapterID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list publish pages: %w", err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		var page Page
		if err := rows.Scan(&page.ID, &page.Index, &page.ImageKey, &page.OriginalFilename, &page.Width, &page.Height); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan publish page: %w", err)
		}
		pages = append(pages, &page)
	}

	return pages, rows.Err()
}

// # Atomic Commits

// CommitPublish applies the full publication outcome in one transaction.
func (repository *repository) CommitPublish(context context.Context, chapterID string, updates, inserts []PageLocation, stats PublishStats) error {

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin publish transaction: %w", err)
	}
	// Rollback is a no-op after a successful commit.
	defer func() { _ = transaction.Rollback(context) }()

	// Page location updates are pipelined in a single batch.
	batch := &pgx.Batch{}

	// Zero dimensions mean the page was not re-measured this run (the copy
	// was skipped), so the stored values are kept.
	updateQuery := fmt.Sprintf(`
		UPDATE %s SET %s = $1,
			%s = COALESCE(NULLIF($2, 0), %s),
			%s = COALESCE(NULLIF($3, 0), %s)
		WHERE %s = $4
	`,
		schema.CorePage.Table, schema.CorePage.ImageKey,
		schema.CorePage.Width, schema.CorePage.Width,
		schema.CorePage.Height, schema.CorePage.Height,
		schema.CorePage.ID,
	)
	for _, update := range updates {
		batch.Queue(updateQuery, update.ImageKey, update.Width, update.Height, update.PageID)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		schema.CorePage.Table,
		schema.CorePage.ID, schema.CorePage.ChapterID, schema.CorePage.PageNumber,
		schema.CorePage.ImageKey, schema.CorePage.Width, schema.CorePage.Height,
	)
	for _, insert := range inserts {
		pageID := insert.PageID
		if pageID == "" {
			pageID = uuid.New()
		}
		batch.Queue(insertQuery, pageID, chapterID, insert.Index, insert.ImageKey, insert.Width, insert.Height)
	}

	// Chapter state flip. published_at is set-once: republishing never
	// moves the original publication time.
	chapterQuery := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3,
			%s = COALESCE(%s, NOW()), %s = NOW()
		WHERE %s = $4
	`,
		schema.CoreChapter.Table,
		schema.CoreChapter.Status, schema.CoreChapter.PagesCount, schema.CoreChapter.CompressionRatio,
		schema.CoreChapter.PublishedAt, schema.CoreChapter.PublishedAt, schema.CoreChapter.UpdatedAt,
		schema.CoreChapter.ID,
	)
	batch.Queue(chapterQuery, string(StatusPublished), stats.PagesCount, stats.CompressionRatio, chapterID)

	results := transaction.SendBatch(context, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("postgres: publish batch statement %d failed: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("postgres: failed to close publish batch: %w", err)
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres: failed to commit publish transaction: %w", err)
	}

	return nil
}

// CommitReject captures page locations, deletes the rows, and resets the
// chapter inside one transaction.
func (repository *repository) CommitReject(context context.Context, chapterID string, status Status) (*RejectOutcome, error) {

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to begin reject transaction: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	// Capture exact location references before deletion; the sweeper needs
	// them once the rows are gone.
	selectQuery := fmt.Sprintf(`
		SELECT %s FROM %s WHERE %s = $1 FOR UPDATE
	`, schema.CorePage.ImageKey, schema.CorePage.Table, schema.CorePage.ChapterID)

	rows, err := transaction.Query(context, selectQuery, chapterID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to capture page locations: %w", err)
	}

	var imageKeys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("postgres: failed to scan page location: %w", err)
		}
		if key != "" {
			imageKeys = append(imageKeys, key)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate page locations: %w", err)
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
		schema.CorePage.Table, schema.CorePage.ChapterID)

	deleted, err := transaction.Exec(context, deleteQuery, chapterID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to delete pages: %w", err)
	}

	chapterQuery := fmt.Sprintf(`
		UPDATE %s SET %s = $1, %s = 0, %s = NOW()
		WHERE %s = $2
	`,
		schema.CoreChapter.Table,
		schema.CoreChapter.Status, schema.CoreChapter.PagesCount, schema.CoreChapter.UpdatedAt,
		schema.CoreChapter.ID,
	)

	result, err := transaction.Exec(context, chapterQuery, string(status), chapterID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to update rejected chapter: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, apperr.NotFound("Chapter")
	}

	if err := transaction.Commit(context); err != nil {
		return nil, fmt.Errorf("postgres: failed to commit reject transaction: %w", err)
	}

	return &RejectOutcome{
		ImageKeys:    imageKeys,
		DeletedPages: int(deleted.RowsAffected()),
	}, nil
}
