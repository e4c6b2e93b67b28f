// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import "context"

// # Metadata Synchronization Contract

// PageLocation carries the new location fields for one page row after a
// successful relocation.
type PageLocation struct {
	// PageID identifies the row to update; empty for degraded-mode inserts.
	PageID string
	// Index is the 1-based ordering index.
	Index int
	// ImageKey is the permanent object key the page now lives at.
	ImageKey string
	Width    int
	Height   int
}

// PublishStats is the chapter-level outcome persisted with publication.
type PublishStats struct {
	// PagesCount is the number of successfully relocated pages.
	PagesCount int
	// CompressionRatio is the aggregate percentage of bytes saved, [0,100].
	CompressionRatio float64
}

// RejectOutcome reports what the reject transaction removed.
type RejectOutcome struct {
	// ImageKeys are the exact location references captured from the page
	// rows before deletion, for object cleanup outside the transaction.
	ImageKeys []string
	// DeletedPages is the number of page rows removed.
	DeletedPages int
}

// Repository is the relational contract of the publication pipeline.
type Repository interface {

	/*
		ChapterForPublish loads a chapter joined with its parent comic.

		Parameters:
		  - context: context.Context
		  - chapterID: string (UUID)

		Returns:
		  - *Chapter: Publication view including the comic slug
		  - error: apperr.NotFound if missing
	*/
	ChapterForPublish(context context.Context, chapterID string) (*Chapter, error)

	/*
		Pages returns the chapter's page rows ordered by page number.

		Returns:
		  - []*Page: May be empty for legacy chapters
		  - error: Storage failures
	*/
	Pages(context context.Context, chapterID string) ([]*Page, error)

	/*
		CommitPublish atomically applies the publication outcome: every
		updated page gets its new location, degraded-mode pages are
		inserted, and the chapter becomes published with its final
		pages_count, compression statistic, and a set-once publication
		timestamp. Either all effects are visible or none are.

		Parameters:
		  - context: context.Context
		  - chapterID: string (UUID)
		  - updates: []PageLocation (Existing rows to repoint)
		  - inserts: []PageLocation (Rows to create; degraded mode only)
		  - stats: PublishStats

		Returns:
		  - error: Transaction failure; no partial state is ever visible
	*/
	CommitPublish(context context.Context, chapterID string, updates, inserts []PageLocation, stats PublishStats) error

	/*
		CommitReject atomically discards a chapter's pages: captures their
		exact location references, deletes the rows, zeroes pages_count,
		and moves the chapter to the requested status (draft for
		re-upload, rejected for terminal discard).

		Parameters:
		  - context: context.Context
		  - chapterID: string (UUID)
		  - status: Status (StatusDraft or StatusRejected)

		Returns:
		  - *RejectOutcome: Captured keys and deletion count
		  - error: Transaction failure
	*/
	CommitReject(context context.Context, chapterID string, status Status) (*RejectOutcome, error)
}
