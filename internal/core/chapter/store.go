// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"

	"github.com/taibuivan/mirava/internal/publish"
)

// # Chapter & Page Data Access

// Repository defines the data access contract for chapters and pages.
type Repository interface {

	/*
		ListByComic returns chapters for a comic, ordered by chapter number.

		Parameters:
		  - context: context.Context
		  - comicID: string (Owner ID)
		  - filter: Filter (Status and sort direction)
		  - limit: int
		  - offset: int

		Returns:
		  - []*Chapter: Hydrated chapters
		  - int: Total matching count
		  - error: Storage failures
	*/
	ListByComic(context context.Context, comicID string, filter Filter, limit, offset int) ([]*Chapter, int, error)

	/*
		FindByID returns the chapter with the given ID.

		Returns:
		  - *Chapter: Hydrated metadata
		  - error: apperr.NotFound if missing
	*/
	FindByID(context context.Context, id string) (*Chapter, error)

	/*
		Create persists a new chapter in draft state.

		Returns:
		  - error: Storage failures
	*/
	Create(context context.Context, chapter *Chapter) error

	/*
		SetStatus transitions a chapter's lifecycle state.

		Returns:
		  - error: apperr.NotFound if the row does not exist
	*/
	SetStatus(context context.Context, id string, status publish.Status) error

	/*
		SoftDelete hides a chapter without physical row removal.
	*/
	SoftDelete(context context.Context, id string) error

	/*
		ListPages returns all pages for a chapter ordered by page number.

		Returns:
		  - []*Page: Image metadata in display order
		  - error: Retrieval failures
	*/
	ListPages(context context.Context, chapterID string) ([]*Page, error)

	/*
		CreatePage persists a single uploaded page.

		Returns:
		  - error: Storage failures
	*/
	CreatePage(context context.Context, page *Page) error

	/*
		NextPageNumber returns the next free 1-based page number for a
		chapter.

		Returns:
		  - int: MAX(page_number) + 1, or 1 for an empty chapter
		  - error: Storage failures
	*/
	NextPageNumber(context context.Context, chapterID string) (int, error)

	/*
		CountPages returns the number of page rows for a chapter.
	*/
	CountPages(context context.Context, chapterID string) (int, error)
}
