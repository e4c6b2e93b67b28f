// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import "context"

// # Catalogue Data Access

// Repository defines the data access contract for the catalogue.
type Repository interface {

	/*
		List returns catalogue entries matching the filter.

		Parameters:
		  - context: context.Context
		  - filter: Filter (Search and status constraints)
		  - limit: int
		  - offset: int

		Returns:
		  - []*Comic: Matching entries
		  - int: Total matching count (for pagination)
		  - error: Storage failures
	*/
	List(context context.Context, filter Filter, limit, offset int) ([]*Comic, int, error)

	/*
		FindByIDOrSlug resolves a comic by UUID or URL slug.

		Returns:
		  - *Comic: The hydrated entity
		  - error: apperr.NotFound if missing
	*/
	FindByIDOrSlug(context context.Context, idOrSlug string) (*Comic, error)

	/*
		Create persists a new catalogue entry.

		Returns:
		  - error: apperr.Conflict on a duplicate slug
	*/
	Create(context context.Context, comic *Comic) error

	/*
		IncrementViewCount atomically bumps the view counter.
	*/
	IncrementViewCount(context context.Context, id string, delta int64) error

	/*
		SoftDelete hides a comic without physical row removal.

		Returns:
		  - error: apperr.NotFound if the row does not exist
	*/
	SoftDelete(context context.Context, id string) error
}
