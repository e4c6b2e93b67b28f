// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"context"
	"log/slog"

	"github.com/taibuivan/mirava/internal/platform/validate"
	"github.com/taibuivan/mirava/pkg/slug"
	"github.com/taibuivan/mirava/pkg/uuid"
)

const (
	FieldTitle  = "title"
	FieldStatus = "status"
)

// # Service Layer

// Service orchestrates the business logic for the catalogue.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new catalogue [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// # Catalogue Operations

/*
ListComics retrieves a paginated slice of the catalogue.

Parameters:
  - context: context.Context
  - filter: Filter (Search and status constraints)
  - limit: int
  - offset: int

Returns:
  - []*Comic: Matching entries
  - int: Total matching count
  - error: Storage failures
*/
func (service *Service) ListComics(context context.Context, filter Filter, limit, offset int) ([]*Comic, int, error) {
	return service.repo.List(context, filter, limit, offset)
}

/*
GetComic resolves a comic by UUID or URL slug.

Parameters:
  - context: context.Context
  - idOrSlug: string

Returns:
  - *Comic: The hydrated entity
  - error: apperr.NotFound if missing
*/
func (service *Service) GetComic(context context.Context, idOrSlug string) (*Comic, error) {
	return service.repo.FindByIDOrSlug(context, idOrSlug)
}

/*
CreateComic registers a new series.

Description: Generates the identity and the URL slug from the title. The
slug anchors the permanent object keys of every chapter published under
this comic, so it is fixed at creation time.

Parameters:
  - context: context.Context
  - comic: *Comic (Title and display metadata; ID and Slug are assigned)

Returns:
  - error: Validation errors or apperr.Conflict on a duplicate slug
*/
func (service *Service) CreateComic(context context.Context, comic *Comic) error {

	// Identity & slug generation
	if comic.ID == "" {
		comic.ID = uuid.New()
	}
	if comic.Slug == "" {
		comic.Slug = slug.From(comic.Title)
	}
	if comic.Status == "" {
		comic.Status = StatusOngoing
	}

	// Business attribute validation
	validator := &validate.Validator{}
	validator.Required(FieldTitle, comic.Title)
	validator.Slug("slug", comic.Slug)
	validator.OneOf(FieldStatus, string(comic.Status),
		string(StatusOngoing), string(StatusCompleted), string(StatusHiatus), string(StatusCancelled))

	if err := validator.Err(); err != nil {
		return err
	}

	// Storage persistence
	if err := service.repo.Create(context, comic); err != nil {
		return err
	}

	service.logger.Info("comic_created",
		slog.String("comic_id", comic.ID),
		slog.String("slug", comic.Slug),
	)

	return nil
}

/*
DeleteComic hides a comic from the catalogue.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - error: apperr.NotFound if missing
*/
func (service *Service) DeleteComic(context context.Context, id string) error {
	if err := service.repo.SoftDelete(context, id); err != nil {
		return err
	}

	service.logger.Info("comic_deleted", slog.String("comic_id", id))
	return nil
}

/*
RecordView bumps a comic's view counter.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - error: Persistence failures
*/
func (service *Service) RecordView(context context.Context, id string) error {
	return service.repo.IncrementViewCount(context, id, 1)
}
