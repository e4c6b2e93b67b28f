// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/taibuivan/mirava/internal/platform/apperr"
	"github.com/taibuivan/mirava/internal/platform/objstore"
	"github.com/taibuivan/mirava/internal/platform/validate"
	"github.com/taibuivan/mirava/internal/publish"
	"github.com/taibuivan/mirava/pkg/uuid"
)

const (
	FieldComicID       = "comic_id"
	FieldChapterNumber = "number"
	FieldVolume        = "volume"
)

// maxUploadBytes caps a single page upload.
const maxUploadBytes = 32 << 20 // 32 MiB

// # Service Layer

// Service orchestrates chapter lifecycle and page uploads.
type Service struct {
	repo     Repository
	staging  objstore.Store
	settings publish.SettingsSource
	logger   *slog.Logger
}

// NewService constructs a new chapter [Service].
func NewService(repo Repository, staging objstore.Store, settings publish.SettingsSource, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		staging:  staging,
		settings: settings,
		logger:   logger,
	}
}

// # Chapter Operations

/*
ListChapters retrieves chapters for a comic.

Description: Anonymous listings only see published chapters; staff can
request any lifecycle state through the filter.

Parameters:
  - context: context.Context
  - comicID: string (Owner ID)
  - filter: Filter (Status and sort direction)
  - limit: int
  - offset: int

Returns:
  - []*Chapter: Matching chapters
  - int: Total matching count
  - error: Storage failures
*/
func (service *Service) ListChapters(context context.Context, comicID string, filter Filter, limit, offset int) ([]*Chapter, int, error) {
	return service.repo.ListByComic(context, comicID, filter, limit, offset)
}

/*
GetChapter retrieves metadata for a single chapter.

Returns:
  - *Chapter: The hydrated entity
  - error: apperr.NotFound if missing
*/
func (service *Service) GetChapter(context context.Context, id string) (*Chapter, error) {
	return service.repo.FindByID(context, id)
}

/*
ListPages returns a chapter's pages in display order.

Returns:
  - []*Page: Image metadata ordered by page number
  - error: apperr.NotFound if the chapter is missing
*/
func (service *Service) ListPages(context context.Context, chapterID string) ([]*Page, error) {
	if _, err := service.repo.FindByID(context, chapterID); err != nil {
		return nil, err
	}
	return service.repo.ListPages(context, chapterID)
}

/*
CreateChapter initialises a new draft chapter.

Parameters:
  - context: context.Context
  - chapter: *Chapter (Comic, volume and number; ID and status assigned)

Returns:
  - error: Validation or persistence errors
*/
func (service *Service) CreateChapter(context context.Context, chapter *Chapter) error {

	// Identity & lifecycle initialisation
	if chapter.ID == "" {
		chapter.ID = uuid.New()
	}
	chapter.Status = publish.StatusDraft

	// Business attribute validation
	validator := &validate.Validator{}
	validator.Required(FieldComicID, chapter.ComicID)
	validator.Custom(FieldChapterNumber, chapter.Number < 0, "Chapter number cannot be negative")
	validator.Custom(FieldVolume, chapter.Volume < 0, "Volume cannot be negative")

	if err := validator.Err(); err != nil {
		return err
	}

	// Storage persistence
	if err := service.repo.Create(context, chapter); err != nil {
		return err
	}

	service.logger.Info("chapter_created",
		slog.String("chapter_id", chapter.ID),
		slog.String("comic_id", chapter.ComicID),
		slog.Float64("number", chapter.Number),
	)

	return nil
}

// # Page Uploads

/*
UploadPage stages one page image for a draft chapter.

Description: The image is decoded, converted to WebP at the configured
upload quality, and written to the chapter's staging prefix with its codec
and quality recorded as object metadata — the publication pipeline reads
these to decide whether a later re-encode is needed. The page row records
the staged key, the uploader's filename, and the pixel dimensions.

Parameters:
  - context: context.Context
  - chapterID: string (UUID)
  - filename: string (The uploader's original filename)
  - data: []byte (Raw image bytes)

Returns:
  - *Page: The registered page with its staged object key
  - error: apperr.Conflict if the chapter is not accepting uploads, or
    apperr.Unprocessable for undecodable images
*/
func (service *Service) UploadPage(context context.Context, chapterID, filename string, data []byte) (*Page, error) {

	// ── Lifecycle guard ──────────────────────────────────────────────────
	chapter, err := service.repo.FindByID(context, chapterID)
	if err != nil {
		return nil, err
	}
	if chapter.Status != publish.StatusDraft {
		return nil, apperr.Conflict("Chapter is not accepting uploads")
	}
	if len(data) == 0 || len(data) > maxUploadBytes {
		return nil, apperr.ValidationError("Image payload is empty or exceeds the size limit")
	}

	// ── Upload-time conversion ───────────────────────────────────────────
	settings, err := service.settings.Load(context)
	if err != nil {
		return nil, err
	}

	// Uploads are encoded at the (laxer) upload quality and keep their
	// original dimensions; publication applies the final bounds.
	uploadSettings := settings
	uploadSettings.PublishQuality = settings.UploadQuality
	uploadSettings.MaxWidth = 0
	uploadSettings.MaxHeight = 0

	optimized, err := publish.Optimize(data, publish.PriorEncoding{}, uploadSettings, false)
	if err != nil {
		return nil, apperr.Unprocessable("Unsupported or corrupted image")
	}

	// ── Staging write ────────────────────────────────────────────────────
	pageNumber, err := service.repo.NextPageNumber(context, chapterID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s%04d%s",
		publish.StagingPrefix(chapter.ComicID, chapterID), pageNumber, publish.TargetExtension)

	err = service.staging.Put(context, key, optimized.Data, objstore.PutOptions{
		ContentType: "image/webp",
		Metadata: map[string]string{
			"codec":   publish.CodecWebP,
			"quality": strconv.Itoa(settings.UploadQuality),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chapter: failed to stage page image: %w", err)
	}

	// ── Row registration ─────────────────────────────────────────────────
	page := &Page{
		ID:               uuid.New(),
		ChapterID:        chapterID,
		PageNumber:       pageNumber,
		ImageKey:         key,
		OriginalFilename: filename,
		Width:            optimized.Width,
		Height:           optimized.Height,
	}

	if err := service.repo.CreatePage(context, page); err != nil {
		return nil, err
	}

	service.logger.Info("page_uploaded",
		slog.String("chapter_id", chapterID),
		slog.Int("page_number", pageNumber),
		slog.String("key", key),
		slog.Int64("saved_bytes", optimized.SavedBytes),
	)

	return page, nil
}

/*
MarkReady submits a draft chapter for moderation.

Parameters:
  - context: context.Context
  - chapterID: string (UUID)

Returns:
  - error: apperr.Conflict if the chapter is not a draft, or
    apperr.Unprocessable if it has no staged pages
*/
func (service *Service) MarkReady(context context.Context, chapterID string) error {

	chapter, err := service.repo.FindByID(context, chapterID)
	if err != nil {
		return err
	}
	if chapter.Status != publish.StatusDraft {
		return apperr.Conflict("Only draft chapters can be submitted for review")
	}

	count, err := service.repo.CountPages(context, chapterID)
	if err != nil {
		return err
	}
	if count == 0 {
		return apperr.Unprocessable("Chapter has no uploaded pages")
	}

	if err := service.repo.SetStatus(context, chapterID, publish.StatusReady); err != nil {
		return err
	}

	service.logger.Info("chapter_submitted",
		slog.String("chapter_id", chapterID),
		slog.Int("pages", count),
	)

	return nil
}
