// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taibuivan/mirava/internal/auth"
	"github.com/taibuivan/mirava/internal/platform/apperr"
	"github.com/taibuivan/mirava/internal/platform/middleware"
	requestutil "github.com/taibuivan/mirava/internal/platform/request"
	"github.com/taibuivan/mirava/internal/platform/respond"
	"github.com/taibuivan/mirava/internal/publish"
	"github.com/taibuivan/mirava/pkg/pagination"
)

const (
	FieldItems   = "items"
	FieldTotal   = "total"
	FieldMessage = "message"
)

// # Handler Implementation

// Handler implements the HTTP layer for chapter management and uploads.
type Handler struct {
	service *Service
}

// NewHandler constructs a new chapter [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches chapter and page endpoints to the root API
// router. Chapter endpoints span both /comics/{id}/... and /chapters/...
// prefixes.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	// Discovery endpoints
	api.Get("/comics/{comicID}/chapters", handler.ListChapters)
	api.Get("/chapters/{id}", handler.GetChapter)
	api.Get("/chapters/{id}/pages", handler.ListPages)

	// Uploader protected endpoints
	api.Group(func(author chi.Router) {
		author.Use(middleware.RequireRole(auth.UserRoleAuthor))
		author.Post("/comics/{comicID}/chapters", handler.CreateChapter)
		author.Post("/chapters/{id}/pages", handler.UploadPage)
		author.Post("/chapters/{id}/ready", handler.MarkReady)
	})
}

// # Chapter Retrieval

/*
GET /api/v1/comics/{comicID}/chapters.

Description: Returns a paginated roster of chapters for a comic. Anonymous
callers only see published chapters; staff may filter by any lifecycle
state.

Request:
  - comicID: string (UUID)
  - status: string (Lifecycle filter, staff only)
  - dir: string (asc, desc)
  - limit: int
  - page: int

Response:
  - 200: []Chapter: Paginated list
*/
func (handler *Handler) ListChapters(writer http.ResponseWriter, request *http.Request) {
	comicID := requestutil.ID(request, "comicID")

	paginationParams := pagination.FromRequest(request)

	filter := Filter{
		Status:  string(publish.StatusPublished),
		SortDir: request.URL.Query().Get("dir"),
	}

	// Staff can inspect the full lifecycle.
	if claims := requestutil.Claims(request); claims != nil && claims.IsStaff() {
		if status := request.URL.Query().Get("status"); status != "" {
			filter.Status = status
		}
	}

	chapters, total, err := handler.service.ListChapters(request.Context(), comicID, filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldItems: chapters,
		FieldTotal: total,
	})
}

/*
GET /api/v1/chapters/{id}.

Description: Returns metadata for a single chapter.

Request:
  - id: string (UUID)

Response:
  - 200: Chapter: Lifecycle and publication metadata
  - 404: 404: ErrNotFound: Chapter not found
*/
func (handler *Handler) GetChapter(writer http.ResponseWriter, request *http.Request) {
	chapterID := requestutil.ID(request, "id")

	chapter, err := handler.service.GetChapter(request.Context(), chapterID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, chapter)
}

/*
GET /api/v1/chapters/{id}/pages.

Description: Returns the chapter's pages in display order. Unpublished
chapters are only visible to staff and their uploader.

Request:
  - id: string (UUID)

Response:
  - 200: []Page: Image metadata in order
  - 404: 404: ErrNotFound: Chapter not found
*/
func (handler *Handler) ListPages(writer http.ResponseWriter, request *http.Request) {
	chapterID := requestutil.ID(request, "id")

	chapter, err := handler.service.GetChapter(request.Context(), chapterID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Unpublished content stays private to staff and the uploader.
	if chapter.Status != publish.StatusPublished {
		claims := requestutil.Claims(request)
		if claims == nil || (!claims.IsStaff() && claims.UserID != chapter.UploaderID) {
			respond.Error(writer, request, apperr.NotFound("Chapter"))
			return
		}
	}

	pages, err := handler.service.ListPages(request.Context(), chapterID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pages)
}

// # Chapter Creation

// createChapterRequest defines the inbound JSON schema for new chapters.
type createChapterRequest struct {
	Volume int     `json:"volume"`
	Number float64 `json:"number"`
	Title  string  `json:"title"`
}

/*
POST /api/v1/comics/{comicID}/chapters.

Description: Creates a new draft chapter for a comic, owned by the caller.

Request:
  - comicID: string (UUID)
  - body: createChapterRequest

Response:
  - 201: Chapter: Created draft
  - 400: 400: ErrInvalidJSON/Validation: Invalid payload
  - 401: 401: ErrUnauthorized: Authentication required
  - 403: 403: ErrForbidden: Insufficient permissions
*/
func (handler *Handler) CreateChapter(writer http.ResponseWriter, request *http.Request) {
	comicID := requestutil.ID(request, "comicID")

	uploaderID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createChapterRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter := &Chapter{
		ComicID:    comicID,
		UploaderID: uploaderID,
		Volume:     input.Volume,
		Number:     input.Number,
		Title:      input.Title,
	}

	if err := handler.service.CreateChapter(request.Context(), chapter); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, chapter)
}

// # Page Upload

/*
POST /api/v1/chapters/{id}/pages.

Description: Stages one page image for a draft chapter. Accepts a
multipart form with a single "file" part; the image is converted to WebP
before it reaches the staging bucket.

Request:
  - id: string (Chapter UUID)
  - file: multipart part (The page image)

Response:
  - 201: Page: Registered page with its staged key and dimensions
  - 400: 400: Validation: Missing or oversized file part
  - 409: 409: Conflict: Chapter is not accepting uploads
  - 422: 422: Unprocessable: Undecodable image
*/
func (handler *Handler) UploadPage(writer http.ResponseWriter, request *http.Request) {
	chapterID := requestutil.ID(request, "id")

	request.Body = http.MaxBytesReader(writer, request.Body, maxUploadBytes)

	file, header, err := request.FormFile("file")
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("Multipart form must carry a 'file' part"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("Failed to read uploaded file"))
		return
	}

	page, err := handler.service.UploadPage(request.Context(), chapterID, header.Filename, data)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, page)
}

/*
POST /api/v1/chapters/{id}/ready.

Description: Submits a draft chapter for moderation review.

Request:
  - id: string (Chapter UUID)

Response:
  - 200: Message: Submission confirmation
  - 404: 404: ErrNotFound: Chapter not found
  - 409: 409: Conflict: Chapter is not a draft
  - 422: 422: Unprocessable: Chapter has no pages
*/
func (handler *Handler) MarkReady(writer http.ResponseWriter, request *http.Request) {
	chapterID := requestutil.ID(request, "id")

	if err := handler.service.MarkReady(request.Context(), chapterID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{FieldMessage: "Chapter submitted for review"})
}
