// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taibuivan/mirava/internal/auth"
	"github.com/taibuivan/mirava/internal/platform/middleware"
	requestutil "github.com/taibuivan/mirava/internal/platform/request"
	"github.com/taibuivan/mirava/internal/platform/respond"
	"github.com/taibuivan/mirava/pkg/pagination"
)

const (
	FieldItems = "items"
	FieldTotal = "total"
)

// # Handler Implementation

// Handler implements the HTTP layer for the catalogue.
type Handler struct {
	service *Service
}

// NewHandler constructs a new catalogue [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches catalogue endpoints to the root API router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	// Discovery endpoints
	api.Get("/comics", handler.ListComics)
	api.Get("/comics/{idOrSlug}", handler.GetComic)

	// Admin protected endpoints
	api.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireRole(auth.UserRoleAdmin))
		admin.Post("/comics", handler.CreateComic)
		admin.Delete("/comics/{id}", handler.DeleteComic)
	})
}

// # Discovery

/*
GET /api/v1/comics.

Description: Returns a paginated catalogue listing.

Request:
  - q: string (Title search)
  - status: string (ongoing, completed, hiatus, cancelled)
  - limit: int
  - page: int

Response:
  - 200: []Comic: Paginated list
*/
func (handler *Handler) ListComics(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)

	filter := Filter{
		Search: request.URL.Query().Get("q"),
		Status: request.URL.Query().Get("status"),
	}

	comics, total, err := handler.service.ListComics(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldItems: comics,
		FieldTotal: total,
	})
}

/*
GET /api/v1/comics/{idOrSlug}.

Description: Resolves a single comic by UUID or URL slug and records the
view.

Request:
  - idOrSlug: string

Response:
  - 200: Comic: The catalogue entry
  - 404: 404: ErrNotFound: Comic not found
*/
func (handler *Handler) GetComic(writer http.ResponseWriter, request *http.Request) {
	idOrSlug := requestutil.ID(request, "idOrSlug")

	comic, err := handler.service.GetComic(request.Context(), idOrSlug)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// View counting is fire-and-forget; a miss never fails the read.
	_ = handler.service.RecordView(request.Context(), comic.ID)

	respond.OK(writer, comic)
}

// # Management

/*
POST /api/v1/comics.

Description: Registers a new series in the catalogue.

Request:
  - body: Comic (Title, description, cover URL, optional status)

Response:
  - 201: Comic: Created entry with assigned ID and slug
  - 400: 400: ErrInvalidJSON/Validation: Invalid payload
  - 409: 409: Conflict: Slug already taken
*/
func (handler *Handler) CreateComic(writer http.ResponseWriter, request *http.Request) {
	var input Comic
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.CreateComic(request.Context(), &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, input)
}

/*
DELETE /api/v1/comics/{id}.

Description: Hides a comic from the catalogue.

Request:
  - id: string (UUID)

Response:
  - 204: No Content: Success
  - 404: 404: ErrNotFound: Comic not found
*/
func (handler *Handler) DeleteComic(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.ID(request, "id")

	if err := handler.service.DeleteComic(request.Context(), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
