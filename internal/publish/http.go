// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taibuivan/mirava/internal/auth"
	"github.com/taibuivan/mirava/internal/platform/middleware"
	requestutil "github.com/taibuivan/mirava/internal/platform/request"
	"github.com/taibuivan/mirava/internal/platform/respond"
	"github.com/taibuivan/mirava/internal/platform/validate"
	"github.com/taibuivan/mirava/pkg/convert"
)

// # Handler Implementation

// Handler implements the moderation HTTP layer for chapter publication.
type Handler struct {
	service *Service
}

// NewHandler constructs a new publication [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches the moderation endpoints to the root API router.
// Both endpoints are restricted to moderators and administrators.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Group(func(moderation chi.Router) {
		moderation.Use(middleware.RequireRole(auth.UserRoleModerator))
		moderation.Post("/chapters/{id}/approve", handler.ApproveChapter)
		moderation.Post("/chapters/{id}/reject", handler.RejectChapter)
	})
}

// # Approval

/*
POST /api/v1/chapters/{id}/approve.

Description: Publishes a chapter. Staged pages are optimized, moved to their
permanent location, and the chapter becomes publicly visible. Safe to retry:
already-relocated pages are skipped unless force is set.

Request:
  - id: string (Chapter UUID)
  - force: bool (Query parameter; reprocess pages that already exist)

Response:
  - 200: Report: Publication outcome with per-page detail
  - 404: 404: ErrNotFound: Chapter not found
  - 409: 409: Conflict: Another publish attempt is in progress
  - 422: 422: Unprocessable: Chapter not ready, rejected, or no resolvable pages
*/
func (handler *Handler) ApproveChapter(writer http.ResponseWriter, request *http.Request) {
	chapterID := requestutil.ID(request, "id")

	force := convert.ToBool(request.URL.Query().Get("force"))

	report, err := handler.service.Approve(request.Context(), chapterID, force)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, report)
}

// # Rejection

// rejectChapterRequest defines the inbound JSON schema for rejections.
type rejectChapterRequest struct {
	Reason  string `json:"reason"`
	Discard bool   `json:"discard"`
}

/*
POST /api/v1/chapters/{id}/reject.

Description: Rejects a chapter, deleting its page records and removing staged
and any partially published objects. With discard the chapter is terminally
rejected; otherwise it returns to draft so the uploader can try again.

Request:
  - id: string (Chapter UUID)
  - body: rejectChapterRequest

Response:
  - 200: RejectReport: Deleted rows and cleanup counts
  - 400: 400: ErrInvalidJSON/Validation: Invalid payload
  - 404: 404: ErrNotFound: Chapter not found
  - 409: 409: Conflict: Another publish attempt is in progress
*/
func (handler *Handler) RejectChapter(writer http.ResponseWriter, request *http.Request) {
	chapterID := requestutil.ID(request, "id")

	// The body is optional; a bare reject resets the chapter to draft.
	var input rejectChapterRequest
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	v := &validate.Validator{}
	v.MaxLen("reason", input.Reason, 500)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	report, err := handler.service.Reject(request.Context(), chapterID, input.Discard, input.Reason)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, report)
}
