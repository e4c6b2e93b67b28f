// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package publish implements the chapter publication pipeline.

A chapter is uploaded as loose page images into a staging bucket. Publication
is the moderated process that turns that staging area into a publicly
readable chapter: each page record is resolved to its actual staged object,
re-encoded into WebP with content-aware quality decisions, relocated to the
permanent bucket under a deterministic key scheme, and committed to the
relational store in a single transaction. Orphaned staging artifacts are
swept afterwards on a best-effort basis.

# Pipeline Stages

  - Locator: resolves page records to staged object keys (pure, no I/O).
  - Optimizer: decides pass-through vs. re-encode and produces WebP bytes.
  - Relocator: bounded worker pool copying optimized bytes to the permanent
    bucket, idempotent via destination existence checks.
  - Synchronizer: one transaction flipping page locations and chapter state.
  - Sweeper: best-effort staging cleanup, never fatal.

The [Service] sequences these stages for the moderation approve/reject
endpoints. Every stage failure is tagged with its stage and the object key
involved (see errors.go) so a moderator can retry or diagnose.
*/
package publish

import "time"

// # Chapter Lifecycle

// Status is the publication lifecycle state of a chapter.
type Status string

const (
	// StatusDraft is a chapter being assembled by an uploader.
	StatusDraft Status = "draft"
	// StatusReady is a chapter with all pages staged, awaiting moderation.
	StatusReady Status = "ready"
	// StatusPublished is a chapter whose pages live in the permanent bucket.
	StatusPublished Status = "published"
	// StatusRejected is a terminally discarded chapter.
	StatusRejected Status = "rejected"
)

// Chapter is the publication pipeline's view of a chapter row, joined with
// the parent comic for the slug that anchors the permanent key scheme.
type Chapter struct {
	ID        string
	ComicID   string
	ComicSlug string
	Volume    int
	Number    float64
	Status    Status
	// PagesCount mirrors the number of page rows once published.
	PagesCount  int
	PublishedAt *time.Time
}

// Page is one staged image of a chapter, in display order.
type Page struct {
	ID string
	// Index is the 1-based ordering index, dense after publication.
	Index int
	// ImageKey is the current location reference: a staging key, a legacy
	// URL, or (after publication) the permanent key.
	ImageKey string
	// OriginalFilename is the uploader's filename hint, if recorded.
	OriginalFilename string
	// Width and Height are the stored pixel dimensions, zero when the
	// page has never been measured.
	Width  int
	Height int
}

// # Publication Reports

// RelocatedPage records one successfully relocated page.
type RelocatedPage struct {
	PageID         string `json:"page_id"`
	Index          int    `json:"index"`
	SourceKey      string `json:"source_key"`
	DestKey        string `json:"dest_key"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	OriginalBytes  int64  `json:"original_bytes"`
	OptimizedBytes int64  `json:"optimized_bytes"`
	// Transferred is false when the destination already existed and the
	// copy was skipped (idempotent re-approve).
	Transferred bool `json:"transferred"`
}

// SkippedPage records a page whose staged object could not be resolved.
// Skips are non-fatal unless every page is skipped.
type SkippedPage struct {
	PageID string `json:"page_id"`
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Report is the outcome of one approve invocation.
type Report struct {
	ChapterID        string          `json:"chapter_id"`
	PublishedPrefix  string          `json:"published_prefix"`
	Relocated        []RelocatedPage `json:"relocated"`
	Skipped          []SkippedPage   `json:"skipped"`
	SavedBytes       int64           `json:"saved_bytes"`
	CompressionRatio float64         `json:"compression_ratio"`
	Cleanup          CleanupReport   `json:"cleanup"`
}

// RelocatedCount returns the number of pages relocated (or confirmed
// already in place).
func (r *Report) RelocatedCount() int { return len(r.Relocated) }

// RejectReport is the outcome of one reject invocation.
type RejectReport struct {
	ChapterID        string        `json:"chapter_id"`
	DeletedPageCount int           `json:"deleted_page_count"`
	Cleanup          CleanupReport `json:"cleanup"`
}
