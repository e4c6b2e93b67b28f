// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package chapter manages chapter records and the page upload flow.

Chapters move through a moderated lifecycle: an uploader creates a draft,
stages page images one by one, and marks the chapter ready. Moderation
(the publish package) then either publishes it — relocating the staged
images to their permanent location — or rejects it back to draft.

Uploaded images are converted to WebP immediately so the staging area
holds a single format, with the codec and quality recorded as object
metadata for the publication pipeline's recompression decision.
*/
package chapter

import (
	"time"

	"github.com/taibuivan/mirava/internal/publish"
)

// # Domain Entities

// Chapter represents one release of a comic.
type Chapter struct {
	ID         string  `json:"id"`
	ComicID    string  `json:"comic_id"`
	UploaderID string  `json:"uploader_id,omitempty"`
	Volume     int     `json:"volume"`
	Number     float64 `json:"number"`
	Title      string  `json:"title,omitempty"`
	// Status is the moderation lifecycle state (draft, ready, published,
	// rejected).
	Status publish.Status `json:"status"`
	// PagesCount is authoritative only once published.
	PagesCount int `json:"pages_count"`
	// CompressionRatio is the publication pipeline's recorded savings, as
	// a percentage of the staged input size.
	CompressionRatio float64    `json:"compression_ratio"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"-"`
}

// Page is one uploaded image of a chapter.
type Page struct {
	ID        string `json:"id"`
	ChapterID string `json:"chapter_id"`
	// PageNumber is the 1-based display order.
	PageNumber int `json:"page_number"`
	// ImageKey is the object key: under the staging prefix until
	// publication, under the permanent prefix after.
	ImageKey         string `json:"image_key"`
	OriginalFilename string `json:"original_filename,omitempty"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
}

// Filter narrows chapter listings.
type Filter struct {
	// Status restricts to one lifecycle state when set.
	Status string
	// SortDir orders by chapter number: "asc" or "desc" (default).
	SortDir string
}
