// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package comic provides the catalogue of series that chapters publish into.

The catalogue is intentionally small: a comic carries the URL slug that
anchors the permanent object key scheme for all of its published chapters,
plus the display metadata the reader frontend lists. Chapter lifecycle and
page management live in the chapter and publish packages.
*/
package comic

import "time"

// # Domain Entities

// ComicStatus describes the serialisation state of a comic.
type ComicStatus string

const (
	StatusOngoing   ComicStatus = "ongoing"
	StatusCompleted ComicStatus = "completed"
	StatusHiatus    ComicStatus = "hiatus"
	StatusCancelled ComicStatus = "cancelled"
)

// Comic represents a series in the catalogue.
type Comic struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// Slug is the URL identifier. It also prefixes every published page
	// object key, so it is immutable once the first chapter publishes.
	Slug        string      `json:"slug"`
	Status      ComicStatus `json:"status"`
	Description string      `json:"description,omitempty"`
	CoverURL    string      `json:"cover_url,omitempty"`
	ViewCount   int64       `json:"view_count"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	DeletedAt   *time.Time  `json:"-"`
}

// Filter narrows catalogue listings.
type Filter struct {
	// Search matches against the title, case-insensitively.
	Search string
	// Status restricts to one serialisation state when set.
	Status string
}
