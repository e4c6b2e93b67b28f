// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mirava/internal/publish"
)

/*
TestDestinationKey verifies the permanent key scheme is deterministic and
renders chapter numbers without trailing zeros.
*/
func TestDestinationKey(t *testing.T) {
	tests := []struct {
		name     string
		slug     string
		volume   int
		number   float64
		index    int
		expected string
	}{
		{"whole_number", "one-piece", 1, 5, 1, "one-piece/vol-1/ch-5/p0001.webp"},
		{"half_chapter", "one-piece", 2, 12.5, 3, "one-piece/vol-2/ch-12.5/p0003.webp"},
		{"high_index", "berserk", 41, 364, 221, "berserk/vol-41/ch-364/p0221.webp"},
		{"index_over_padding", "berserk", 1, 1, 12345, "berserk/vol-1/ch-1/p12345.webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := publish.DestinationKey(tt.slug, tt.volume, tt.number, tt.index)
			assert.Equal(t, tt.expected, got)

			// Re-deriving must yield the same key.
			assert.Equal(t, got, publish.DestinationKey(tt.slug, tt.volume, tt.number, tt.index))
		})
	}
}

/*
TestPermanentPrefix ensures every destination key lives under its chapter
prefix, so rejection cleanup can sweep by prefix alone.
*/
func TestPermanentPrefix(t *testing.T) {
	prefix := publish.PermanentPrefix("solo-leveling", 3, 67)
	assert.Equal(t, "solo-leveling/vol-3/ch-67/", prefix)

	key := publish.DestinationKey("solo-leveling", 3, 67, 14)
	assert.True(t, len(key) > len(prefix) && key[:len(prefix)] == prefix)
}

/*
TestStagingPrefixes checks the current and legacy staging conventions.
*/
func TestStagingPrefixes(t *testing.T) {
	assert.Equal(t, "staging/comic-1/chapter-9/", publish.StagingPrefix("comic-1", "chapter-9"))

	all := publish.AllStagingPrefixes("comic-1", "chapter-9")
	assert.Equal(t, []string{
		"staging/comic-1/chapter-9/",
		"uploads/comic-1/chapter-9/",
		"tmp/chapters/chapter-9/",
	}, all)
}

/*
TestNormalizeKey covers the historical location reference formats stored in
page rows: full URLs, host-relative paths, and bare keys.
*/
func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		expected  string
	}{
		{"bare_key", "staging/c1/ch1/p001.webp", "staging/c1/ch1/p001.webp"},
		{"absolute_url", "https://cdn.mirava.app/staging/c1/ch1/p001.webp", "staging/c1/ch1/p001.webp"},
		{"host_relative", "/staging/c1/ch1/p001.webp", "staging/c1/ch1/p001.webp"},
		{"url_no_path", "https://cdn.mirava.app", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, publish.NormalizeKey(tt.reference))
		})
	}
}
