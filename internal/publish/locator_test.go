// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mirava/internal/platform/objstore"
	"github.com/taibuivan/mirava/internal/publish"
)

const testPrefix = "staging/comic-1/chapter-1/"

func listingOf(keys ...string) []objstore.ObjectInfo {
	listing := make([]objstore.ObjectInfo, 0, len(keys))
	for _, key := range keys {
		listing = append(listing, objstore.ObjectInfo{Key: testPrefix + key, Size: 1})
	}
	return listing
}

/*
TestResolver_StoredReference covers strategy 1: the page row's stored
location reference, in every historical format.
*/
func TestResolver_StoredReference(t *testing.T) {
	listing := listingOf("p001.webp", "p002.webp", "P003.WEBP")
	resolver := publish.NewResolver(testPrefix, listing, 3)

	tests := []struct {
		name     string
		imageKey string
		expected string
	}{
		{"bare_key", testPrefix + "p001.webp", testPrefix + "p001.webp"},
		{"full_url", "https://cdn.mirava.app/" + testPrefix + "p002.webp", testPrefix + "p002.webp"},
		{"case_insensitive", testPrefix + "p003.webp", testPrefix + "P003.WEBP"},
		{"basename_only", "p001.webp", testPrefix + "p001.webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := resolver.Resolve(&publish.Page{Index: 1, ImageKey: tt.imageKey})
			require.True(t, ok)
			assert.Equal(t, tt.expected, key)
		})
	}
}

/*
TestResolver_StoredReferenceReencoded covers the common migration case: the
row references p003.png but the staged object was already converted to
p003.webp. The reference's base name still identifies the object.
*/
func TestResolver_StoredReferenceReencoded(t *testing.T) {
	listing := listingOf("p003.webp")
	resolver := publish.NewResolver(testPrefix, listing, 1)

	key, ok := resolver.Resolve(&publish.Page{Index: 3, ImageKey: testPrefix + "p003.png"})
	require.True(t, ok)
	assert.Equal(t, testPrefix+"p003.webp", key)
}

/*
TestResolver_OriginalFilename covers strategy 2: the uploader's filename
hint with extension guessing and case folding.
*/
func TestResolver_OriginalFilename(t *testing.T) {
	listing := listingOf("scan_01.webp", "scan_02.jpg", "Scan_03.PNG")
	resolver := publish.NewResolver(testPrefix, listing, 3)

	tests := []struct {
		name     string
		filename string
		expected string
	}{
		{"verbatim", "scan_02.jpg", testPrefix + "scan_02.jpg"},
		{"extension_swapped", "scan_01.png", testPrefix + "scan_01.webp"},
		{"no_extension", "scan_01", testPrefix + "scan_01.webp"},
		{"case_folded", "scan_03.png", testPrefix + "Scan_03.PNG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := resolver.Resolve(&publish.Page{Index: 9, OriginalFilename: tt.filename})
			require.True(t, ok)
			assert.Equal(t, tt.expected, key)
		})
	}
}

/*
TestResolver_Positional covers strategy 3: filenames derived from the
ordering index, padded and unpadded, 1-based and 0-based.
*/
func TestResolver_Positional(t *testing.T) {
	tests := []struct {
		name     string
		staged   string
		index    int
		expected string
	}{
		{"unpadded_one_based", "3.jpg", 3, testPrefix + "3.jpg"},
		{"padded_three", "003.webp", 3, testPrefix + "003.webp"},
		{"padded_four", "0012.png", 12, testPrefix + "0012.png"},
		{"zero_based", "0.jpg", 1, testPrefix + "0.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Extra objects keep the count-matched fallback out of play.
			listing := listingOf(tt.staged, "cover.webp", "notes.webp")
			resolver := publish.NewResolver(testPrefix, listing, 1)

			key, ok := resolver.Resolve(&publish.Page{Index: tt.index})
			require.True(t, ok)
			assert.Equal(t, tt.expected, key)
		})
	}
}

/*
TestResolver_CountMatched covers strategy 4: when nothing else matches but
the object count equals the page count, pages pair positionally against the
numeric-aware sorted listing.
*/
func TestResolver_CountMatched(t *testing.T) {
	// Unpadded digits would sort 1, 10, 2 lexicographically.
	listing := listingOf("page 10.webp", "page 2.webp", "page 1.webp")
	resolver := publish.NewResolver(testPrefix, listing, 3)

	expected := []string{
		testPrefix + "page 1.webp",
		testPrefix + "page 2.webp",
		testPrefix + "page 10.webp",
	}

	for index, want := range expected {
		key, ok := resolver.Resolve(&publish.Page{Index: index + 1, OriginalFilename: "missing.tiff"})
		require.True(t, ok, "page %d", index+1)
		assert.Equal(t, want, key)
	}
}

/*
TestResolver_CountMismatchFails ensures the positional pairing never fires
when the counts disagree, so a stray thumbnail cannot shift every page by
one.
*/
func TestResolver_CountMismatchFails(t *testing.T) {
	listing := listingOf("pageA.webp", "pageB.webp", "thumbnail.webp")
	resolver := publish.NewResolver(testPrefix, listing, 2)

	_, ok := resolver.Resolve(&publish.Page{Index: 1})
	assert.False(t, ok)
}

/*
TestResolver_StrategyOrder ensures the stored reference wins over the
filename hint, and the hint over positional matches.
*/
func TestResolver_StrategyOrder(t *testing.T) {
	listing := listingOf("stored.webp", "hint.webp", "1.webp")
	resolver := publish.NewResolver(testPrefix, listing, 1)

	key, ok := resolver.Resolve(&publish.Page{
		Index:            1,
		ImageKey:         testPrefix + "stored.webp",
		OriginalFilename: "hint.webp",
	})
	require.True(t, ok)
	assert.Equal(t, testPrefix+"stored.webp", key)

	key, ok = resolver.Resolve(&publish.Page{Index: 1, OriginalFilename: "hint.webp"})
	require.True(t, ok)
	assert.Equal(t, testPrefix+"hint.webp", key)

	key, ok = resolver.Resolve(&publish.Page{Index: 1})
	require.True(t, ok)
	assert.Equal(t, testPrefix+"1.webp", key)
}

/*
TestResolver_SortedKeys verifies the numeric-aware ordering the degraded
publication mode depends on.
*/
func TestResolver_SortedKeys(t *testing.T) {
	listing := listingOf("10.jpg", "2.jpg", "1.jpg", "03.jpg")
	resolver := publish.NewResolver(testPrefix, listing, 0)

	assert.Equal(t, []string{
		testPrefix + "1.jpg",
		testPrefix + "2.jpg",
		testPrefix + "03.jpg",
		testPrefix + "10.jpg",
	}, resolver.SortedKeys())
	assert.Equal(t, 4, resolver.ObjectCount())
}

/*
TestResolver_EmptyListing ensures resolution against an empty staging area
always misses.
*/
func TestResolver_EmptyListing(t *testing.T) {
	resolver := publish.NewResolver(testPrefix, nil, 3)

	_, ok := resolver.Resolve(&publish.Page{Index: 1, ImageKey: testPrefix + "p001.webp", OriginalFilename: "p001.webp"})
	assert.False(t, ok)
}
