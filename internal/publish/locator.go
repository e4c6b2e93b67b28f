// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/taibuivan/mirava/internal/platform/objstore"
)

// # Staged Object Resolution
//
// Page rows accumulated over years of uploader revisions reference their
// staged objects inconsistently: bare keys, full CDN URLs, original
// filenames, or nothing at all. The resolver runs an ordered list of
// matching strategies against a prefix listing fetched once per chapter.
// It is a pure function of its inputs — no mutation, no I/O — so each
// strategy is independently testable.

// imageExtensions is the fixed extension set tried when matching filename
// and positional guesses. Ordered by how often each occurs in staging.
var imageExtensions = []string{".webp", ".jpg", ".jpeg", ".png", ".gif"}

// Resolver resolves page records to staged object keys.
type Resolver struct {
	prefix    string
	pageCount int

	// exact maps each listed key to itself; lower maps the lowercased key
	// to the original for case-insensitive fallbacks.
	exact map[string]string
	lower map[string]string

	// sorted holds the listing keys in numeric-aware lexicographic order,
	// used by the count-matched positional fallback.
	sorted []string
}

// NewResolver indexes a staging listing for repeated per-page resolution.
//
// # Parameters
//   - prefix: The chapter's staging prefix the listing was fetched under.
//   - listing: All objects under that prefix (fetched once per chapter).
//   - pageCount: Number of page rows; enables the positional fallback when
//     it equals the listing size.
func NewResolver(prefix string, listing []objstore.ObjectInfo, pageCount int) *Resolver {
	resolver := &Resolver{
		prefix:    prefix,
		pageCount: pageCount,
		exact:     make(map[string]string, len(listing)),
		lower:     make(map[string]string, len(listing)),
		sorted:    make([]string, 0, len(listing)),
	}

	for _, object := range listing {
		resolver.exact[object.Key] = object.Key
		resolver.lower[strings.ToLower(object.Key)] = object.Key
		resolver.sorted = append(resolver.sorted, object.Key)
	}

	sort.Slice(resolver.sorted, func(i, j int) bool {
		return naturalLess(resolver.sorted[i], resolver.sorted[j])
	})

	return resolver
}

// ObjectCount returns the number of staged objects in the indexed listing.
func (resolver *Resolver) ObjectCount() int { return len(resolver.sorted) }

// SortedKeys returns the listing keys in numeric-aware order. Used by the
// degraded positional relocation mode for chapters without page rows.
func (resolver *Resolver) SortedKeys() []string { return resolver.sorted }

/*
Resolve returns the staged object key for a page, trying each strategy in
order until one matches:

 1. The stored location reference, normalized to a bare key, by exact then
    case-insensitive membership.
 2. The original filename hint: verbatim, with each known image extension
    appended, case-insensitively, then by base name without extension.
 3. Positional filenames derived from the 1-based ordering index, padded
    and unpadded, across the same extension set.
 4. If the staged object count equals the page count, the Nth object of the
    numeric-aware sorted listing.

Returns:
  - string: The resolved object key
  - bool: False when every strategy missed
*/
func (resolver *Resolver) Resolve(page *Page) (string, bool) {

	// ── 1. Stored location reference ─────────────────────────────────────
	if page.ImageKey != "" {
		normalized := NormalizeKey(page.ImageKey)
		if key, ok := resolver.matchKey(normalized); ok {
			return key, true
		}
		// The referenced key is gone; its basename may still identify the
		// object under a different extension (e.g. p003.png → p003.webp).
		if key, ok := resolver.matchFilename(path.Base(normalized)); ok {
			return key, true
		}
	}

	// ── 2. Original filename hint ────────────────────────────────────────
	if page.OriginalFilename != "" {
		if key, ok := resolver.matchFilename(page.OriginalFilename); ok {
			return key, true
		}
	}

	// ── 3. Positional filenames ──────────────────────────────────────────
	if key, ok := resolver.matchPositional(page.Index); ok {
		return key, true
	}

	// ── 4. Count-matched positional pairing ──────────────────────────────
	if resolver.pageCount == len(resolver.sorted) && page.Index >= 1 && page.Index <= len(resolver.sorted) {
		return resolver.sorted[page.Index-1], true
	}

	return "", false
}

// # Matching Strategies

// matchKey checks a candidate bare key against the listing, exact first,
// then case-insensitive. Keys without the staging prefix are also tried
// re-anchored under it, covering rows that stored only the object basename.
func (resolver *Resolver) matchKey(key string) (string, bool) {
	candidates := []string{key}
	if !strings.HasPrefix(key, resolver.prefix) {
		candidates = append(candidates, resolver.prefix+path.Base(key))
	}

	for _, candidate := range candidates {
		if match, ok := resolver.exact[candidate]; ok {
			return match, true
		}
	}
	for _, candidate := range candidates {
		if match, ok := resolver.lower[strings.ToLower(candidate)]; ok {
			return match, true
		}
	}

	return "", false
}

// matchFilename tries the uploader's filename hint under the staging
// prefix: verbatim, with each known extension appended, case-insensitively,
// and finally by comparing base names without extensions.
func (resolver *Resolver) matchFilename(filename string) (string, bool) {
	name := path.Base(filename)

	// Verbatim, then with each extension appended.
	if match, ok := resolver.exact[resolver.prefix+name]; ok {
		return match, true
	}
	for _, extension := range imageExtensions {
		if match, ok := resolver.exact[resolver.prefix+name+extension]; ok {
			return match, true
		}
	}

	// Case-insensitive pass over the same candidates.
	lowerName := strings.ToLower(name)
	if match, ok := resolver.lower[strings.ToLower(resolver.prefix)+lowerName]; ok {
		return match, true
	}
	for _, extension := range imageExtensions {
		if match, ok := resolver.lower[strings.ToLower(resolver.prefix)+lowerName+extension]; ok {
			return match, true
		}
	}

	// Base name without extension against each listed key's base name.
	stem := strings.ToLower(strings.TrimSuffix(name, path.Ext(name)))
	for _, key := range resolver.sorted {
		base := path.Base(key)
		if strings.ToLower(strings.TrimSuffix(base, path.Ext(base))) == stem {
			return key, true
		}
	}

	return "", false
}

// matchPositional tries filenames derived from the ordering index: the
// 1-based and 0-based values, unpadded and zero-padded to 2-4 digits,
// across the extension set.
func (resolver *Resolver) matchPositional(index int) (string, bool) {
	stems := positionalStems(index)

	for _, stem := range stems {
		for _, extension := range imageExtensions {
			if match, ok := resolver.exact[resolver.prefix+stem+extension]; ok {
				return match, true
			}
		}
	}

	return "", false
}

// positionalStems returns the filename stems derived from a 1-based page
// index, deduplicated and ordered from most to least specific.
func positionalStems(index int) []string {
	var stems []string
	seen := make(map[string]bool)

	for _, value := range []int{index, index - 1} {
		if value < 0 {
			continue
		}
		for _, format := range []string{"%d", "%02d", "%03d", "%04d"} {
			stem := fmt.Sprintf(format, value)
			if !seen[stem] {
				seen[stem] = true
				stems = append(stems, stem)
			}
		}
	}

	return stems
}

// # Numeric-Aware Ordering

// naturalLess compares two keys treating embedded digit runs as numbers,
// so "2.jpg" sorts before "10.jpg". Plain lexicographic order would
// shuffle unpadded positional filenames.
func naturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		if isDigit(a[0]) && isDigit(b[0]) {
			numA, restA := leadingNumber(a)
			numB, restB := leadingNumber(b)
			if numA != numB {
				return numA < numB
			}
			a, b = restA, restB
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

// leadingNumber parses the digit run at the head of s.
func leadingNumber(s string) (uint64, string) {
	i := 0
	var n uint64
	for i < len(s) && isDigit(s[i]) {
		n = n*10 + uint64(s[i]-'0')
		i++
	}
	return n, s[i:]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
