// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"fmt"
	"strconv"
	"strings"
)

// # Object Key Scheme
//
// Staging keys are namespaced by comic and chapter identifiers and exist
// only between upload and publish/reject. Permanent keys are namespaced by
// the comic's URL slug plus volume and chapter number, and are referenced
// externally once published — readers link straight into them, so the
// scheme must stay deterministic and re-derivable.

// TargetExtension is the file extension of published page images.
const TargetExtension = ".webp"

// StagingPrefix returns the current staging prefix convention for a chapter.
func StagingPrefix(comicID, chapterID string) string {
	return fmt.Sprintf("staging/%s/%s/", comicID, chapterID)
}

// LegacyStagingPrefixes returns the staging prefix conventions used by
// earlier versions of the uploader. Swept alongside the current prefix so
// historical chapters leave no orphans behind.
func LegacyStagingPrefixes(comicID, chapterID string) []string {
	return []string{
		fmt.Sprintf("uploads/%s/%s/", comicID, chapterID),
		fmt.Sprintf("tmp/chapters/%s/", chapterID),
	}
}

// AllStagingPrefixes returns the current prefix followed by every legacy
// convention, in sweep order.
func AllStagingPrefixes(comicID, chapterID string) []string {
	return append([]string{StagingPrefix(comicID, chapterID)}, LegacyStagingPrefixes(comicID, chapterID)...)
}

// PermanentPrefix returns the public prefix a chapter occupies once
// published: {slug}/vol-{volume}/ch-{number}/.
func PermanentPrefix(slug string, volume int, number float64) string {
	return fmt.Sprintf("%s/vol-%d/ch-%s/", slug, volume, formatChapterNumber(number))
}

// DestinationKey returns the deterministic permanent key for one page:
// {slug}/vol-{volume}/ch-{number}/p{NNNN}.webp with a 4-digit 1-based index.
func DestinationKey(slug string, volume int, number float64, index int) string {
	return fmt.Sprintf("%sp%04d%s", PermanentPrefix(slug, volume, number), index, TargetExtension)
}

// formatChapterNumber renders a chapter number without trailing zeros, so
// chapter 5 yields "5" and a half-chapter 12.5 yields "12.5".
func formatChapterNumber(number float64) string {
	return strconv.FormatFloat(number, 'f', -1, 64)
}

// # Location Reference Normalization

// NormalizeKey reduces a stored location reference to a bare object key.
// Historical page rows carry full CDN URLs, host-relative paths, or bare
// keys interchangeably.
func NormalizeKey(reference string) string {
	key := reference

	// Strip scheme and host from absolute URLs.
	if idx := strings.Index(key, "://"); idx >= 0 {
		key = key[idx+len("://"):]
		if slash := strings.IndexByte(key, '/'); slash >= 0 {
			key = key[slash+1:]
		} else {
			key = ""
		}
	}

	return strings.TrimPrefix(key, "/")
}
