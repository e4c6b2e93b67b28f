// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mirava/internal/publish"
)

/*
TestSweeper_SweepPrefixes deletes everything under each prefix and leaves
unrelated keys alone.
*/
func TestSweeper_SweepPrefixes(t *testing.T) {
	store := newMemStore()
	store.seed("staging/c1/ch1/1.jpg", []byte("a"), nil)
	store.seed("staging/c1/ch1/2.jpg", []byte("b"), nil)
	store.seed("uploads/c1/ch1/old.jpg", []byte("c"), nil)
	store.seed("staging/c1/ch2/other.jpg", []byte("d"), nil)

	sweeper := publish.NewSweeper(discardLogger())
	sweeps := sweeper.SweepPrefixes(context.Background(), store, []string{
		"staging/c1/ch1/",
		"uploads/c1/ch1/",
		"tmp/chapters/ch1/",
	})

	require.Len(t, sweeps, 3)
	assert.Equal(t, 2, sweeps[0].Deleted)
	assert.Equal(t, 1, sweeps[1].Deleted)
	assert.Equal(t, 0, sweeps[2].Deleted)

	// The sibling chapter survives.
	assert.Equal(t, []string{"staging/c1/ch2/other.jpg"}, store.keys())
}

/*
TestSweeper_PartialFailures checks that individual delete failures only
increment the failure count; the rest of the batch still goes through and
no error escapes.
*/
func TestSweeper_PartialFailures(t *testing.T) {
	store := newMemStore()
	store.seed("staging/c1/ch1/1.jpg", []byte("a"), nil)
	store.seed("staging/c1/ch1/2.jpg", []byte("b"), nil)
	store.removeErrs["staging/c1/ch1/2.jpg"] = errors.New("access denied")

	sweeper := publish.NewSweeper(discardLogger())
	sweeps := sweeper.SweepPrefixes(context.Background(), store, []string{"staging/c1/ch1/"})

	require.Len(t, sweeps, 1)
	assert.Equal(t, 1, sweeps[0].Deleted)
	assert.Equal(t, 1, sweeps[0].Failed)
	assert.Empty(t, sweeps[0].Error)
}

/*
TestSweeper_ListingFailure records the listing error on the sweep outcome
instead of raising it; other prefixes are still attempted.
*/
func TestSweeper_ListingFailure(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("bucket unreachable")

	sweeper := publish.NewSweeper(discardLogger())
	sweeps := sweeper.SweepPrefixes(context.Background(), store, []string{"staging/a/", "staging/b/"})

	require.Len(t, sweeps, 2)
	for _, sweep := range sweeps {
		assert.Contains(t, sweep.Error, "bucket unreachable")
		assert.Zero(t, sweep.Deleted)
	}
}

/*
TestSweeper_SweepKeys deletes an exact key set under a single labelled
outcome.
*/
func TestSweeper_SweepKeys(t *testing.T) {
	store := newMemStore()
	store.seed("slug/vol-1/ch-2/p0001.webp", []byte("a"), nil)
	store.seed("slug/vol-1/ch-2/p0002.webp", []byte("b"), nil)

	sweeper := publish.NewSweeper(discardLogger())
	sweep := sweeper.SweepKeys(context.Background(), store, "captured:permanent", []string{
		"slug/vol-1/ch-2/p0001.webp",
		"slug/vol-1/ch-2/p0002.webp",
	})

	assert.Equal(t, "captured:permanent", sweep.Prefix)
	assert.Equal(t, 2, sweep.Deleted)
	assert.Zero(t, sweep.Failed)
	assert.Empty(t, store.keys())

	// An empty set is a no-op, not an error.
	empty := sweeper.SweepKeys(context.Background(), store, "captured:staging", nil)
	assert.Zero(t, empty.Deleted)
}
