// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"context"
	"log/slog"

	"github.com/taibuivan/mirava/internal/platform/objstore"
)

// # Staging Cleanup

// PrefixSweep is the outcome of sweeping one prefix.
type PrefixSweep struct {
	Prefix  string `json:"prefix"`
	Deleted int    `json:"deleted"`
	Failed  int    `json:"failed"`
	// Error holds the listing error, if the prefix could not be swept at
	// all. Individual delete failures only increment Failed.
	Error string `json:"error,omitempty"`
}

// CleanupReport collects every sweep outcome for logging. Cleanup failures
// never affect the reported success of an approve or reject.
type CleanupReport struct {
	Sweeps []PrefixSweep `json:"sweeps"`
}

// DeletedTotal sums deletions across all sweeps.
func (report *CleanupReport) DeletedTotal() int {
	total := 0
	for _, sweep := range report.Sweeps {
		total += sweep.Deleted
	}
	return total
}

// Sweeper removes now-orphaned objects after a publish or reject. All of
// its operations are best-effort: outcomes are collected and returned for
// logging, never raised to the caller.
type Sweeper struct {
	logger *slog.Logger
}

// NewSweeper constructs a [Sweeper].
func NewSweeper(logger *slog.Logger) *Sweeper {
	return &Sweeper{logger: logger}
}

/*
SweepPrefixes deletes every object under each prefix, independently: a
failure on one prefix does not prevent attempting the others.

Parameters:
  - context: context.Context
  - store: objstore.Store (The bucket to sweep)
  - prefixes: []string (Prefix conventions to clear, current and legacy)

Returns:
  - []PrefixSweep: One outcome per prefix
*/
func (sweeper *Sweeper) SweepPrefixes(context context.Context, store objstore.Store, prefixes []string) []PrefixSweep {
	sweeps := make([]PrefixSweep, 0, len(prefixes))

	for _, prefix := range prefixes {
		sweeps = append(sweeps, sweeper.sweepPrefix(context, store, prefix))
	}

	return sweeps
}

// SweepKeys deletes an exact set of keys, returning a single sweep outcome.
// Used on rejection to remove the precise permanent keys captured from page
// rows before they were deleted.
func (sweeper *Sweeper) SweepKeys(context context.Context, store objstore.Store, label string, keys []string) PrefixSweep {
	sweep := PrefixSweep{Prefix: label}
	if len(keys) == 0 {
		return sweep
	}

	failures := store.RemoveBatch(context, keys)
	sweep.Failed = len(failures)
	sweep.Deleted = len(keys) - len(failures)

	for _, failure := range failures {
		sweeper.logger.Warn("cleanup_delete_failed",
			slog.String("key", failure.Key),
			slog.Any("error", failure.Err),
		)
	}

	return sweep
}

// sweepPrefix lists and batch-deletes one prefix.
func (sweeper *Sweeper) sweepPrefix(context context.Context, store objstore.Store, prefix string) PrefixSweep {
	sweep := PrefixSweep{Prefix: prefix}

	objects, err := store.ListPrefix(context, prefix)
	if err != nil {
		sweep.Error = err.Error()
		sweeper.logger.Warn("cleanup_list_failed",
			slog.String("prefix", prefix),
			slog.Any("error", err),
		)
		return sweep
	}
	if len(objects) == 0 {
		return sweep
	}

	keys := make([]string, 0, len(objects))
	for _, object := range objects {
		keys = append(keys, object.Key)
	}

	failures := store.RemoveBatch(context, keys)
	sweep.Failed = len(failures)
	sweep.Deleted = len(keys) - len(failures)

	for _, failure := range failures {
		sweeper.logger.Warn("cleanup_delete_failed",
			slog.String("key", failure.Key),
			slog.Any("error", failure.Err),
		)
	}

	return sweep
}
