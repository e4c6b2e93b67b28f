// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"errors"
	"fmt"
)

// # Error Taxonomy
//
// Each pipeline failure is tagged with the stage that produced it and the
// object key involved, so the moderation caller can retry or diagnose.
// Per-page source resolution failures are recovered locally (skip and
// continue); everything else aborts the publish attempt. Cleanup failures
// are collected in the [CleanupReport] and never surface as errors.

// Stage identifies the pipeline stage an error originated from.
type Stage string

const (
	StageLocate   Stage = "locate"
	StageOptimize Stage = "optimize"
	StageRelocate Stage = "relocate"
	StageCommit   Stage = "commit"
)

// Sentinel conditions surfaced by the orchestrator.
var (
	// ErrSourceNotFound marks a page whose staged object could not be
	// resolved. Recorded per page; fatal only when no page resolves.
	ErrSourceNotFound = errors.New("staged object not found")

	// ErrNoResolvablePages means the chapter resolved to zero publishable
	// pages and no degraded fallback applied.
	ErrNoResolvablePages = errors.New("no staged pages could be resolved")

	// ErrChapterNotReady means the chapter is still in draft.
	ErrChapterNotReady = errors.New("chapter is not ready for publication")

	// ErrChapterRejected means the chapter was terminally discarded.
	ErrChapterRejected = errors.New("chapter has been rejected")

	// ErrPublishInProgress means another moderator holds the chapter's
	// publish lock.
	ErrPublishInProgress = errors.New("a publish attempt is already in progress")
)

// StageError wraps a fatal pipeline failure with its stage and object key.
type StageError struct {
	// Stage is the pipeline stage that failed.
	Stage Stage
	// Key is the object key being processed, if any.
	Key string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("publish: %s stage failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("publish: %s stage failed on %q: %v", e.Stage, e.Key, e.Err)
}

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *StageError) Unwrap() error { return e.Err }

// conversionError tags a decode/resize/encode failure. Fatal to the attempt:
// a partially published chapter is worse than a clean abort.
func conversionError(key string, err error) error {
	return &StageError{Stage: StageOptimize, Key: key, Err: err}
}

// relocationError tags a permanent-store transfer failure.
func relocationError(key string, err error) error {
	return &StageError{Stage: StageRelocate, Key: key, Err: err}
}

// commitError tags a metadata transaction failure. Object-store side effects
// already performed are left in place; a retry skips them via the
// destination existence check.
func commitError(err error) error {
	return &StageError{Stage: StageCommit, Err: err}
}
