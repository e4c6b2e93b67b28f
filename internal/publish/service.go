// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taibuivan/mirava/internal/platform/apperr"
	"github.com/taibuivan/mirava/internal/platform/objstore"
	"github.com/taibuivan/mirava/pkg/slice"
)

// # Moderation Orchestrator

// Service sequences the publication pipeline for the moderation approve and
// reject entry points. It owns no pipeline logic itself: resolution,
// optimization, relocation, and the metadata transaction each live in their
// own stage, and the service decides success or failure for the caller.
type Service struct {
	repo      Repository
	settings  SettingsSource
	staging   objstore.Store
	permanent objstore.Store
	locks     Locker
	sweeper   *Sweeper
	workers   int
	logger    *slog.Logger
}

// NewService constructs the moderation [Service] with its collaborators.
func NewService(repo Repository, settings SettingsSource, staging, permanent objstore.Store, locks Locker, workers int, logger *slog.Logger) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{
		repo:      repo,
		settings:  settings,
		staging:   staging,
		permanent: permanent,
		locks:     locks,
		sweeper:   NewSweeper(logger),
		workers:   workers,
		logger:    logger,
	}
}

// # Approve Path

/*
Approve publishes a chapter: resolve staged pages, optimize and relocate
them with a bounded worker pool, commit the metadata transaction, then
sweep staging best-effort.

The operation is idempotent: re-approving an already-published chapter
performs zero byte transfers because every destination existence check
short-circuits. An aborted attempt is always safely resumable the same way.

Parameters:
  - context: context.Context (Caller timeout aborts scheduling new pages)
  - chapterID: string (UUID)
  - force: bool (Reprocess pages even when destinations already exist)

Returns:
  - *Report: Relocated and skipped pages, compression stats, cleanup counts
  - error: apperr conditions for the caller, or a [StageError] on pipeline
    failure; the chapter keeps its prior status on any failure
*/
func (service *Service) Approve(context context.Context, chapterID string, force bool) (*Report, error) {

	// ── Serialization ────────────────────────────────────────────────────
	acquired, err := service.locks.Acquire(context, chapterID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		conflict := apperr.Conflict("A publish attempt for this chapter is already in progress")
		conflict.Cause = ErrPublishInProgress
		return nil, conflict
	}
	// The lock must be released even when the caller's context has already
	// been cancelled; otherwise it lingers for the full TTL.
	defer service.locks.Release(detach(context), chapterID)

	// ── Inputs ───────────────────────────────────────────────────────────
	settings, err := service.settings.Load(context)
	if err != nil {
		return nil, err
	}

	chapter, err := service.repo.ChapterForPublish(context, chapterID)
	if err != nil {
		return nil, err
	}
	if err := service.checkApprovable(chapter); err != nil {
		return nil, err
	}

	pages, err := service.repo.Pages(context, chapterID)
	if err != nil {
		return nil, err
	}

	// One listing per chapter bounds request volume; every page resolves
	// against the same snapshot.
	prefix, listing, err := service.fetchStagingListing(context, chapter)
	if err != nil {
		return nil, err
	}

	// ── Resolution ───────────────────────────────────────────────────────
	resolver := NewResolver(prefix, listing, len(pages))
	tasks, skipped, degraded := service.buildTasks(chapter, pages, resolver)

	if len(tasks) == 0 {
		unprocessable := apperr.Unprocessable("No staged pages could be resolved for this chapter")
		unprocessable.Cause = ErrNoResolvablePages
		return nil, unprocessable
	}

	// ── Optimize + Relocate ──────────────────────────────────────────────
	relocator := NewRelocator(service.staging, service.permanent, settings, service.workers, service.logger)
	relocated, err := relocator.Relocate(context, tasks, force)
	if err != nil {
		return nil, err
	}

	// ── Metadata Transaction ─────────────────────────────────────────────
	updates, insertLocations := splitLocations(relocated, degraded)
	stats := aggregateStats(relocated)

	if err := service.repo.CommitPublish(context, chapterID, updates, insertLocations, stats.PublishStats); err != nil {
		return nil, commitError(err)
	}

	// ── Staging Cleanup (best effort) ────────────────────────────────────
	report := &Report{
		ChapterID:        chapterID,
		PublishedPrefix:  PermanentPrefix(chapter.ComicSlug, chapter.Volume, chapter.Number),
		Relocated:        relocated,
		Skipped:          skipped,
		SavedBytes:       stats.savedBytes,
		CompressionRatio: stats.CompressionRatio,
	}
	report.Cleanup.Sweeps = service.sweeper.SweepPrefixes(
		context, service.staging, AllStagingPrefixes(chapter.ComicID, chapter.ID))

	service.logger.Info("chapter_published",
		slog.String("chapter_id", chapterID),
		slog.String("prefix", report.PublishedPrefix),
		slog.Int("relocated", len(relocated)),
		slog.Int("skipped", len(skipped)),
		slog.Int64("saved_bytes", report.SavedBytes),
	)

	return report, nil
}

// # Reject Path

/*
Reject discards a chapter's staged (and, if partially published, permanent)
content. The transaction captures exact page locations before deleting the
rows; object cleanup runs outside the transaction and is best-effort.

Parameters:
  - context: context.Context
  - chapterID: string (UUID)
  - discard: bool (True moves the chapter to terminal rejected; false
    resets it to draft for re-upload)
  - reason: string (Moderator note, recorded in the audit log)

Returns:
  - *RejectReport: Deleted row count plus cleanup counts
  - error: apperr conditions or the transaction failure
*/
func (service *Service) Reject(context context.Context, chapterID string, discard bool, reason string) (*RejectReport, error) {

	acquired, err := service.locks.Acquire(context, chapterID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		conflict := apperr.Conflict("A publish attempt for this chapter is already in progress")
		conflict.Cause = ErrPublishInProgress
		return nil, conflict
	}
	defer service.locks.Release(detach(context), chapterID)

	chapter, err := service.repo.ChapterForPublish(context, chapterID)
	if err != nil {
		return nil, err
	}

	status := StatusDraft
	if discard {
		status = StatusRejected
	}

	outcome, err := service.repo.CommitReject(context, chapterID, status)
	if err != nil {
		return nil, err
	}

	report := &RejectReport{
		ChapterID:        chapterID,
		DeletedPageCount: outcome.DeletedPages,
	}

	// Exact captured keys first: split by which bucket currently holds
	// them, since a partially published chapter references both.
	permanentPrefix := PermanentPrefix(chapter.ComicSlug, chapter.Volume, chapter.Number)
	permanentKeys, stagingKeys := splitCapturedKeys(outcome.ImageKeys, permanentPrefix)

	report.Cleanup.Sweeps = append(report.Cleanup.Sweeps,
		service.sweeper.SweepKeys(context, service.permanent, "captured:permanent", permanentKeys),
		service.sweeper.SweepKeys(context, service.staging, "captured:staging", stagingKeys),
	)

	// Then every prefix convention, plus the would-be permanent prefix in
	// case an earlier publish attempt partially succeeded.
	report.Cleanup.Sweeps = append(report.Cleanup.Sweeps,
		service.sweeper.SweepPrefixes(context, service.staging, AllStagingPrefixes(chapter.ComicID, chapter.ID))...)
	report.Cleanup.Sweeps = append(report.Cleanup.Sweeps,
		service.sweeper.SweepPrefixes(context, service.permanent, []string{permanentPrefix})...)

	service.logger.Info("chapter_rejected",
		slog.String("chapter_id", chapterID),
		slog.String("status", string(status)),
		slog.String("reason", reason),
		slog.Int("deleted_pages", outcome.DeletedPages),
		slog.Int("cleanup_deleted", report.Cleanup.DeletedTotal()),
	)

	return report, nil
}

// # Orchestration Helpers

// checkApprovable validates the chapter's lifecycle state. Ready and
// published chapters may be (re-)approved; drafts and rejections may not.
func (service *Service) checkApprovable(chapter *Chapter) error {
	switch chapter.Status {
	case StatusReady, StatusPublished:
		return nil
	case StatusRejected:
		unprocessable := apperr.Unprocessable("Chapter has been rejected")
		unprocessable.Cause = ErrChapterRejected
		return unprocessable
	default:
		unprocessable := apperr.Unprocessable("Chapter is not ready for publication")
		unprocessable.Cause = ErrChapterNotReady
		return unprocessable
	}
}

// fetchStagingListing lists the chapter's staging prefix, falling back to
// legacy prefix conventions when the current one is empty.
func (service *Service) fetchStagingListing(context context.Context, chapter *Chapter) (string, []objstore.ObjectInfo, error) {
	prefixes := AllStagingPrefixes(chapter.ComicID, chapter.ID)

	for _, prefix := range prefixes {
		listing, err := service.staging.ListPrefix(context, prefix)
		if err != nil {
			return "", nil, &StageError{Stage: StageLocate, Key: prefix, Err: err}
		}
		if len(listing) > 0 {
			return prefix, listing, nil
		}
	}

	// Empty everywhere; resolution will fail page by page.
	return prefixes[0], nil, nil
}

// buildTasks resolves every page to a relocation task. Unresolved pages
// are recorded as skipped, not fatal. A chapter with no page rows at all
// falls back to degraded positional relocation: staged objects paired to
// synthesized indices, inserted as fresh rows at commit time.
func (service *Service) buildTasks(chapter *Chapter, pages []*Page, resolver *Resolver) (tasks []RelocateTask, skipped []SkippedPage, degraded bool) {

	if len(pages) == 0 {
		// Degraded mode: no page-level attribution exists, so order is
		// taken from the numeric-aware sort of the listing.
		for position, key := range resolver.SortedKeys() {
			page := &Page{Index: position + 1}
			tasks = append(tasks, RelocateTask{
				Page:      page,
				SourceKey: key,
				DestKey:   DestinationKey(chapter.ComicSlug, chapter.Volume, chapter.Number, page.Index),
			})
		}
		return tasks, nil, true
	}

	permanentPrefix := PermanentPrefix(chapter.ComicSlug, chapter.Volume, chapter.Number)

	for _, page := range pages {
		sourceKey, ok := resolver.Resolve(page)
		if !ok {
			// A page already pointing at the permanent prefix has had its
			// staging source swept by a prior publish. Keep it as a task;
			// the destination existence check makes it a no-op.
			if key := NormalizeKey(page.ImageKey); strings.HasPrefix(key, permanentPrefix) {
				tasks = append(tasks, RelocateTask{
					Page:              page,
					SourceKey:         key,
					DestKey:           DestinationKey(chapter.ComicSlug, chapter.Volume, chapter.Number, page.Index),
					SourceInPermanent: true,
				})
				continue
			}
			service.logger.Warn("staged_page_unresolved",
				slog.String("chapter_id", chapter.ID),
				slog.String("page_id", page.ID),
				slog.Int("index", page.Index),
			)
			skipped = append(skipped, SkippedPage{
				PageID: page.ID,
				Index:  page.Index,
				Reason: ErrSourceNotFound.Error(),
			})
			continue
		}
		tasks = append(tasks, RelocateTask{
			Page:      page,
			SourceKey: sourceKey,
			DestKey:   DestinationKey(chapter.ComicSlug, chapter.Volume, chapter.Number, page.Index),
		})
	}

	return tasks, skipped, false
}

// splitLocations converts relocation results into row updates (pages with
// an existing row) and inserts (degraded-mode pages without one).
func splitLocations(relocated []RelocatedPage, degraded bool) (updates, inserts []PageLocation) {
	for _, page := range relocated {
		location := PageLocation{
			PageID:   page.PageID,
			Index:    page.Index,
			ImageKey: page.DestKey,
			Width:    page.Width,
			Height:   page.Height,
		}
		if degraded || page.PageID == "" {
			inserts = append(inserts, location)
		} else {
			updates = append(updates, location)
		}
	}
	return updates, inserts
}

// publishTotals carries the aggregate stats for the commit and the report.
type publishTotals struct {
	PublishStats
	savedBytes int64
}

// aggregateStats computes the chapter-level compression statistic over the
// pages that actually transferred bytes this attempt.
func aggregateStats(relocated []RelocatedPage) publishTotals {
	totals := publishTotals{}
	totals.PagesCount = len(relocated)

	var originalBytes int64
	for _, page := range relocated {
		if !page.Transferred || page.OriginalBytes == 0 {
			continue
		}
		originalBytes += page.OriginalBytes
		if saved := page.OriginalBytes - page.OptimizedBytes; saved > 0 {
			totals.savedBytes += saved
		}
	}
	if originalBytes > 0 {
		totals.CompressionRatio = clampRatio(float64(totals.savedBytes) / float64(originalBytes) * 100)
	}

	return totals
}

// splitCapturedKeys partitions normalized location references by the bucket
// that holds them.
func splitCapturedKeys(references []string, permanentPrefix string) (permanentKeys, stagingKeys []string) {
	normalized := slice.Filter(
		slice.Map(references, NormalizeKey),
		func(key string) bool { return key != "" },
	)

	isPermanent := func(key string) bool { return strings.HasPrefix(key, permanentPrefix) }
	permanentKeys = slice.Filter(normalized, isPermanent)
	stagingKeys = slice.Filter(normalized, func(key string) bool { return !isPermanent(key) })
	return permanentKeys, stagingKeys
}
