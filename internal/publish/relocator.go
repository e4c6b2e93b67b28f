// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/mirava/internal/platform/objstore"
)

// # Relocation

// DefaultWorkers is the relocation pool size when none is configured.
const DefaultWorkers = 3

// publishedCacheControl marks published pages immutable: the key scheme is
// deterministic and a key's bytes never change once written, so CDNs and
// readers may cache them indefinitely.
const publishedCacheControl = "public, max-age=31536000, immutable"

// metadata keys recorded on published objects.
const (
	metaCodec   = "codec"
	metaQuality = "quality"
	metaPageID  = "page-id"
)

// RelocateTask pairs a resolved source key with its deterministic
// destination. Tasks are independent; workers share no mutable state beyond
// their own result slot.
type RelocateTask struct {
	Page      *Page
	SourceKey string
	DestKey   string
	// SourceInPermanent marks a source that already lives in the permanent
	// bucket (its staging copy was swept by a prior publish).
	SourceInPermanent bool
}

// Relocator copies optimized page bytes from the staging bucket to the
// permanent bucket with a bounded worker pool. It never deletes sources —
// staging cleanup is deferred to the [Sweeper] so a crash mid-publish can
// never lose data before the copy is confirmed.
type Relocator struct {
	staging   objstore.Store
	permanent objstore.Store
	settings  Settings
	workers   int
	logger    *slog.Logger
}

// NewRelocator constructs a [Relocator]. A non-positive workers value falls
// back to [DefaultWorkers].
func NewRelocator(staging, permanent objstore.Store, settings Settings, workers int, logger *slog.Logger) *Relocator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Relocator{
		staging:   staging,
		permanent: permanent,
		settings:  settings,
		workers:   workers,
		logger:    logger,
	}
}

/*
Relocate optimizes and copies every task's page to the permanent bucket.

Unless force is set, each worker first checks whether the destination
already exists and skips the transfer — re-running a publish that partially
succeeded is a sequence of no-ops. Any task failure cancels the remaining
tasks; destinations already written stay in place (they are idempotent
no-ops on retry, not corruption).

Parameters:
  - context: context.Context (Cancellation stops scheduling new tasks)
  - tasks: []RelocateTask (Resolved source/destination pairs)
  - force: bool (Reprocess and overwrite existing destinations)

Returns:
  - []RelocatedPage: One entry per task, in task order
  - error: The first [StageError] encountered, if any
*/
func (relocator *Relocator) Relocate(context context.Context, tasks []RelocateTask, force bool) ([]RelocatedPage, error) {

	// Each worker writes only to its own slot; no locking required.
	results := make([]RelocatedPage, len(tasks))

	group, groupCtx := errgroup.WithContext(context)
	group.SetLimit(relocator.workers)

	for index, task := range tasks {
		group.Go(func() error {
			result, err := relocator.relocateOne(groupCtx, task, force)
			if err != nil {
				return err
			}
			results[index] = *result
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// relocateOne processes a single page: existence check, fetch, optimize,
// put. The staging original is left untouched.
func (relocator *Relocator) relocateOne(context context.Context, task RelocateTask, force bool) (*RelocatedPage, error) {

	// ── Idempotence check ────────────────────────────────────────────────
	if !force {
		existing, err := relocator.permanent.Stat(context, task.DestKey)
		if err == nil {
			relocator.logger.Debug("relocation_skipped_existing",
				slog.String("dest_key", task.DestKey),
			)
			return &RelocatedPage{
				PageID:         task.Page.ID,
				Index:          task.Page.Index,
				SourceKey:      task.SourceKey,
				DestKey:        task.DestKey,
				Width:          task.Page.Width,
				Height:         task.Page.Height,
				OptimizedBytes: existing.Size,
				Transferred:    false,
			}, nil
		}
		if !errors.Is(err, objstore.ErrNotFound) {
			return nil, relocationError(task.DestKey, err)
		}
	}

	// ── Fetch staged bytes ───────────────────────────────────────────────
	source := relocator.staging
	if task.SourceInPermanent {
		source = relocator.permanent
	}
	data, info, err := source.Get(context, task.SourceKey)
	if err != nil {
		return nil, relocationError(task.SourceKey, err)
	}

	// ── Optimize ─────────────────────────────────────────────────────────
	prior := priorFromMetadata(info)
	optimized, err := Optimize(data, prior, relocator.settings, force)
	if err != nil {
		return nil, conversionError(task.SourceKey, err)
	}

	// ── Write destination ────────────────────────────────────────────────
	// A pass-through keeps the source bytes, so the recorded quality is
	// whatever the source was encoded at, not this run's target.
	quality := relocator.settings.PublishQuality
	if optimized.PassedThrough {
		quality = relocator.settings.UploadQuality
		if prior.Quality > 0 {
			quality = prior.Quality
		}
	}
	err = relocator.permanent.Put(context, task.DestKey, optimized.Data, objstore.PutOptions{
		ContentType:  "image/webp",
		CacheControl: publishedCacheControl,
		Metadata: map[string]string{
			metaCodec:   CodecWebP,
			metaQuality: strconv.Itoa(quality),
			metaPageID:  task.Page.ID,
		},
	})
	if err != nil {
		return nil, relocationError(task.DestKey, err)
	}

	relocator.logger.Debug("page_relocated",
		slog.String("source_key", task.SourceKey),
		slog.String("dest_key", task.DestKey),
		slog.Int64("saved_bytes", optimized.SavedBytes),
		slog.Bool("passed_through", optimized.PassedThrough),
	)

	return &RelocatedPage{
		PageID:         task.Page.ID,
		Index:          task.Page.Index,
		SourceKey:      task.SourceKey,
		DestKey:        task.DestKey,
		Width:          optimized.Width,
		Height:         optimized.Height,
		OriginalBytes:  int64(len(data)),
		OptimizedBytes: int64(len(optimized.Data)),
		Transferred:    true,
	}, nil
}

// priorFromMetadata reads the codec/quality the uploader recorded on the
// staged object, if present.
func priorFromMetadata(info objstore.ObjectInfo) PriorEncoding {
	prior := PriorEncoding{Codec: info.Metadata[metaCodec]}
	if raw, ok := info.Metadata[metaQuality]; ok {
		if quality, err := strconv.Atoi(raw); err == nil {
			prior.Quality = quality
		}
	}
	return prior
}
