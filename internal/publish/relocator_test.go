// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mirava/internal/publish"
)

func relocateTask(index int, source, dest string) publish.RelocateTask {
	return publish.RelocateTask{
		Page:      &publish.Page{ID: "page-" + dest, Index: index},
		SourceKey: source,
		DestKey:   dest,
	}
}

/*
TestRelocator_TransfersAndTags moves a staged JPEG to the permanent bucket
and checks the published object's content type, cache directive, and
metadata.
*/
func TestRelocator_TransfersAndTags(t *testing.T) {
	staging := newMemStore()
	permanent := newMemStore()
	staging.seed(testPrefix+"1.jpg", encodeJPEG(t, 400, 600), map[string]string{"codec": "jpeg"})

	relocator := publish.NewRelocator(staging, permanent, testSettings(), 1, discardLogger())
	task := relocateTask(1, testPrefix+"1.jpg", "slug/vol-1/ch-1/p0001.webp")

	results, err := relocator.Relocate(context.Background(), []publish.RelocateTask{task}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, results[0].Transferred)
	assert.Equal(t, 400, results[0].Width)
	assert.Equal(t, 600, results[0].Height)
	assert.Positive(t, results[0].OptimizedBytes)

	published, err := permanent.Stat(context.Background(), task.DestKey)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", published.ContentType)
	assert.Equal(t, "webp", published.Metadata["codec"])
	assert.Equal(t, "80", published.Metadata["quality"])
	assert.Equal(t, task.Page.ID, published.Metadata["page-id"])

	// The staged source is never deleted by the relocator.
	_, err = staging.Stat(context.Background(), task.SourceKey)
	assert.NoError(t, err)
}

/*
TestRelocator_SkipsExistingDestination checks the idempotence contract:
re-running a publish performs zero byte transfers for pages whose
destinations already exist.
*/
func TestRelocator_SkipsExistingDestination(t *testing.T) {
	staging := newMemStore()
	permanent := newMemStore()
	permanent.seed("slug/vol-1/ch-1/p0001.webp", []byte("published bytes"), nil)

	relocator := publish.NewRelocator(staging, permanent, testSettings(), 1, discardLogger())
	task := relocateTask(1, testPrefix+"1.jpg", "slug/vol-1/ch-1/p0001.webp")
	task.Page.Width, task.Page.Height = 400, 600

	results, err := relocator.Relocate(context.Background(), []publish.RelocateTask{task}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.False(t, results[0].Transferred)
	assert.Equal(t, int64(len("published bytes")), results[0].OptimizedBytes)
	assert.Zero(t, permanent.puts)
	assert.Zero(t, staging.maxInFlight, "source must not be fetched")

	// The skipped page keeps its stored dimensions; the commit must not
	// see zeros for a page that was never re-measured.
	assert.Equal(t, 400, results[0].Width)
	assert.Equal(t, 600, results[0].Height)
}

/*
TestRelocator_ForceOverwrites checks that force bypasses the existence
check and reprocesses from the staged source.
*/
func TestRelocator_ForceOverwrites(t *testing.T) {
	staging := newMemStore()
	permanent := newMemStore()
	staging.seed(testPrefix+"1.jpg", encodeJPEG(t, 400, 600), nil)
	permanent.seed("slug/vol-1/ch-1/p0001.webp", []byte("stale bytes"), nil)

	relocator := publish.NewRelocator(staging, permanent, testSettings(), 1, discardLogger())
	task := relocateTask(1, testPrefix+"1.jpg", "slug/vol-1/ch-1/p0001.webp")

	results, err := relocator.Relocate(context.Background(), []publish.RelocateTask{task}, true)
	require.NoError(t, err)

	assert.True(t, results[0].Transferred)
	assert.Equal(t, 1, permanent.puts)

	data, _, err := permanent.Get(context.Background(), task.DestKey)
	require.NoError(t, err)
	assert.NotEqual(t, []byte("stale bytes"), data)
}

/*
TestRelocator_ForceRefetchesPermanentSource covers the force re-approve of
a chapter whose staging copies were already swept: the page row points at
the permanent bucket, so the source bytes must be fetched from there.
*/
func TestRelocator_ForceRefetchesPermanentSource(t *testing.T) {
	staging := newMemStore()
	permanent := newMemStore()
	permanent.seed("slug/vol-1/ch-1/p0001.webp", encodeJPEG(t, 400, 600), nil)

	relocator := publish.NewRelocator(staging, permanent, testSettings(), 1, discardLogger())
	task := relocateTask(1, "slug/vol-1/ch-1/p0001.webp", "slug/vol-1/ch-1/p0001.webp")
	task.SourceInPermanent = true

	results, err := relocator.Relocate(context.Background(), []publish.RelocateTask{task}, true)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, results[0].Transferred)
	assert.Equal(t, 400, results[0].Width)
	assert.Equal(t, 600, results[0].Height)
	assert.Zero(t, staging.maxInFlight, "staging holds no copy to fetch")
}

/*
TestRelocator_PassThroughKeepsSourceQuality verifies that a pass-through
records the source's encode quality on the published object, not this
run's target quality: the bytes were not re-encoded.
*/
func TestRelocator_PassThroughKeepsSourceQuality(t *testing.T) {
	staging := newMemStore()
	permanent := newMemStore()
	staging.seed(testPrefix+"1.webp", encodeWebP(t, 640, 960, 70),
		map[string]string{"codec": "webp", "quality": "70"})

	relocator := publish.NewRelocator(staging, permanent, testSettings(), 1, discardLogger())
	task := relocateTask(1, testPrefix+"1.webp", "slug/vol-1/ch-1/p0001.webp")

	results, err := relocator.Relocate(context.Background(), []publish.RelocateTask{task}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)

	published, err := permanent.Stat(context.Background(), task.DestKey)
	require.NoError(t, err)
	assert.Equal(t, "70", published.Metadata["quality"])
	assert.Equal(t, "webp", published.Metadata["codec"])
}

/*
TestRelocator_MissingSourceFails tags the failure with the relocate stage
and the source key, and aborts the batch.
*/
func TestRelocator_MissingSourceFails(t *testing.T) {
	staging := newMemStore()
	permanent := newMemStore()

	relocator := publish.NewRelocator(staging, permanent, testSettings(), 1, discardLogger())
	task := relocateTask(1, testPrefix+"missing.jpg", "slug/vol-1/ch-1/p0001.webp")

	_, err := relocator.Relocate(context.Background(), []publish.RelocateTask{task}, false)
	require.Error(t, err)

	var stageErr *publish.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, publish.StageRelocate, stageErr.Stage)
	assert.Equal(t, task.SourceKey, stageErr.Key)
}

/*
TestRelocator_UndecodableSourceFails tags decode failures with the
optimize stage.
*/
func TestRelocator_UndecodableSourceFails(t *testing.T) {
	staging := newMemStore()
	permanent := newMemStore()
	staging.seed(testPrefix+"1.jpg", []byte("corrupted"), nil)

	relocator := publish.NewRelocator(staging, permanent, testSettings(), 1, discardLogger())
	task := relocateTask(1, testPrefix+"1.jpg", "slug/vol-1/ch-1/p0001.webp")

	_, err := relocator.Relocate(context.Background(), []publish.RelocateTask{task}, false)
	require.Error(t, err)

	var stageErr *publish.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, publish.StageOptimize, stageErr.Stage)
}

/*
TestRelocator_BoundedConcurrency verifies the pool never runs more workers
than configured, and that results land in task order regardless of
completion order.
*/
func TestRelocator_BoundedConcurrency(t *testing.T) {
	staging := newMemStore()
	permanent := newMemStore()

	const pages = 8
	tasks := make([]publish.RelocateTask, 0, pages)
	for index := 1; index <= pages; index++ {
		source := fmt.Sprintf("%s%d.jpg", testPrefix, index)
		staging.seed(source, encodeJPEG(t, 64, 96), nil)
		tasks = append(tasks, relocateTask(index, source, publish.DestinationKey("slug", 1, 1, index)))
	}

	relocator := publish.NewRelocator(staging, permanent, testSettings(), 2, discardLogger())
	results, err := relocator.Relocate(context.Background(), tasks, false)
	require.NoError(t, err)
	require.Len(t, results, pages)

	assert.LessOrEqual(t, staging.maxInFlight, 2)
	for index, result := range results {
		assert.Equal(t, index+1, result.Index)
		assert.Equal(t, tasks[index].DestKey, result.DestKey)
	}
	assert.Equal(t, pages, permanent.puts)
}
