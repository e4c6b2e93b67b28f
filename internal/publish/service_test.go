// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mirava/internal/platform/apperr"
	"github.com/taibuivan/mirava/internal/publish"
)

// publishFixture wires a [publish.Service] against in-memory fakes.
type publishFixture struct {
	service   *publish.Service
	repo      *fakeRepo
	staging   *memStore
	permanent *memStore
	locker    *fakeLocker
}

func newPublishFixture(t *testing.T, chapter *publish.Chapter, pages []*publish.Page) *publishFixture {
	t.Helper()

	fixture := &publishFixture{
		repo:      &fakeRepo{chapter: chapter, pages: pages},
		staging:   newMemStore(),
		permanent: newMemStore(),
		locker:    &fakeLocker{},
	}
	fixture.service = publish.NewService(
		fixture.repo,
		publish.StaticSettings(testSettings()),
		fixture.staging,
		fixture.permanent,
		fixture.locker,
		2,
		discardLogger(),
	)
	return fixture
}

func readyChapter() *publish.Chapter {
	return &publish.Chapter{
		ID:        "chapter-1",
		ComicID:   "comic-1",
		ComicSlug: "solo-leveling",
		Volume:    1,
		Number:    5,
		Status:    publish.StatusReady,
	}
}

func threePages() []*publish.Page {
	return []*publish.Page{
		{ID: "page-a", Index: 1, OriginalFilename: "0.jpg"},
		{ID: "page-b", Index: 2, OriginalFilename: "1.jpg"},
		{ID: "page-c", Index: 3, OriginalFilename: "2.jpg"},
	}
}

// stageThreePages seeds 0.jpg, 1.jpg, 2.jpg under the chapter's current
// staging prefix.
func stageThreePages(t *testing.T, fixture *publishFixture) {
	t.Helper()
	prefix := publish.StagingPrefix("comic-1", "chapter-1")
	fixture.staging.seed(prefix+"0.jpg", encodeJPEG(t, 400, 600), nil)
	fixture.staging.seed(prefix+"1.jpg", encodeJPEG(t, 400, 600), nil)
	fixture.staging.seed(prefix+"2.jpg", encodeJPEG(t, 400, 600), nil)
}

/*
TestService_ApprovePublishesChapter runs the full pipeline: three staged
JPEGs become three permanent WebP pages, the metadata commit fires, and
staging is emptied.
*/
func TestService_ApprovePublishesChapter(t *testing.T) {
	fixture := newPublishFixture(t, readyChapter(), threePages())
	stageThreePages(t, fixture)

	report, err := fixture.service.Approve(context.Background(), "chapter-1", false)
	require.NoError(t, err)

	assert.Equal(t, "solo-leveling/vol-1/ch-5/", report.PublishedPrefix)
	assert.Equal(t, 3, report.RelocatedCount())
	assert.Empty(t, report.Skipped)

	// Pages land under the deterministic key scheme, in order.
	assert.Equal(t, []string{
		"solo-leveling/vol-1/ch-5/p0001.webp",
		"solo-leveling/vol-1/ch-5/p0002.webp",
		"solo-leveling/vol-1/ch-5/p0003.webp",
	}, fixture.permanent.keys())

	// Staging is swept after the commit.
	assert.Empty(t, fixture.staging.keys())

	// The transaction saw every page as a row update.
	assert.True(t, fixture.repo.committed)
	assert.Len(t, fixture.repo.committedUpdate, 3)
	assert.Empty(t, fixture.repo.committedInsert)
	assert.Equal(t, 3, fixture.repo.committedStats.PagesCount)
	assert.Equal(t, publish.StatusPublished, fixture.repo.chapter.Status)

	// The publish lock is released.
	assert.Equal(t, 1, fixture.locker.releases)
}

/*
TestService_ApproveIsIdempotent re-approves a published chapter after its
staging area was swept: every page is confirmed in place with zero byte
transfers.
*/
func TestService_ApproveIsIdempotent(t *testing.T) {
	fixture := newPublishFixture(t, readyChapter(), threePages())
	stageThreePages(t, fixture)

	_, err := fixture.service.Approve(context.Background(), "chapter-1", false)
	require.NoError(t, err)
	putsAfterFirst := fixture.permanent.puts

	report, err := fixture.service.Approve(context.Background(), "chapter-1", false)
	require.NoError(t, err)

	assert.Equal(t, 3, report.RelocatedCount())
	for _, page := range report.Relocated {
		assert.False(t, page.Transferred)
	}
	assert.Equal(t, putsAfterFirst, fixture.permanent.puts, "no bytes may move on re-approve")
	assert.Zero(t, report.SavedBytes)

	// The skip path never re-measures pages, so the second commit must
	// carry the stored dimensions rather than wiping them with zeros.
	require.Len(t, fixture.repo.committedUpdate, 3)
	for _, update := range fixture.repo.committedUpdate {
		assert.Equal(t, 400, update.Width)
		assert.Equal(t, 600, update.Height)
	}
	for _, page := range fixture.repo.pages {
		assert.Equal(t, 400, page.Width)
		assert.Equal(t, 600, page.Height)
	}
}

/*
TestService_ApproveForceAfterSweep force-republishes a chapter whose
staging copies were swept by the first publish: page rows point at the
permanent bucket, and force reprocesses from those bytes.
*/
func TestService_ApproveForceAfterSweep(t *testing.T) {
	fixture := newPublishFixture(t, readyChapter(), threePages())
	stageThreePages(t, fixture)

	_, err := fixture.service.Approve(context.Background(), "chapter-1", false)
	require.NoError(t, err)
	require.Empty(t, fixture.staging.keys())
	putsAfterFirst := fixture.permanent.puts

	report, err := fixture.service.Approve(context.Background(), "chapter-1", true)
	require.NoError(t, err)

	assert.Equal(t, 3, report.RelocatedCount())
	for _, page := range report.Relocated {
		assert.True(t, page.Transferred)
	}
	assert.Equal(t, putsAfterFirst+3, fixture.permanent.puts)
}

/*
TestService_ReleaseSurvivesCallerCancellation verifies the lock release is
detached from the caller's context: an aborted request must not leave the
chapter locked until the TTL expires.
*/
func TestService_ReleaseSurvivesCallerCancellation(t *testing.T) {
	fixture := newPublishFixture(t, readyChapter(), threePages())
	stageThreePages(t, fixture)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _ = fixture.service.Approve(ctx, "chapter-1", false)

	require.Equal(t, 1, fixture.locker.releases)
	assert.NoError(t, fixture.locker.releaseCtxErr, "release context must not carry the cancellation")
}

/*
TestService_ApproveDegradedMode publishes a chapter with staged objects but
no page rows: objects pair positionally in numeric-aware order and are
committed as fresh row inserts.
*/
func TestService_ApproveDegradedMode(t *testing.T) {
	fixture := newPublishFixture(t, readyChapter(), nil)
	prefix := publish.StagingPrefix("comic-1", "chapter-1")
	fixture.staging.seed(prefix+"10.jpg", encodeJPEG(t, 400, 600), nil)
	fixture.staging.seed(prefix+"2.jpg", encodeJPEG(t, 400, 600), nil)
	fixture.staging.seed(prefix+"1.jpg", encodeJPEG(t, 400, 600), nil)

	report, err := fixture.service.Approve(context.Background(), "chapter-1", false)
	require.NoError(t, err)

	assert.Equal(t, 3, report.RelocatedCount())
	assert.Empty(t, fixture.repo.committedUpdate)
	require.Len(t, fixture.repo.committedInsert, 3)

	// 2.jpg sorts before 10.jpg: numeric-aware, not lexicographic.
	assert.Equal(t, prefix+"1.jpg", report.Relocated[0].SourceKey)
	assert.Equal(t, prefix+"2.jpg", report.Relocated[1].SourceKey)
	assert.Equal(t, prefix+"10.jpg", report.Relocated[2].SourceKey)
	assert.Equal(t, 3, fixture.repo.committedStats.PagesCount)
}

/*
TestService_ApprovePartialSkip continues past pages whose staged object is
missing, reporting them as skipped.
*/
func TestService_ApprovePartialSkip(t *testing.T) {
	fixture := newPublishFixture(t, readyChapter(), threePages())
	prefix := publish.StagingPrefix("comic-1", "chapter-1")
	fixture.staging.seed(prefix+"0.jpg", encodeJPEG(t, 400, 600), nil)
	fixture.staging.seed(prefix+"1.jpg", encodeJPEG(t, 400, 600), nil)

	report, err := fixture.service.Approve(context.Background(), "chapter-1", false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.RelocatedCount())
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "page-c", report.Skipped[0].PageID)
	assert.Equal(t, 2, fixture.repo.committedStats.PagesCount)
}

/*
TestService_ApproveRejectsBadStates covers the lifecycle guards: drafts
and rejected chapters cannot be approved, and a held lock turns into a
conflict.
*/
func TestService_ApproveRejectsBadStates(t *testing.T) {
	t.Run("draft", func(t *testing.T) {
		chapter := readyChapter()
		chapter.Status = publish.StatusDraft
		fixture := newPublishFixture(t, chapter, threePages())

		_, err := fixture.service.Approve(context.Background(), "chapter-1", false)
		assert.ErrorIs(t, err, publish.ErrChapterNotReady)
		assert.Equal(t, "UNPROCESSABLE", apperr.As(err).Code)
	})

	t.Run("rejected", func(t *testing.T) {
		chapter := readyChapter()
		chapter.Status = publish.StatusRejected
		fixture := newPublishFixture(t, chapter, threePages())

		_, err := fixture.service.Approve(context.Background(), "chapter-1", false)
		assert.ErrorIs(t, err, publish.ErrChapterRejected)
	})

	t.Run("lock_held", func(t *testing.T) {
		fixture := newPublishFixture(t, readyChapter(), threePages())
		fixture.locker.held = true

		_, err := fixture.service.Approve(context.Background(), "chapter-1", false)
		assert.ErrorIs(t, err, publish.ErrPublishInProgress)
		assert.Equal(t, "CONFLICT", apperr.As(err).Code)
	})

	t.Run("nothing_staged", func(t *testing.T) {
		fixture := newPublishFixture(t, readyChapter(), threePages())

		_, err := fixture.service.Approve(context.Background(), "chapter-1", false)
		assert.ErrorIs(t, err, publish.ErrNoResolvablePages)
	})
}

/*
TestService_ApproveCommitFailure checks atomicity: when the metadata
transaction fails, the chapter keeps its prior status and staging is left
untouched for the retry.
*/
func TestService_ApproveCommitFailure(t *testing.T) {
	fixture := newPublishFixture(t, readyChapter(), threePages())
	stageThreePages(t, fixture)
	fixture.repo.commitErr = errors.New("connection reset")

	_, err := fixture.service.Approve(context.Background(), "chapter-1", false)
	require.Error(t, err)

	var stageErr *publish.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, publish.StageCommit, stageErr.Stage)

	assert.Equal(t, publish.StatusReady, fixture.repo.chapter.Status)
	assert.Len(t, fixture.staging.keys(), 3, "staging must survive a failed commit")
	assert.Equal(t, 1, fixture.locker.releases)

	// Relocated destinations stay: the retry confirms them in place.
	assert.Len(t, fixture.permanent.keys(), 3)
}

/*
TestService_RejectCleansUp rejects a partially published chapter: page rows
are deleted, captured permanent keys and every staging convention are
swept, and the chapter returns to draft (or is discarded).
*/
func TestService_RejectCleansUp(t *testing.T) {
	chapter := readyChapter()
	fixture := newPublishFixture(t, chapter, threePages())

	stagingPrefix := publish.StagingPrefix("comic-1", "chapter-1")
	legacyPrefix := "uploads/comic-1/chapter-1/"
	partialKey := "solo-leveling/vol-1/ch-5/p0001.webp"

	fixture.staging.seed(stagingPrefix+"0.jpg", []byte("a"), nil)
	fixture.staging.seed(legacyPrefix+"old.jpg", []byte("b"), nil)
	fixture.permanent.seed(partialKey, []byte("c"), nil)

	fixture.repo.rejectOutcome = &publish.RejectOutcome{
		ImageKeys:    []string{"https://cdn.mirava.app/" + partialKey, stagingPrefix + "0.jpg"},
		DeletedPages: 3,
	}

	report, err := fixture.service.Reject(context.Background(), "chapter-1", false, "duplicate upload")
	require.NoError(t, err)

	assert.Equal(t, 3, report.DeletedPageCount)
	assert.Equal(t, publish.StatusDraft, fixture.repo.rejectedStatus)

	assert.Empty(t, fixture.staging.keys(), "both staging conventions swept")
	assert.Empty(t, fixture.permanent.keys(), "partial publish removed")
	assert.Positive(t, report.Cleanup.DeletedTotal())
	assert.Equal(t, 1, fixture.locker.releases)
}

/*
TestService_RejectDiscard moves the chapter to the terminal rejected state.
*/
func TestService_RejectDiscard(t *testing.T) {
	fixture := newPublishFixture(t, readyChapter(), threePages())

	_, err := fixture.service.Reject(context.Background(), "chapter-1", true, "rights holder takedown")
	require.NoError(t, err)

	assert.Equal(t, publish.StatusRejected, fixture.repo.rejectedStatus)
}
