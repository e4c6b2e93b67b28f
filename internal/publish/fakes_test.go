// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mirava/internal/platform/objstore"
	"github.com/taibuivan/mirava/internal/publish"
)

// discardLogger silences pipeline log output during tests.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// # In-Memory Object Store

type memObject struct {
	data    []byte
	options objstore.PutOptions
}

// memStore is an in-memory [objstore.Store] with per-key failure injection.
type memStore struct {
	mu      sync.Mutex
	objects map[string]memObject

	// Injected failures, keyed by the exact object key.
	getErrs    map[string]error
	putErrs    map[string]error
	removeErrs map[string]error
	listErr    error

	// puts counts Put calls for transfer assertions.
	puts int

	// inFlight/maxInFlight track concurrent Get/Put calls.
	inFlight    int
	maxInFlight int
}

func newMemStore() *memStore {
	return &memStore{
		objects:    make(map[string]memObject),
		getErrs:    make(map[string]error),
		putErrs:    make(map[string]error),
		removeErrs: make(map[string]error),
	}
}

func (store *memStore) seed(key string, data []byte, metadata map[string]string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.objects[key] = memObject{data: data, options: objstore.PutOptions{Metadata: metadata}}
}

func (store *memStore) keys() []string {
	store.mu.Lock()
	defer store.mu.Unlock()
	keys := make([]string, 0, len(store.objects))
	for key := range store.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (store *memStore) enter() {
	store.mu.Lock()
	store.inFlight++
	if store.inFlight > store.maxInFlight {
		store.maxInFlight = store.inFlight
	}
	store.mu.Unlock()
}

func (store *memStore) leave() {
	store.mu.Lock()
	store.inFlight--
	store.mu.Unlock()
}

func (store *memStore) ListPrefix(_ context.Context, prefix string) ([]objstore.ObjectInfo, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.listErr != nil {
		return nil, store.listErr
	}

	var listing []objstore.ObjectInfo
	for key, object := range store.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			listing = append(listing, store.infoLocked(key, object))
		}
	}
	sort.Slice(listing, func(i, j int) bool { return listing[i].Key < listing[j].Key })
	return listing, nil
}

func (store *memStore) Stat(_ context.Context, key string) (objstore.ObjectInfo, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	object, ok := store.objects[key]
	if !ok {
		return objstore.ObjectInfo{}, objstore.ErrNotFound
	}
	return store.infoLocked(key, object), nil
}

func (store *memStore) Get(_ context.Context, key string) ([]byte, objstore.ObjectInfo, error) {
	store.enter()
	defer store.leave()

	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.getErrs[key]; err != nil {
		return nil, objstore.ObjectInfo{}, err
	}
	object, ok := store.objects[key]
	if !ok {
		return nil, objstore.ObjectInfo{}, objstore.ErrNotFound
	}
	return object.data, store.infoLocked(key, object), nil
}

func (store *memStore) Put(_ context.Context, key string, data []byte, options objstore.PutOptions) error {
	store.enter()
	defer store.leave()

	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.putErrs[key]; err != nil {
		return err
	}
	store.objects[key] = memObject{data: data, options: options}
	store.puts++
	return nil
}

func (store *memStore) Copy(_ context.Context, sourceKey, destKey string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	object, ok := store.objects[sourceKey]
	if !ok {
		return objstore.ErrNotFound
	}
	store.objects[destKey] = object
	return nil
}

func (store *memStore) RemoveBatch(_ context.Context, keys []string) []objstore.RemoveResult {
	store.mu.Lock()
	defer store.mu.Unlock()

	var failures []objstore.RemoveResult
	for _, key := range keys {
		if err := store.removeErrs[key]; err != nil {
			failures = append(failures, objstore.RemoveResult{Key: key, Err: err})
			continue
		}
		delete(store.objects, key)
	}
	return failures
}

func (store *memStore) infoLocked(key string, object memObject) objstore.ObjectInfo {
	return objstore.ObjectInfo{
		Key:         key,
		Size:        int64(len(object.data)),
		ContentType: object.options.ContentType,
		Metadata:    object.options.Metadata,
	}
}

// # Fake Repository

// fakeRepo is an in-memory [publish.Repository] recording commits.
type fakeRepo struct {
	mu      sync.Mutex
	chapter *publish.Chapter
	pages   []*publish.Page

	commitErr error
	rejectErr error

	committed       bool
	committedUpdate []publish.PageLocation
	committedInsert []publish.PageLocation
	committedStats  publish.PublishStats

	rejectedStatus publish.Status
	rejectOutcome  *publish.RejectOutcome
}

func (repo *fakeRepo) ChapterForPublish(context.Context, string) (*publish.Chapter, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	snapshot := *repo.chapter
	return &snapshot, nil
}

func (repo *fakeRepo) Pages(context.Context, string) ([]*publish.Page, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.pages, nil
}

func (repo *fakeRepo) CommitPublish(_ context.Context, _ string, updates, inserts []publish.PageLocation, stats publish.PublishStats) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.commitErr != nil {
		return repo.commitErr
	}
	repo.committed = true
	repo.committedUpdate = updates
	repo.committedInsert = inserts
	repo.committedStats = stats
	repo.chapter.Status = publish.StatusPublished

	// Mirror the real transaction: page rows now reference their
	// permanent keys, and zero dimensions keep the stored values.
	for _, update := range updates {
		for _, page := range repo.pages {
			if page.ID == update.PageID {
				page.ImageKey = update.ImageKey
				if update.Width != 0 {
					page.Width = update.Width
				}
				if update.Height != 0 {
					page.Height = update.Height
				}
			}
		}
	}
	return nil
}

func (repo *fakeRepo) CommitReject(_ context.Context, _ string, status publish.Status) (*publish.RejectOutcome, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.rejectErr != nil {
		return nil, repo.rejectErr
	}
	repo.rejectedStatus = status
	repo.chapter.Status = status
	if repo.rejectOutcome != nil {
		return repo.rejectOutcome, nil
	}
	return &publish.RejectOutcome{}, nil
}

// # Fake Locker

// fakeLocker is a [publish.Locker] with a switchable held state.
type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	acquires int
	releases int

	// releaseCtxErr records ctx.Err() at release time, to assert the
	// release is detached from the caller's cancellation.
	releaseCtxErr error
}

func (locker *fakeLocker) Acquire(context.Context, string) (bool, error) {
	locker.mu.Lock()
	defer locker.mu.Unlock()
	locker.acquires++
	if locker.held {
		return false, nil
	}
	locker.held = true
	return true, nil
}

func (locker *fakeLocker) Release(ctx context.Context, _ string) {
	locker.mu.Lock()
	defer locker.mu.Unlock()
	locker.releases++
	locker.held = false
	locker.releaseCtxErr = ctx.Err()
}

// # Test Images

// encodeJPEG produces a solid-color JPEG of the given dimensions.
func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := jpeg.Encode(&buf, testImage(width, height), &jpeg.Options{Quality: 90})
	require.NoError(t, err)
	return buf.Bytes()
}

// encodePNG produces a solid-color PNG of the given dimensions.
func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := png.Encode(&buf, testImage(width, height))
	require.NoError(t, err)
	return buf.Bytes()
}

func testImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

// testSettings returns the optimizer tunables used across tests.
func testSettings() publish.Settings {
	return publish.Settings{
		UploadQuality:       90,
		PublishQuality:      80,
		MaxWidth:            1600,
		MaxHeight:           2400,
		RecompressThreshold: 85,
		Effort:              0,
	}
}
