// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mirava/internal/core/comic"
	"github.com/taibuivan/mirava/internal/platform/apperr"
)

// # Fakes

type fakeRepo struct {
	comics map[string]*comic.Comic
	views  map[string]int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		comics: make(map[string]*comic.Comic),
		views:  make(map[string]int64),
	}
}

func (repo *fakeRepo) List(context.Context, comic.Filter, int, int) ([]*comic.Comic, int, error) {
	return nil, 0, nil
}

func (repo *fakeRepo) FindByIDOrSlug(_ context.Context, idOrSlug string) (*comic.Comic, error) {
	for _, c := range repo.comics {
		if c.ID == idOrSlug || c.Slug == idOrSlug {
			return c, nil
		}
	}
	return nil, apperr.NotFound("Comic")
}

func (repo *fakeRepo) Create(_ context.Context, c *comic.Comic) error {
	for _, existing := range repo.comics {
		if existing.Slug == c.Slug {
			return apperr.Conflict("A comic with this slug already exists")
		}
	}
	repo.comics[c.ID] = c
	return nil
}

func (repo *fakeRepo) IncrementViewCount(_ context.Context, id string, delta int64) error {
	repo.views[id] += delta
	return nil
}

func (repo *fakeRepo) SoftDelete(_ context.Context, id string) error {
	if _, ok := repo.comics[id]; !ok {
		return apperr.NotFound("Comic")
	}
	delete(repo.comics, id)
	return nil
}

func newService(repo *fakeRepo) *comic.Service {
	return comic.NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// # Tests

func TestCreateComic(t *testing.T) {
	t.Run("derives_slug_and_defaults", func(t *testing.T) {
		repo := newFakeRepo()
		service := newService(repo)

		newComic := &comic.Comic{Title: "Solo Leveling"}
		require.NoError(t, service.CreateComic(context.Background(), newComic))

		assert.NotEmpty(t, newComic.ID)
		assert.Equal(t, "solo-leveling", newComic.Slug)
		assert.Equal(t, comic.StatusOngoing, newComic.Status)
	})

	t.Run("rejects_missing_title", func(t *testing.T) {
		service := newService(newFakeRepo())

		err := service.CreateComic(context.Background(), &comic.Comic{})
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	})

	t.Run("rejects_unknown_status", func(t *testing.T) {
		service := newService(newFakeRepo())

		err := service.CreateComic(context.Background(), &comic.Comic{
			Title:  "Berserk",
			Status: comic.ComicStatus("paused"),
		})
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	})

	t.Run("surfaces_slug_conflict", func(t *testing.T) {
		repo := newFakeRepo()
		service := newService(repo)

		require.NoError(t, service.CreateComic(context.Background(), &comic.Comic{Title: "One Piece"}))

		err := service.CreateComic(context.Background(), &comic.Comic{Title: "One Piece"})
		require.Error(t, err)
		assert.Equal(t, "CONFLICT", apperr.As(err).Code)
	})
}

func TestGetComic_ResolvesBySlug(t *testing.T) {
	repo := newFakeRepo()
	service := newService(repo)

	seeded := &comic.Comic{Title: "Vagabond"}
	require.NoError(t, service.CreateComic(context.Background(), seeded))

	found, err := service.GetComic(context.Background(), "vagabond")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)

	_, err = service.GetComic(context.Background(), "missing")
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

func TestRecordView(t *testing.T) {
	repo := newFakeRepo()
	service := newService(repo)

	require.NoError(t, service.RecordView(context.Background(), "comic-1"))
	require.NoError(t, service.RecordView(context.Background(), "comic-1"))
	assert.Equal(t, int64(2), repo.views["comic-1"])
}
