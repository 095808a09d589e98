// Copyright 2026 The MunhwaMap Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) Repository {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db)
	require.NoError(t, repo.CreateSchema())

	return repo
}

func TestToggleFavorite(t *testing.T) {
	repo := setupTestRepo(t)

	fav, err := repo.IsFavorite("evt_1")
	require.NoError(t, err)
	assert.False(t, fav)

	on, err := repo.ToggleFavorite("evt_1")
	require.NoError(t, err)
	assert.True(t, on)

	fav, err = repo.IsFavorite("evt_1")
	require.NoError(t, err)
	assert.True(t, fav)

	off, err := repo.ToggleFavorite("evt_1")
	require.NoError(t, err)
	assert.False(t, off)

	ids, err := repo.ListFavorites()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestListFavoritesOrder(t *testing.T) {
	repo := setupTestRepo(t)

	for _, id := range []string{"evt_a", "evt_b", "evt_c"} {
		_, err := repo.ToggleFavorite(id)
		require.NoError(t, err)
	}

	ids, err := repo.ListFavorites()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"evt_a", "evt_b", "evt_c"}, ids)
}

func TestAddRecentDeduplicates(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.AddRecent("evt_1"))
	require.NoError(t, repo.AddRecent("evt_2"))
	require.NoError(t, repo.AddRecent("evt_1"))

	recents, err := repo.ListRecents()
	require.NoError(t, err)
	require.Len(t, recents, 2)
	// Re-viewing moves the entry to the front.
	assert.Equal(t, "evt_1", recents[0].EventID)
	assert.Equal(t, "evt_2", recents[1].EventID)
}

func TestAddRecentEvictsBeyondCap(t *testing.T) {
	repo := setupTestRepo(t)

	for i := 0; i < MaxRecents+10; i++ {
		require.NoError(t, repo.AddRecent(fmt.Sprintf("evt_%03d", i)))
	}

	recents, err := repo.ListRecents()
	require.NoError(t, err)
	assert.Len(t, recents, MaxRecents)

	seen := make(map[string]bool)
	for _, rec := range recents {
		seen[rec.EventID] = true
	}

	// The most recent view survives, the oldest is gone.
	assert.True(t, seen[fmt.Sprintf("evt_%03d", MaxRecents+9)])
	assert.False(t, seen["evt_000"])
}

func TestAddReviewValidatesRating(t *testing.T) {
	repo := setupTestRepo(t)

	for _, rating := range []int{0, -1, 6, 100} {
		_, err := repo.AddReview("evt_1", rating, "nope")
		assert.ErrorIs(t, err, ErrInvalidRating, "rating %d", rating)
	}

	reviews, err := repo.ListReviews("evt_1")
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestReviewLifecycle(t *testing.T) {
	repo := setupTestRepo(t)

	first, err := repo.AddReview("evt_1", 5, "최고의 공연이었다")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Positive(t, first.ID)

	second, err := repo.AddReview("evt_1", 3, "")
	require.NoError(t, err)

	_, err = repo.AddReview("evt_other", 4, "다른 행사")
	require.NoError(t, err)

	reviews, err := repo.ListReviews("evt_1")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, second.ID, reviews[0].ID)
	assert.Equal(t, first.ID, reviews[1].ID)
	assert.Equal(t, "최고의 공연이었다", reviews[1].Comment)

	require.NoError(t, repo.DeleteReview(first.ID))

	reviews, err = repo.ListReviews("evt_1")
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	assert.ErrorIs(t, repo.DeleteReview(first.ID), sql.ErrNoRows)
}
