package services

import (
	"context"
	"testing"

	"grimoire/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHintStats(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.createUser(t, "alice")
	game := env.createGame(t, userID, "Celeste")
	ctx := context.Background()

	stats, err := env.stats.HintStats(ctx, userID, game.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalHints)
	assert.Nil(t, stats.AvgRating)

	q1 := env.createQuest(t, userID, game.ID, "Summit")
	q2 := env.createQuest(t, userID, game.ID, "Core")
	h1 := env.createHint(t, userID, q1.ID, models.HintTypeGeneral)
	h2 := env.createHint(t, userID, q1.ID, models.HintTypeSpecific)
	env.createHint(t, userID, q2.ID, models.HintTypeSolution)
	env.createHint(t, userID, q2.ID, models.HintTypeGeneral)

	stats, err = env.stats.HintStats(ctx, userID, game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalHints)
	assert.Equal(t, int64(2), stats.GeneralHints)
	assert.Equal(t, int64(1), stats.SpecificHints)
	assert.Equal(t, int64(1), stats.SolutionHints)
	assert.Nil(t, stats.AvgRating)

	_, err = env.hints.RateHint(ctx, userID, h1.ID, 4)
	require.NoError(t, err)
	_, err = env.hints.RateHint(ctx, userID, h2.ID, 5)
	require.NoError(t, err)

	stats, err = env.stats.HintStats(ctx, userID, game.ID)
	require.NoError(t, err)
	require.NotNil(t, stats.AvgRating)
	assert.InDelta(t, 4.5, *stats.AvgRating, 1e-9)
}

func TestHintStatsIgnoresOtherGames(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.createUser(t, "alice")
	game := env.createGame(t, userID, "Celeste")
	other := env.createGame(t, userID, "Hades")
	quest := env.createQuest(t, userID, other.ID, "Escape")
	hint := env.createHint(t, userID, quest.ID, models.HintTypeSolution)
	_, err := env.hints.RateHint(context.Background(), userID, hint.ID, 1)
	require.NoError(t, err)

	stats, err := env.stats.HintStats(context.Background(), userID, game.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalHints)
	assert.Nil(t, stats.AvgRating)
}

func TestGameStats(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	game := env.createGame(t, alice, "Celeste")
	ctx := context.Background()

	_, err := env.games.UpdateGame(ctx, alice, game.ID, &UpdateGameRequest{Playtime: intPtr(7200), Progress: intPtr(30)})
	require.NoError(t, err)
	q := env.createQuest(t, alice, game.ID, "Summit")
	env.createQuest(t, alice, game.ID, "Core")
	_, err = env.quests.CompleteQuest(ctx, alice, q.ID, nil)
	require.NoError(t, err)

	stats, err := env.stats.GameStats(ctx, alice, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 7200, stats.Playtime)
	assert.Equal(t, 30, stats.Progress)
	assert.Equal(t, int64(2), stats.TotalQuests)
	assert.Equal(t, int64(1), stats.CompletedQuests)

	_, err = env.stats.GameStats(ctx, bob, game.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.stats.HintStats(ctx, bob, game.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatsCacheInvalidatedByWrites(t *testing.T) {
	cache := newMemoryStatsCache()
	env := newTestEnv(t, cache)
	userID := env.createUser(t, "alice")
	game := env.createGame(t, userID, "Celeste")
	ctx := context.Background()

	stats, err := env.stats.GameStats(ctx, userID, game.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalQuests)

	// A row written behind the services' back is not seen while cached.
	require.NoError(t, env.db.Create(&models.Quest{GameID: game.ID, Name: "Hidden", Status: models.QuestStatusNotStarted, Difficulty: 5}).Error)
	stats, err = env.stats.GameStats(ctx, userID, game.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalQuests)

	quest := env.createQuest(t, userID, game.ID, "Summit")
	assert.Contains(t, cache.invalidated, game.ID)

	stats, err = env.stats.GameStats(ctx, userID, game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalQuests)

	hintStats, err := env.stats.HintStats(ctx, userID, game.ID)
	require.NoError(t, err)
	assert.Zero(t, hintStats.TotalHints)

	hint := env.createHint(t, userID, quest.ID, models.HintTypeGeneral)
	hintStats, err = env.stats.HintStats(ctx, userID, game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hintStats.TotalHints)

	_, err = env.hints.RateHint(ctx, userID, hint.ID, 3)
	require.NoError(t, err)
	hintStats, err = env.stats.HintStats(ctx, userID, game.ID)
	require.NoError(t, err)
	require.NotNil(t, hintStats.AvgRating)
	assert.InDelta(t, 3.0, *hintStats.AvgRating, 1e-9)
}

func TestHintStatsNotCachedAcrossConcurrentWrite(t *testing.T) {
	cache := &interleavingStatsCache{memoryStatsCache: newMemoryStatsCache()}
	env := newTestEnv(t, cache)
	userID := env.createUser(t, "alice")
	game := env.createGame(t, userID, "Celeste")
	quest := env.createQuest(t, userID, game.ID, "Summit")
	env.createHint(t, userID, quest.ID, models.HintTypeGeneral)
	ctx := context.Background()

	cache.beforeSet = func() {
		env.createHint(t, userID, quest.ID, models.HintTypeSolution)
	}

	stats, err := env.stats.HintStats(ctx, userID, game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalHints)

	stats, err = env.stats.HintStats(ctx, userID, game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalHints)
	assert.Equal(t, int64(1), stats.SolutionHints)
}

func TestQuestCountsNotCachedAcrossConcurrentWrite(t *testing.T) {
	cache := &interleavingStatsCache{memoryStatsCache: newMemoryStatsCache()}
	env := newTestEnv(t, cache)
	userID := env.createUser(t, "alice")
	game := env.createGame(t, userID, "Celeste")
	ctx := context.Background()

	cache.beforeSet = func() {
		env.createQuest(t, userID, game.ID, "Summit")
	}

	stats, err := env.stats.GameStats(ctx, userID, game.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalQuests)

	stats, err = env.stats.GameStats(ctx, userID, game.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalQuests)
}

func TestAverageRating(t *testing.T) {
	assert.Nil(t, averageRating(nil))
	avg := averageRating([]int{4, 5})
	require.NotNil(t, avg)
	assert.Equal(t, 4.5, *avg)
}
