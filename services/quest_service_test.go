package services

import (
	"context"
	"testing"

	"grimoire/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateQuestDifficulty(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.createUser(t, "alice")
	game := env.createGame(t, userID, "Celeste")
	ctx := context.Background()

	quest := env.createQuest(t, userID, game.ID, "Forsaken City")
	assert.Equal(t, 5, quest.Difficulty)
	assert.Equal(t, models.QuestStatusNotStarted, quest.Status)
	assert.Zero(t, quest.HintsUsed)

	quest, err := env.quests.CreateQuest(ctx, userID, &CreateQuestRequest{GameID: game.ID, Name: "Core", Difficulty: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, 10, quest.Difficulty)

	for _, d := range []int{0, 11} {
		_, err := env.quests.CreateQuest(ctx, userID, &CreateQuestRequest{GameID: game.ID, Name: "Bad", Difficulty: intPtr(d)})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "difficulty", ve.Field)
	}
}

func TestStartAndCompleteQuest(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.createUser(t, "alice")
	game := env.createGame(t, userID, "Celeste")
	quest := env.createQuest(t, userID, game.ID, "Summit")
	ctx := context.Background()

	started, err := env.quests.StartQuest(ctx, userID, quest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuestStatusInProgress, started.Status)

	completed, err := env.quests.CompleteQuest(ctx, userID, quest.ID, intPtr(5400))
	require.NoError(t, err)
	assert.Equal(t, models.QuestStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletionTime)
	assert.Equal(t, 5400, *completed.CompletionTime)

	stored := env.reloadQuest(t, quest.ID)
	require.NotNil(t, stored.CompletionTime)
	assert.Equal(t, 5400, *stored.CompletionTime)

	// Starting a completed quest moves it back to in_progress.
	restarted, err := env.quests.StartQuest(ctx, userID, quest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuestStatusInProgress, restarted.Status)

	// Completing without a time clears the stored one.
	completed, err = env.quests.CompleteQuest(ctx, userID, quest.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.QuestStatusCompleted, completed.Status)
	assert.Nil(t, env.reloadQuest(t, quest.ID).CompletionTime)

	_, err = env.quests.CompleteQuest(ctx, userID, quest.ID, intPtr(-5))
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestUpdateQuest(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.createUser(t, "alice")
	game := env.createGame(t, userID, "Celeste")
	quest := env.createQuest(t, userID, game.ID, "Summit")
	ctx := context.Background()

	status := models.QuestStatusCompleted
	updated, err := env.quests.UpdateQuest(ctx, userID, quest.ID, &UpdateQuestRequest{
		Notes:      strPtr("dash twice at the end"),
		Status:     &status,
		Difficulty: intPtr(9),
	})
	require.NoError(t, err)
	assert.Equal(t, "dash twice at the end", updated.Notes)
	assert.Equal(t, models.QuestStatusCompleted, updated.Status)
	assert.Equal(t, 9, updated.Difficulty)
	assert.Equal(t, "Summit", updated.Name)

	_, err = env.quests.UpdateQuest(ctx, userID, quest.ID, &UpdateQuestRequest{Difficulty: intPtr(0)})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 9, env.reloadQuest(t, quest.ID).Difficulty)
}

func TestListQuestsNewestFirstWithHintCounts(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.createUser(t, "alice")
	game := env.createGame(t, userID, "Celeste")
	ctx := context.Background()

	first := env.createQuest(t, userID, game.ID, "First")
	second := env.createQuest(t, userID, game.ID, "Second")
	env.createHint(t, userID, first.ID, models.HintTypeGeneral)
	env.createHint(t, userID, first.ID, models.HintTypeSolution)

	quests, err := env.quests.ListQuests(ctx, userID, game.ID)
	require.NoError(t, err)
	require.Len(t, quests, 2)
	assert.Equal(t, second.ID, quests[0].ID)
	assert.Equal(t, first.ID, quests[1].ID)
	assert.Equal(t, int64(0), quests[0].TotalHints)
	assert.Equal(t, int64(2), quests[1].TotalHints)

	got, err := env.quests.GetQuest(ctx, userID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TotalHints)
	assert.Equal(t, 2, got.HintsUsed)
}

func TestQuestOwnershipIsolation(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	game := env.createGame(t, alice, "Celeste")
	quest := env.createQuest(t, alice, game.ID, "Summit")
	ctx := context.Background()

	_, err := env.quests.ListQuests(ctx, bob, game.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.quests.GetQuest(ctx, bob, quest.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.quests.CreateQuest(ctx, bob, &CreateQuestRequest{GameID: game.ID, Name: "Sneaky"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.quests.StartQuest(ctx, bob, quest.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.quests.CompleteQuest(ctx, bob, quest.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.quests.DeleteQuest(ctx, bob, quest.ID), ErrNotFound)

	assert.Equal(t, models.QuestStatusNotStarted, env.reloadQuest(t, quest.ID).Status)
}

func TestDeleteQuestRemovesHints(t *testing.T) {
	env := newTestEnv(t, nil)
	userID := env.createUser(t, "alice")
	game := env.createGame(t, userID, "Celeste")
	quest := env.createQuest(t, userID, game.ID, "Summit")
	env.createHint(t, userID, quest.ID, models.HintTypeGeneral)
	env.createHint(t, userID, quest.ID, models.HintTypeGeneral)

	require.NoError(t, env.quests.DeleteQuest(context.Background(), userID, quest.ID))

	var hints int64
	require.NoError(t, env.db.Model(&models.Hint{}).Where("quest_id = ?", quest.ID).Count(&hints).Error)
	assert.Zero(t, hints)

	_, err := env.quests.GetQuest(context.Background(), userID, quest.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
