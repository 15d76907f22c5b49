package services

import (
	"errors"

	"grimoire/models"

	"gorm.io/gorm"
)

// The find* helpers resolve an entity through its ownership chain. A row that
// exists but belongs to another user is reported exactly like a missing row.

func findOwnedGame(db *gorm.DB, userID, gameID uint) (*models.Game, error) {
	var game models.Game
	err := db.Where("id = ? AND user_id = ?", gameID, userID).First(&game).Error
	if err != nil {
		return nil, lookupErr("find game", err)
	}
	return &game, nil
}

func findOwnedQuest(db *gorm.DB, userID, questID uint) (*models.Quest, error) {
	var quest models.Quest
	err := db.Joins("JOIN games ON games.id = quests.game_id").
		Where("quests.id = ? AND games.user_id = ?", questID, userID).
		First(&quest).Error
	if err != nil {
		return nil, lookupErr("find quest", err)
	}
	return &quest, nil
}

// findOwnedHint also loads the parent quest so callers know which game the
// hint lives under.
func findOwnedHint(db *gorm.DB, userID, hintID uint) (*models.Hint, error) {
	var hint models.Hint
	err := db.Joins("JOIN quests ON quests.id = hints.quest_id").
		Joins("JOIN games ON games.id = quests.game_id").
		Where("hints.id = ? AND games.user_id = ?", hintID, userID).
		First(&hint).Error
	if err != nil {
		return nil, lookupErr("find hint", err)
	}

	var quest models.Quest
	if err := db.First(&quest, hint.QuestID).Error; err != nil {
		return nil, lookupErr("find hint quest", err)
	}
	hint.Quest = &quest
	return &hint, nil
}

func lookupErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return persistErr(op, err)
}
