package services

import (
	"context"
	"strings"

	"grimoire/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HintService struct {
	db     *gorm.DB
	stats  *StatsService
	logger *zap.Logger
}

func NewHintService(db *gorm.DB, stats *StatsService, logger *zap.Logger) *HintService {
	return &HintService{
		db:     db,
		stats:  stats,
		logger: logger.Named("hints"),
	}
}

type CreateHintRequest struct {
	QuestID  uint             `json:"quest_id" binding:"required"`
	HintText string           `json:"hint_text" binding:"required"`
	HintType *models.HintType `json:"hint_type"`
}

type RateHintRequest struct {
	Rating *int `json:"rating" binding:"required"`
}

func (s *HintService) ListHints(ctx context.Context, userID, questID uint) ([]models.Hint, error) {
	db := s.db.WithContext(ctx)
	if _, err := findOwnedQuest(db, userID, questID); err != nil {
		return nil, err
	}

	hints := []models.Hint{}
	if err := db.Where("quest_id = ?", questID).Order("created_at ASC").Order("id ASC").Find(&hints).Error; err != nil {
		return nil, persistErr("list hints", err)
	}
	return hints, nil
}

// CreateHint inserts the hint and bumps the quest's hints_used in the same
// transaction.
func (s *HintService) CreateHint(ctx context.Context, userID uint, req *CreateHintRequest) (*models.Hint, error) {
	text := strings.TrimSpace(req.HintText)
	if text == "" {
		return nil, invalid("hint_text", "is required")
	}
	hintType := models.HintTypeGeneral
	if req.HintType != nil {
		if !req.HintType.Valid() {
			return nil, invalid("hint_type", "unknown value %q", *req.HintType)
		}
		hintType = *req.HintType
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, persistErr("begin transaction", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	quest, err := findOwnedQuest(tx, userID, req.QuestID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	hint := models.Hint{
		QuestID:        quest.ID,
		HintText:       text,
		HintType:       hintType,
		FrequencyShown: 1,
	}
	if err := tx.Create(&hint).Error; err != nil {
		tx.Rollback()
		return nil, persistErr("create hint", err)
	}

	if err := tx.Model(quest).Update("hints_used", gorm.Expr("hints_used + 1")).Error; err != nil {
		tx.Rollback()
		return nil, persistErr("increment hints_used", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, persistErr("commit hint", err)
	}

	s.stats.Invalidate(ctx, quest.GameID)
	return &hint, nil
}

// RecordHintView is the single-hint read. Each call counts as one showing of
// the hint, so frequency_shown goes up by one before the hint is returned.
func (s *HintService) RecordHintView(ctx context.Context, userID, hintID uint) (*models.Hint, error) {
	var viewed *models.Hint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hint, err := findOwnedHint(tx, userID, hintID)
		if err != nil {
			return err
		}

		err = tx.Model(&models.Hint{}).Where("id = ?", hint.ID).
			UpdateColumn("frequency_shown", gorm.Expr("frequency_shown + 1")).Error
		if err != nil {
			return persistErr("record hint view", err)
		}

		var fresh models.Hint
		if err := tx.First(&fresh, hint.ID).Error; err != nil {
			return lookupErr("reload hint", err)
		}
		viewed = &fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	hintViewsTotal.Inc()
	return viewed, nil
}

func (s *HintService) RateHint(ctx context.Context, userID, hintID uint, rating int) (*models.Hint, error) {
	if rating < 1 || rating > 5 {
		return nil, invalid("rating", "must be between 1 and 5")
	}

	var rated *models.Hint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hint, err := findOwnedHint(tx, userID, hintID)
		if err != nil {
			return err
		}

		hint.HelpfulnessRating = &rating
		if err := tx.Model(&models.Hint{}).Where("id = ?", hint.ID).
			UpdateColumn("helpfulness_rating", rating).Error; err != nil {
			return persistErr("rate hint", err)
		}
		rated = hint
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.stats.Invalidate(ctx, rated.Quest.GameID)
	return rated, nil
}

// DeleteHint removes the hint and decrements hints_used, never below zero,
// in the same transaction.
func (s *HintService) DeleteHint(ctx context.Context, userID, hintID uint) error {
	var gameID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hint, err := findOwnedHint(tx, userID, hintID)
		if err != nil {
			return err
		}
		gameID = hint.Quest.GameID

		if err := tx.Delete(&models.Hint{}, hint.ID).Error; err != nil {
			return persistErr("delete hint", err)
		}

		err = tx.Model(&models.Quest{}).Where("id = ?", hint.QuestID).
			Update("hints_used", gorm.Expr("CASE WHEN hints_used > 0 THEN hints_used - 1 ELSE 0 END")).Error
		if err != nil {
			return persistErr("decrement hints_used", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.stats.Invalidate(ctx, gameID)
	return nil
}
