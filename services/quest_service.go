package services

import (
	"context"
	"strings"

	"grimoire/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultQuestDifficulty = 5

type QuestService struct {
	db     *gorm.DB
	stats  *StatsService
	logger *zap.Logger
}

func NewQuestService(db *gorm.DB, stats *StatsService, logger *zap.Logger) *QuestService {
	return &QuestService{
		db:     db,
		stats:  stats,
		logger: logger.Named("quests"),
	}
}

type CreateQuestRequest struct {
	GameID      uint   `json:"game_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Difficulty  *int   `json:"difficulty"`
}

// UpdateQuestRequest is a partial update. Setting status here is a plain
// field write; the start/complete actions are separate operations.
type UpdateQuestRequest struct {
	Name           *string             `json:"name"`
	Description    *string             `json:"description"`
	Status         *models.QuestStatus `json:"status"`
	Difficulty     *int                `json:"difficulty"`
	Notes          *string             `json:"notes"`
	CompletionTime *int                `json:"completion_time"`
}

type CompleteQuestRequest struct {
	CompletionTime *int `json:"completion_time"`
}

type QuestWithHintCount struct {
	models.Quest
	TotalHints int64 `json:"total_hints"`
}

func (s *QuestService) ListQuests(ctx context.Context, userID, gameID uint) ([]QuestWithHintCount, error) {
	db := s.db.WithContext(ctx)
	if _, err := findOwnedGame(db, userID, gameID); err != nil {
		return nil, err
	}

	var quests []models.Quest
	if err := db.Where("game_id = ?", gameID).Order("created_at DESC").Order("id DESC").Find(&quests).Error; err != nil {
		return nil, persistErr("list quests", err)
	}

	counts, err := s.hintCounts(db, quests)
	if err != nil {
		return nil, err
	}

	result := make([]QuestWithHintCount, len(quests))
	for i, q := range quests {
		result[i] = QuestWithHintCount{Quest: q, TotalHints: counts[q.ID]}
	}
	return result, nil
}

func (s *QuestService) GetQuest(ctx context.Context, userID, questID uint) (*QuestWithHintCount, error) {
	db := s.db.WithContext(ctx)
	quest, err := findOwnedQuest(db, userID, questID)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := db.Model(&models.Hint{}).Where("quest_id = ?", quest.ID).Count(&total).Error; err != nil {
		return nil, persistErr("count quest hints", err)
	}
	return &QuestWithHintCount{Quest: *quest, TotalHints: total}, nil
}

func (s *QuestService) CreateQuest(ctx context.Context, userID uint, req *CreateQuestRequest) (*models.Quest, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	difficulty := defaultQuestDifficulty
	if req.Difficulty != nil {
		if err := validateQuestDifficulty(*req.Difficulty); err != nil {
			return nil, err
		}
		difficulty = *req.Difficulty
	}

	db := s.db.WithContext(ctx)
	game, err := findOwnedGame(db, userID, req.GameID)
	if err != nil {
		return nil, err
	}

	quest := models.Quest{
		GameID:      game.ID,
		Name:        name,
		Description: req.Description,
		Status:      models.QuestStatusNotStarted,
		Difficulty:  difficulty,
	}
	if err := db.Create(&quest).Error; err != nil {
		return nil, persistErr("create quest", err)
	}

	s.stats.Invalidate(ctx, game.ID)
	return &quest, nil
}

func (s *QuestService) UpdateQuest(ctx context.Context, userID, questID uint, req *UpdateQuestRequest) (*models.Quest, error) {
	return s.mutateQuest(ctx, userID, questID, "update quest", func(quest *models.Quest) error {
		return applyQuestUpdate(quest, req)
	})
}

// StartQuest marks the quest in progress whatever its current status.
func (s *QuestService) StartQuest(ctx context.Context, userID, questID uint) (*models.Quest, error) {
	return s.mutateQuest(ctx, userID, questID, "start quest", func(quest *models.Quest) error {
		quest.Status = models.QuestStatusInProgress
		return nil
	})
}

// CompleteQuest marks the quest completed and stores completionTime as
// given; a nil completionTime clears any previous value.
func (s *QuestService) CompleteQuest(ctx context.Context, userID, questID uint, completionTime *int) (*models.Quest, error) {
	if completionTime != nil && *completionTime < 0 {
		return nil, invalid("completion_time", "must not be negative")
	}
	return s.mutateQuest(ctx, userID, questID, "complete quest", func(quest *models.Quest) error {
		quest.Status = models.QuestStatusCompleted
		quest.CompletionTime = completionTime
		return nil
	})
}

// DeleteQuest removes the quest and its hints.
func (s *QuestService) DeleteQuest(ctx context.Context, userID, questID uint) error {
	var gameID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quest, err := findOwnedQuest(tx, userID, questID)
		if err != nil {
			return err
		}
		gameID = quest.GameID

		if err := tx.Where("quest_id = ?", quest.ID).Delete(&models.Hint{}).Error; err != nil {
			return persistErr("delete quest hints", err)
		}
		if err := tx.Delete(quest).Error; err != nil {
			return persistErr("delete quest", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.stats.Invalidate(ctx, gameID)
	return nil
}

func (s *QuestService) mutateQuest(ctx context.Context, userID, questID uint, op string, apply func(*models.Quest) error) (*models.Quest, error) {
	var updated *models.Quest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quest, err := findOwnedQuest(tx, userID, questID)
		if err != nil {
			return err
		}
		if err := apply(quest); err != nil {
			return err
		}
		if err := tx.Save(quest).Error; err != nil {
			return persistErr(op, err)
		}
		updated = quest
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.stats.Invalidate(ctx, updated.GameID)
	return updated, nil
}

func (s *QuestService) hintCounts(db *gorm.DB, quests []models.Quest) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(quests))
	if len(quests) == 0 {
		return counts, nil
	}

	ids := make([]uint, len(quests))
	for i, q := range quests {
		ids[i] = q.ID
	}

	var rows []questHintCount
	err := db.Model(&models.Hint{}).
		Select("quest_id, COUNT(*) AS count").
		Where("quest_id IN ?", ids).
		Group("quest_id").
		Scan(&rows).Error
	if err != nil {
		return nil, persistErr("count hints", err)
	}
	for _, row := range rows {
		counts[row.QuestID] = row.Count
	}
	return counts, nil
}

type questHintCount struct {
	QuestID uint
	Count   int64
}

func applyQuestUpdate(quest *models.Quest, req *UpdateQuestRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return invalid("name", "must not be empty")
		}
		quest.Name = name
	}
	if req.Description != nil {
		quest.Description = *req.Description
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return invalid("status", "unknown value %q", *req.Status)
		}
		quest.Status = *req.Status
	}
	if req.Difficulty != nil {
		if err := validateQuestDifficulty(*req.Difficulty); err != nil {
			return err
		}
		quest.Difficulty = *req.Difficulty
	}
	if req.Notes != nil {
		quest.Notes = *req.Notes
	}
	if req.CompletionTime != nil {
		if *req.CompletionTime < 0 {
			return invalid("completion_time", "must not be negative")
		}
		quest.CompletionTime = req.CompletionTime
	}
	return nil
}

func validateQuestDifficulty(d int) error {
	if d < 1 || d > 10 {
		return invalid("difficulty", "must be between 1 and 10")
	}
	return nil
}
