package services

import (
	"context"
	"strings"
	"time"

	"grimoire/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GameService struct {
	db     *gorm.DB
	stats  *StatsService
	logger *zap.Logger
	now    func() time.Time
}

func NewGameService(db *gorm.DB, stats *StatsService, logger *zap.Logger) *GameService {
	return &GameService{
		db:     db,
		stats:  stats,
		logger: logger.Named("games"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type CreateGameRequest struct {
	Name       string             `json:"name" binding:"required"`
	Difficulty string             `json:"difficulty" binding:"required"`
	Genre      string             `json:"genre"`
	CoverImage *string            `json:"cover_image"`
	Status     *models.GameStatus `json:"status"`
}

// UpdateGameRequest is a partial update; nil fields are left untouched.
type UpdateGameRequest struct {
	Name       *string            `json:"name"`
	Progress   *int               `json:"progress"`
	Playtime   *int               `json:"playtime"`
	Status     *models.GameStatus `json:"status"`
	Difficulty *string            `json:"difficulty"`
	Genre      *string            `json:"genre"`
	CoverImage *string            `json:"cover_image"`
}

type GameWithCounts struct {
	models.Game
	QuestCounts
}

func (s *GameService) ListGames(ctx context.Context, userID uint) ([]GameWithCounts, error) {
	var games []models.Game
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&games).Error
	if err != nil {
		return nil, persistErr("list games", err)
	}

	ids := make([]uint, len(games))
	for i, g := range games {
		ids[i] = g.ID
	}
	counts, err := s.stats.QuestCountsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]GameWithCounts, len(games))
	for i, g := range games {
		result[i] = GameWithCounts{Game: g, QuestCounts: counts[g.ID]}
	}
	return result, nil
}

func (s *GameService) GetGame(ctx context.Context, userID, gameID uint) (*GameWithCounts, error) {
	game, err := findOwnedGame(s.db.WithContext(ctx), userID, gameID)
	if err != nil {
		return nil, err
	}

	counts, err := s.stats.questCounts(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	return &GameWithCounts{Game: *game, QuestCounts: counts}, nil
}

func (s *GameService) CreateGame(ctx context.Context, userID uint, req *CreateGameRequest) (*models.Game, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	difficulty := strings.TrimSpace(req.Difficulty)
	if difficulty == "" {
		return nil, invalid("difficulty", "is required")
	}

	now := s.now()
	game := models.Game{
		UserID:     userID,
		Name:       name,
		Difficulty: difficulty,
		Genre:      req.Genre,
		Status:     models.GameStatusPlaying,
		CoverImage: req.CoverImage,
		StartedAt:  now,
	}
	if game.Genre == "" {
		game.Genre = "Unknown"
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, invalid("status", "unknown value %q", *req.Status)
		}
		game.Status = *req.Status
		if game.Status == models.GameStatusCompleted {
			game.CompletedAt = &now
		}
	}

	if err := s.db.WithContext(ctx).Create(&game).Error; err != nil {
		return nil, persistErr("create game", err)
	}

	s.logger.Info("game created", zap.Uint("user_id", userID), zap.Uint("game_id", game.ID))
	return &game, nil
}

// UpdateGame applies a partial update. Moving to status "completed" stamps
// completed_at; no other change touches it and it is never cleared.
func (s *GameService) UpdateGame(ctx context.Context, userID, gameID uint, req *UpdateGameRequest) (*models.Game, error) {
	var updated *models.Game
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		game, err := findOwnedGame(tx, userID, gameID)
		if err != nil {
			return err
		}

		if err := applyGameUpdate(game, req, s.now()); err != nil {
			return err
		}

		if err := tx.Save(game).Error; err != nil {
			return persistErr("update game", err)
		}
		updated = game
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.stats.Invalidate(ctx, gameID)
	return updated, nil
}

// UpdateProgress is the realtime entry point and shares UpdateGame's rules.
func (s *GameService) UpdateProgress(ctx context.Context, userID, gameID uint, progress, playtime *int) (*models.Game, error) {
	return s.UpdateGame(ctx, userID, gameID, &UpdateGameRequest{
		Progress: progress,
		Playtime: playtime,
	})
}

// DeleteGame removes the game together with its quests and their hints.
func (s *GameService) DeleteGame(ctx context.Context, userID, gameID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		game, err := findOwnedGame(tx, userID, gameID)
		if err != nil {
			return err
		}

		var questIDs []uint
		if err := tx.Model(&models.Quest{}).Where("game_id = ?", game.ID).Pluck("id", &questIDs).Error; err != nil {
			return persistErr("load game quests", err)
		}

		if len(questIDs) > 0 {
			if err := tx.Where("quest_id IN ?", questIDs).Delete(&models.Hint{}).Error; err != nil {
				return persistErr("delete game hints", err)
			}
			if err := tx.Where("game_id = ?", game.ID).Delete(&models.Quest{}).Error; err != nil {
				return persistErr("delete game quests", err)
			}
		}

		if err := tx.Delete(game).Error; err != nil {
			return persistErr("delete game", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.stats.Invalidate(ctx, gameID)
	s.logger.Info("game deleted", zap.Uint("user_id", userID), zap.Uint("game_id", gameID))
	return nil
}

// RecentGames returns the user's most recently updated games.
func (s *GameService) RecentGames(ctx context.Context, userID uint, limit int) ([]models.Game, error) {
	games := []models.Game{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&games).Error
	if err != nil {
		return nil, persistErr("list recent games", err)
	}
	return games, nil
}

func applyGameUpdate(game *models.Game, req *UpdateGameRequest, now time.Time) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return invalid("name", "must not be empty")
		}
		game.Name = name
	}
	if req.Progress != nil {
		if *req.Progress < 0 || *req.Progress > 100 {
			return invalid("progress", "must be between 0 and 100")
		}
		game.Progress = *req.Progress
	}
	if req.Playtime != nil {
		if *req.Playtime < game.Playtime {
			return invalid("playtime", "cannot decrease (current %d, got %d)", game.Playtime, *req.Playtime)
		}
		game.Playtime = *req.Playtime
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return invalid("status", "unknown value %q", *req.Status)
		}
		game.Status = *req.Status
		if game.Status == models.GameStatusCompleted {
			completedAt := now
			game.CompletedAt = &completedAt
		}
	}
	if req.Difficulty != nil {
		difficulty := strings.TrimSpace(*req.Difficulty)
		if difficulty == "" {
			return invalid("difficulty", "must not be empty")
		}
		game.Difficulty = difficulty
	}
	if req.Genre != nil {
		game.Genre = *req.Genre
	}
	if req.CoverImage != nil {
		game.CoverImage = req.CoverImage
	}
	return nil
}
