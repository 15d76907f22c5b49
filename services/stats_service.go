package services

import (
	"context"

	"grimoire/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QuestCounts struct {
	TotalQuests     int64 `json:"total_quests"`
	CompletedQuests int64 `json:"completed_quests"`
}

type GameStats struct {
	Playtime int `json:"playtime"`
	Progress int `json:"progress"`
	QuestCounts
}

type HintStats struct {
	TotalHints    int64 `json:"total_hints"`
	GeneralHints  int64 `json:"general_hints"`
	SpecificHints int64 `json:"specific_hints"`
	SolutionHints int64 `json:"solution_hints"`
	// AvgRating is nil when no hint under the game has been rated.
	AvgRating *float64 `json:"avg_rating"`
}

type hintTypeCount struct {
	HintType models.HintType
	Count    int64
}

type questCountRow struct {
	GameID    uint
	Total     int64
	Completed int64
}

// StatsService computes read-side aggregates. It keeps no state besides the
// optional cache, which writers invalidate per game.
type StatsService struct {
	db     *gorm.DB
	cache  StatsCache
	logger *zap.Logger
}

func NewStatsService(db *gorm.DB, cache StatsCache, logger *zap.Logger) *StatsService {
	return &StatsService{
		db:     db,
		cache:  cacheOrNoop(cache),
		logger: logger.Named("stats"),
	}
}

func (s *StatsService) GameStats(ctx context.Context, userID, gameID uint) (*GameStats, error) {
	game, err := findOwnedGame(s.db.WithContext(ctx), userID, gameID)
	if err != nil {
		return nil, err
	}

	counts, err := s.questCounts(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	return &GameStats{
		Playtime:    game.Playtime,
		Progress:    game.Progress,
		QuestCounts: counts,
	}, nil
}

func (s *StatsService) HintStats(ctx context.Context, userID, gameID uint) (*HintStats, error) {
	db := s.db.WithContext(ctx)
	if _, err := findOwnedGame(db, userID, gameID); err != nil {
		return nil, err
	}

	var stats HintStats
	if s.cache.Get(ctx, gameID, statsKindHints, &stats) {
		return &stats, nil
	}
	stats = HintStats{}
	gen, cacheable := s.cache.Generation(ctx, gameID)

	var rows []hintTypeCount
	err := db.Model(&models.Hint{}).
		Select("hints.hint_type AS hint_type, COUNT(*) AS count").
		Joins("JOIN quests ON quests.id = hints.quest_id").
		Where("quests.game_id = ?", gameID).
		Group("hints.hint_type").
		Scan(&rows).Error
	if err != nil {
		return nil, persistErr("count hints", err)
	}

	for _, row := range rows {
		stats.TotalHints += row.Count
		switch row.HintType {
		case models.HintTypeGeneral:
			stats.GeneralHints = row.Count
		case models.HintTypeSpecific:
			stats.SpecificHints = row.Count
		case models.HintTypeSolution:
			stats.SolutionHints = row.Count
		}
	}

	var ratings []int
	err = db.Model(&models.Hint{}).
		Joins("JOIN quests ON quests.id = hints.quest_id").
		Where("quests.game_id = ? AND hints.helpfulness_rating IS NOT NULL", gameID).
		Pluck("hints.helpfulness_rating", &ratings).Error
	if err != nil {
		return nil, persistErr("load hint ratings", err)
	}
	stats.AvgRating = averageRating(ratings)

	if cacheable {
		s.cache.Set(ctx, gameID, statsKindHints, gen, stats)
	}
	return &stats, nil
}

// QuestCountsFor returns counts for every listed game; games without quests
// map to zero counts.
func (s *StatsService) QuestCountsFor(ctx context.Context, gameIDs []uint) (map[uint]QuestCounts, error) {
	result := make(map[uint]QuestCounts, len(gameIDs))
	if len(gameIDs) == 0 {
		return result, nil
	}

	var rows []questCountRow
	err := s.db.WithContext(ctx).Model(&models.Quest{}).
		Select("game_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed", string(models.QuestStatusCompleted)).
		Where("game_id IN ?", gameIDs).
		Group("game_id").
		Scan(&rows).Error
	if err != nil {
		return nil, persistErr("count quests", err)
	}

	for _, id := range gameIDs {
		result[id] = QuestCounts{}
	}
	for _, row := range rows {
		result[row.GameID] = QuestCounts{TotalQuests: row.Total, CompletedQuests: row.Completed}
	}
	return result, nil
}

func (s *StatsService) questCounts(ctx context.Context, gameID uint) (QuestCounts, error) {
	var counts QuestCounts
	if s.cache.Get(ctx, gameID, statsKindQuests, &counts) {
		return counts, nil
	}
	gen, cacheable := s.cache.Generation(ctx, gameID)

	all, err := s.QuestCountsFor(ctx, []uint{gameID})
	if err != nil {
		return QuestCounts{}, err
	}
	counts = all[gameID]
	if cacheable {
		s.cache.Set(ctx, gameID, statsKindQuests, gen, counts)
	}
	return counts, nil
}

// Invalidate drops cached aggregates for a game and moves it to a new
// generation. Writers call it after commit.
func (s *StatsService) Invalidate(ctx context.Context, gameID uint) {
	s.cache.Invalidate(ctx, gameID)
}

func averageRating(ratings []int) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	return &avg
}
