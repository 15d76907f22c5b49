package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"grimoire/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db     *gorm.DB
	stats  *StatsService
	games  *GameService
	quests *QuestService
	hints  *HintService
	auth   *AuthService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every connection to :memory: gets its own database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Game{}, &models.Quest{}, &models.Hint{}))
	return db
}

func newTestEnv(t *testing.T, cache StatsCache) *testEnv {
	t.Helper()

	db := newTestDB(t)
	log := zap.NewNop()
	stats := NewStatsService(db, cache, log)
	return &testEnv{
		db:     db,
		stats:  stats,
		games:  NewGameService(db, stats, log),
		quests: NewQuestService(db, stats, log),
		hints:  NewHintService(db, stats, log),
		auth:   NewAuthService(db, "test-secret", time.Hour, log),
	}
}

func (e *testEnv) createUser(t *testing.T, name string) uint {
	t.Helper()
	user := models.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, e.db.Create(&user).Error)
	return user.ID
}

func (e *testEnv) createGame(t *testing.T, userID uint, name string) *models.Game {
	t.Helper()
	game, err := e.games.CreateGame(context.Background(), userID, &CreateGameRequest{Name: name, Difficulty: "normal"})
	require.NoError(t, err)
	return game
}

func (e *testEnv) createQuest(t *testing.T, userID, gameID uint, name string) *models.Quest {
	t.Helper()
	quest, err := e.quests.CreateQuest(context.Background(), userID, &CreateQuestRequest{GameID: gameID, Name: name})
	require.NoError(t, err)
	return quest
}

func (e *testEnv) createHint(t *testing.T, userID, questID uint, hintType models.HintType) *models.Hint {
	t.Helper()
	hint, err := e.hints.CreateHint(context.Background(), userID, &CreateHintRequest{
		QuestID:  questID,
		HintText: "look behind the waterfall",
		HintType: &hintType,
	})
	require.NoError(t, err)
	return hint
}

func (e *testEnv) reloadQuest(t *testing.T, id uint) models.Quest {
	t.Helper()
	var quest models.Quest
	require.NoError(t, e.db.First(&quest, id).Error)
	return quest
}

// memoryStatsCache stores JSON and compares generations like the Redis
// cache does, and records invalidations.
type memoryStatsCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	generations map[uint]int64
	invalidated []uint
}

func newMemoryStatsCache() *memoryStatsCache {
	return &memoryStatsCache{
		entries:     make(map[string][]byte),
		generations: make(map[uint]int64),
	}
}

func (c *memoryStatsCache) Generation(_ context.Context, gameID uint) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[gameID], true
}

func (c *memoryStatsCache) Get(_ context.Context, gameID uint, kind string, dest interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[statsKey(gameID, kind)]
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (c *memoryStatsCache) Set(_ context.Context, gameID uint, kind string, gen int64, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[gameID] != gen {
		return
	}
	data, err := json.Marshal(value)
	if err == nil {
		c.entries[statsKey(gameID, kind)] = data
	}
}

func (c *memoryStatsCache) Invalidate(_ context.Context, gameID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[gameID]++
	delete(c.entries, statsKey(gameID, statsKindQuests))
	delete(c.entries, statsKey(gameID, statsKindHints))
	c.invalidated = append(c.invalidated, gameID)
}

// interleavingStatsCache runs beforeSet once, between a reader's query and
// its cache write.
type interleavingStatsCache struct {
	*memoryStatsCache
	beforeSet func()
}

func (c *interleavingStatsCache) Set(ctx context.Context, gameID uint, kind string, gen int64, value interface{}) {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.memoryStatsCache.Set(ctx, gameID, kind, gen, value)
}

// failWrites makes every update and delete on table fail from now on.
func failWrites(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	fail := func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			tx.AddError(assert.AnError)
		}
	}
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_update_"+table, fail))
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:fail_delete_"+table, fail))
}

func (e *testEnv) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
