package handlers

import (
	"net/http"

	"grimoire/services"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	gameService  *services.GameService
	statsService *services.StatsService
	hub          Broadcaster
}

func NewGameHandler(gameService *services.GameService, statsService *services.StatsService, hub Broadcaster) *GameHandler {
	return &GameHandler{
		gameService:  gameService,
		statsService: statsService,
		hub:          hub,
	}
}

func (h *GameHandler) ListGames(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	games, err := h.gameService.ListGames(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "Game", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"games": games})
}

func (h *GameHandler) GetGame(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gameID, ok := parseIDParam(c, "id", "game")
	if !ok {
		return
	}

	game, err := h.gameService.GetGame(c.Request.Context(), userID, gameID)
	if err != nil {
		respondError(c, "Game", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": game})
}

func (h *GameHandler) CreateGame(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.gameService.CreateGame(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, "Game", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"game": game})
}

func (h *GameHandler) UpdateGame(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gameID, ok := parseIDParam(c, "id", "game")
	if !ok {
		return
	}

	var req services.UpdateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.gameService.UpdateGame(c.Request.Context(), userID, gameID, &req)
	if err != nil {
		respondError(c, "Game", err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToUser(userID, services.EventGameUpdated, game)
	}

	c.JSON(http.StatusOK, gin.H{"game": game})
}

func (h *GameHandler) DeleteGame(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gameID, ok := parseIDParam(c, "id", "game")
	if !ok {
		return
	}

	if err := h.gameService.DeleteGame(c.Request.Context(), userID, gameID); err != nil {
		respondError(c, "Game", err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToUser(userID, services.EventGameDeleted, gin.H{"gameId": gameID})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Game deleted successfully"})
}

func (h *GameHandler) GetGameStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gameID, ok := parseIDParam(c, "id", "game")
	if !ok {
		return
	}

	stats, err := h.statsService.GameStats(c.Request.Context(), userID, gameID)
	if err != nil {
		respondError(c, "Game", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
