package handlers

import (
	"net/http"

	"grimoire/services"

	"github.com/gin-gonic/gin"
)

type HintHandler struct {
	hintService  *services.HintService
	statsService *services.StatsService
}

func NewHintHandler(hintService *services.HintService, statsService *services.StatsService) *HintHandler {
	return &HintHandler{
		hintService:  hintService,
		statsService: statsService,
	}
}

func (h *HintHandler) ListHints(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := parseIDParam(c, "questId", "quest")
	if !ok {
		return
	}

	hints, err := h.hintService.ListHints(c.Request.Context(), userID, questID)
	if err != nil {
		respondError(c, "Quest", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hints": hints})
}

func (h *HintHandler) CreateHint(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateHintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hint, err := h.hintService.CreateHint(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, "Quest", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"hint": hint})
}

// GetHint counts as a view: every call raises frequency_shown by one.
func (h *HintHandler) GetHint(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	hintID, ok := parseIDParam(c, "id", "hint")
	if !ok {
		return
	}

	hint, err := h.hintService.RecordHintView(c.Request.Context(), userID, hintID)
	if err != nil {
		respondError(c, "Hint", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hint": hint})
}

func (h *HintHandler) RateHint(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	hintID, ok := parseIDParam(c, "id", "hint")
	if !ok {
		return
	}

	var req services.RateHintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rating must be between 1 and 5"})
		return
	}

	hint, err := h.hintService.RateHint(c.Request.Context(), userID, hintID, *req.Rating)
	if err != nil {
		respondError(c, "Hint", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hint": hint})
}

func (h *HintHandler) DeleteHint(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	hintID, ok := parseIDParam(c, "id", "hint")
	if !ok {
		return
	}

	if err := h.hintService.DeleteHint(c.Request.Context(), userID, hintID); err != nil {
		respondError(c, "Hint", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Hint deleted successfully"})
}

func (h *HintHandler) GetHintStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gameID, ok := parseIDParam(c, "gameId", "game")
	if !ok {
		return
	}

	stats, err := h.statsService.HintStats(c.Request.Context(), userID, gameID)
	if err != nil {
		respondError(c, "Game", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
