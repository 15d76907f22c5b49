package handlers

import (
	"errors"
	"io"
	"net/http"

	"grimoire/services"

	"github.com/gin-gonic/gin"
)

type QuestHandler struct {
	questService *services.QuestService
}

func NewQuestHandler(questService *services.QuestService) *QuestHandler {
	return &QuestHandler{questService: questService}
}

func (h *QuestHandler) ListQuests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	gameID, ok := parseIDParam(c, "gameId", "game")
	if !ok {
		return
	}

	quests, err := h.questService.ListQuests(c.Request.Context(), userID, gameID)
	if err != nil {
		respondError(c, "Game", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quests": quests})
}

func (h *QuestHandler) GetQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := parseIDParam(c, "id", "quest")
	if !ok {
		return
	}

	quest, err := h.questService.GetQuest(c.Request.Context(), userID, questID)
	if err != nil {
		respondError(c, "Quest", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quest": quest})
}

func (h *QuestHandler) CreateQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quest, err := h.questService.CreateQuest(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, "Game", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"quest": quest})
}

func (h *QuestHandler) UpdateQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := parseIDParam(c, "id", "quest")
	if !ok {
		return
	}

	var req services.UpdateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quest, err := h.questService.UpdateQuest(c.Request.Context(), userID, questID, &req)
	if err != nil {
		respondError(c, "Quest", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quest": quest})
}

func (h *QuestHandler) DeleteQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := parseIDParam(c, "id", "quest")
	if !ok {
		return
	}

	if err := h.questService.DeleteQuest(c.Request.Context(), userID, questID); err != nil {
		respondError(c, "Quest", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quest deleted successfully"})
}

func (h *QuestHandler) StartQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := parseIDParam(c, "id", "quest")
	if !ok {
		return
	}

	quest, err := h.questService.StartQuest(c.Request.Context(), userID, questID)
	if err != nil {
		respondError(c, "Quest", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quest": quest})
}

// CompleteQuest accepts an empty body; completion_time is optional.
func (h *QuestHandler) CompleteQuest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	questID, ok := parseIDParam(c, "id", "quest")
	if !ok {
		return
	}

	var req services.CompleteQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quest, err := h.questService.CompleteQuest(c.Request.Context(), userID, questID, req.CompletionTime)
	if err != nil {
		respondError(c, "Quest", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quest": quest})
}
