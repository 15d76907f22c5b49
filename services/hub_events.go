package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	EventConnect         = "connect"
	EventConnected       = "connected"
	EventGameStart       = "game:start"
	EventGameStarted     = "game:started"
	EventGameEnd         = "game:end"
	EventGameEnded       = "game:ended"
	EventProgressUpdate  = "progress:update"
	EventProgressUpdated = "progress:updated"
	EventHintRequest     = "hint:request"
	EventHintGenerating  = "hint:generating"
	EventHintGenerated   = "hint:generated"
	EventAIAnalyze       = "ai:analyze"
	EventAIAnalyzing     = "ai:analyzing"
	EventAIResult        = "ai:result"
	EventSyncRequest     = "sync:request"
	EventSyncData        = "sync:data"
	EventGameUpdated     = "game:updated"
	EventGameDeleted     = "game:deleted"
	EventPing            = "ping"
	EventPong            = "pong"
	EventError           = "error"
)

type connectPayload struct {
	Token string `json:"token"`
}

type gamePayload struct {
	GameID uint `json:"gameId"`
}

type progressPayload struct {
	GameID   uint `json:"gameId"`
	Progress *int `json:"progress"`
	Playtime *int `json:"playtime"`
}

type analyzePayload struct {
	GameID     uint   `json:"gameId"`
	Screenshot string `json:"screenshot"`
}

type hintRequestPayload struct {
	QuestID uint   `json:"questId"`
	Context string `json:"context"`
}

// authenticate handles the first message of a session. On failure the client
// gets an error event and the connection is closed by the caller.
func (c *Client) authenticate(msg inboundMessage) bool {
	if msg.Type != EventConnect {
		c.reject("expected connect event")
		return false
	}

	var payload connectPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.reject("malformed connect payload")
		return false
	}

	userID, err := c.hub.tokens.ValidateToken(payload.Token)
	if err != nil {
		c.reject("invalid or expired token")
		return false
	}

	c.userID = userID
	if !c.hub.registerClient(c) {
		return false
	}
	c.registered = true
	hubEventsTotal.WithLabelValues(EventConnect, "ok").Inc()
	return true
}

func (c *Client) reject(reason string) {
	hubEventsTotal.WithLabelValues(EventConnect, "rejected").Inc()
	c.hub.logger.Warn("connection rejected", zap.String("client_id", c.id), zap.String("reason", reason))
	c.emitError(EventConnect, reason)
}

// handleMessage dispatches one event. Failures, panics included, are reported
// to this client only.
func (c *Client) handleMessage(msg inboundMessage) {
	label := msg.Type
	defer func() {
		if r := recover(); r != nil {
			c.hub.logger.Error("event handler panic",
				zap.String("client_id", c.id),
				zap.String("event", msg.Type),
				zap.Any("panic", r))
			hubEventsTotal.WithLabelValues(label, "panic").Inc()
			c.emitError(msg.Type, "internal error")
		}
	}()

	var err error
	switch msg.Type {
	case EventPing:
		c.emit(EventPong, "pong")
	case EventGameStart:
		err = c.handleGameStart(msg.Payload)
	case EventGameEnd:
		err = c.handleGameEnd(msg.Payload)
	case EventProgressUpdate:
		err = c.handleProgressUpdate(msg.Payload)
	case EventHintRequest:
		err = c.handleHintRequest(msg.Payload)
	case EventAIAnalyze:
		err = c.handleAnalyze(msg.Payload)
	case EventSyncRequest:
		err = c.handleSyncRequest()
	default:
		label = "unknown"
		err = fmt.Errorf("unknown event %q", msg.Type)
	}

	if err != nil {
		hubEventsTotal.WithLabelValues(label, "error").Inc()
		c.hub.logger.Info("event failed",
			zap.String("client_id", c.id),
			zap.Uint("user_id", c.userID),
			zap.String("event", msg.Type),
			zap.Error(err))
		c.emitError(msg.Type, eventErrorMessage(err))
		return
	}
	hubEventsTotal.WithLabelValues(label, "ok").Inc()
}

func (c *Client) handleGameStart(raw json.RawMessage) error {
	payload, err := decodeGamePayload(raw)
	if err != nil {
		return err
	}
	if _, err := c.hub.games.GetGame(c.hub.ctx, c.userID, payload.GameID); err != nil {
		return err
	}

	c.hub.join(c, gameRoom(payload.GameID))
	c.emit(EventGameStarted, map[string]interface{}{"gameId": payload.GameID})
	c.hub.logger.Info("game session started", zap.Uint("user_id", c.userID), zap.Uint("game_id", payload.GameID))
	return nil
}

func (c *Client) handleGameEnd(raw json.RawMessage) error {
	payload, err := decodeGamePayload(raw)
	if err != nil {
		return err
	}

	c.hub.leave(c, gameRoom(payload.GameID))
	c.emit(EventGameEnded, map[string]interface{}{"gameId": payload.GameID})
	c.hub.logger.Info("game session ended", zap.Uint("user_id", c.userID), zap.Uint("game_id", payload.GameID))
	return nil
}

// handleProgressUpdate persists the update and relays the original payload
// to the user's other sessions.
func (c *Client) handleProgressUpdate(raw json.RawMessage) error {
	var payload progressPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return invalid("payload", "malformed progress update")
	}
	if payload.GameID == 0 {
		return invalid("gameId", "is required")
	}

	if _, err := c.hub.games.UpdateProgress(c.hub.ctx, c.userID, payload.GameID, payload.Progress, payload.Playtime); err != nil {
		return err
	}

	c.hub.broadcastToRoom(userRoom(c.userID), c.hub.encodeMessage(EventProgressUpdated, raw), c)
	return nil
}

func (c *Client) handleHintRequest(raw json.RawMessage) error {
	var payload hintRequestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return invalid("payload", "malformed hint request")
	}
	if payload.QuestID == 0 {
		return invalid("questId", "is required")
	}

	quest, err := c.hub.quests.GetQuest(c.hub.ctx, c.userID, payload.QuestID)
	if err != nil {
		return err
	}

	c.emit(EventHintGenerating, map[string]interface{}{"questId": payload.QuestID})

	hint, err := c.hub.generator.GenerateHint(c.hub.ctx, &quest.Quest, payload.Context)
	if err != nil {
		return fmt.Errorf("generate hint: %w", err)
	}

	c.emit(EventHintGenerated, map[string]interface{}{
		"questId": payload.QuestID,
		"hint":    hint,
	})
	return nil
}

// handleAnalyze runs the analyzer for one of the user's games and answers the
// requesting session only.
func (c *Client) handleAnalyze(raw json.RawMessage) error {
	var payload analyzePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return invalid("payload", "malformed analyze request")
	}
	if payload.GameID == 0 {
		return invalid("gameId", "is required")
	}

	game, err := c.hub.games.GetGame(c.hub.ctx, c.userID, payload.GameID)
	if err != nil {
		return err
	}

	c.emit(EventAIAnalyzing, map[string]interface{}{"status": "processing"})

	result, err := c.hub.analyzer.Analyze(c.hub.ctx, &game.Game, payload.Screenshot)
	if err != nil {
		return fmt.Errorf("analyze screenshot: %w", err)
	}

	c.emit(EventAIResult, result)
	c.hub.logger.Info("analysis requested", zap.Uint("user_id", c.userID), zap.Uint("game_id", payload.GameID))
	return nil
}

func (c *Client) handleSyncRequest() error {
	games, err := c.hub.games.RecentGames(c.hub.ctx, c.userID, syncGameLimit)
	if err != nil {
		return err
	}

	c.emit(EventSyncData, map[string]interface{}{
		"games":     games,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
	return nil
}

func decodeGamePayload(raw json.RawMessage) (*gamePayload, error) {
	var payload gamePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, invalid("payload", "malformed game event")
	}
	if payload.GameID == 0 {
		return nil, invalid("gameId", "is required")
	}
	return &payload, nil
}

func eventErrorMessage(err error) string {
	if errors.Is(err, ErrNotFound) {
		return "not found"
	}
	return err.Error()
}
