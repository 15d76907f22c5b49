package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"grimoire/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
	syncGameLimit  = 10
)

// GameSyncer is the slice of the game service the hub needs.
type GameSyncer interface {
	GetGame(ctx context.Context, userID, gameID uint) (*GameWithCounts, error)
	UpdateProgress(ctx context.Context, userID, gameID uint, progress, playtime *int) (*models.Game, error)
	RecentGames(ctx context.Context, userID uint, limit int) ([]models.Game, error)
}

type QuestLookup interface {
	GetQuest(ctx context.Context, userID, questID uint) (*QuestWithHintCount, error)
}

type TokenVerifier interface {
	ValidateToken(token string) (uint, error)
}

type HintGenerator interface {
	GenerateHint(ctx context.Context, quest *models.Quest, hintContext string) (string, error)
}

// StubHintGenerator stands in until a real generator is wired.
type StubHintGenerator struct{}

func (StubHintGenerator) GenerateHint(ctx context.Context, quest *models.Quest, hintContext string) (string, error) {
	return "AI-generated hint would appear here", nil
}

type AnalysisResult struct {
	DetectedObjects  []string `json:"detectedObjects"`
	DetectedText     []string `json:"detectedText"`
	SuggestedActions []string `json:"suggestedActions"`
}

// Analyzer inspects a screenshot taken while playing a game.
type Analyzer interface {
	Analyze(ctx context.Context, game *models.Game, screenshot string) (*AnalysisResult, error)
}

// StubAnalyzer reports nothing detected.
type StubAnalyzer struct{}

func (StubAnalyzer) Analyze(ctx context.Context, game *models.Game, screenshot string) (*AnalysisResult, error) {
	return &AnalysisResult{
		DetectedObjects:  []string{},
		DetectedText:     []string{},
		SuggestedActions: []string{},
	}, nil
}

// Hub tracks authenticated websocket sessions and their rooms. Run owns
// registration; the maps are guarded by mutex for the readers.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	games     GameSyncer
	quests    QuestLookup
	tokens    TokenVerifier
	generator HintGenerator
	analyzer  Analyzer
	logger    *zap.Logger
}

type Client struct {
	hub    *Hub
	id     string
	socket *websocket.Conn
	send   chan []byte
	userID uint

	// registered is only read and written by the client's read pump.
	registered bool
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func NewHub(games GameSyncer, quests QuestLookup, tokens TokenVerifier, generator HintGenerator, analyzer Analyzer, logger *zap.Logger) *Hub {
	if generator == nil {
		generator = StubHintGenerator{}
	}
	if analyzer == nil {
		analyzer = StubAnalyzer{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		games:      games,
		quests:     quests,
		tokens:     tokens,
		generator:  generator,
		analyzer:   analyzer,
		logger:     logger.Named("hub"),
	}
}

func userRoom(userID uint) string { return fmt.Sprintf("user:%d", userID) }
func gameRoom(gameID uint) string { return fmt.Sprintf("game:%d", gameID) }

// Run processes registrations until ctx is cancelled, then closes every
// session.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	h.logger.Info("hub started")
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.joinLocked(client, userRoom(client.userID))
			total := len(h.clients)
			h.mutex.Unlock()
			hubConnections.Inc()

			h.logger.Info("client registered",
				zap.String("client_id", client.id),
				zap.Uint("user_id", client.userID),
				zap.Int("total_clients", total))

			h.sendTo(client, h.encodeMessage(EventConnected, map[string]interface{}{
				"message": "Connected to Grimoire server",
				"user_id": client.userID,
			}))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				h.removeLocked(client)
				hubConnections.Dec()
				h.logger.Info("client unregistered",
					zap.String("client_id", client.id),
					zap.Uint("user_id", client.userID),
					zap.Int("total_clients", len(h.clients)))
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) shutdown() {
	h.cancel()

	h.mutex.Lock()
	for client := range h.clients {
		h.removeLocked(client)
		hubConnections.Dec()
	}
	h.mutex.Unlock()

	close(h.done)
	h.logger.Info("hub stopped")
}

// removeLocked drops the client from every room and closes its send channel.
// Callers hold the write lock.
func (h *Hub) removeLocked(client *Client) {
	delete(h.clients, client)
	for room, members := range h.rooms {
		if members[client] {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(client.send)
}

func (h *Hub) joinLocked(client *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[client] = true
}

func (h *Hub) join(client *Client, room string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.clients[client] {
		h.joinLocked(client, room)
	}
}

func (h *Hub) leave(client *Client, room string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) registerClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// sendTo queues data for a registered client. A client whose buffer is full
// is dropped.
func (h *Hub) sendTo(client *Client, data []byte) {
	if data == nil {
		return
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.Warn("client send buffer full, dropping connection", zap.String("client_id", client.id))
		go h.unregisterClient(client)
	}
}

func (h *Hub) broadcastToRoom(room string, data []byte, except *Client) int {
	if data == nil {
		return 0
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	sent := 0
	for client := range h.rooms[room] {
		if client == except {
			continue
		}
		select {
		case client.send <- data:
			sent++
		default:
			h.logger.Warn("client send buffer full, dropping connection", zap.String("client_id", client.id))
			go h.unregisterClient(client)
		}
	}
	return sent
}

// BroadcastToUser sends an event to every session of the user.
func (h *Hub) BroadcastToUser(userID uint, messageType string, payload interface{}) {
	sent := h.broadcastToRoom(userRoom(userID), h.encodeMessage(messageType, payload), nil)
	h.logger.Debug("broadcast to user",
		zap.String("type", messageType),
		zap.Uint("user_id", userID),
		zap.Int("recipients", sent))
}

// BroadcastToGame sends an event to every session that started the game.
func (h *Hub) BroadcastToGame(gameID uint, messageType string, payload interface{}) {
	sent := h.broadcastToRoom(gameRoom(gameID), h.encodeMessage(messageType, payload), nil)
	h.logger.Debug("broadcast to game",
		zap.String("type", messageType),
		zap.Uint("game_id", gameID),
		zap.Int("recipients", sent))
}

// SessionCount reports how many live sessions a user has.
func (h *Hub) SessionCount(userID uint) int {
	return h.RoomSize(userRoom(userID))
}

func (h *Hub) RoomSize(room string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[room])
}

// ServeConn takes ownership of an upgraded connection. The session stays
// unauthenticated until its first message, which must be a connect event.
func (h *Hub) ServeConn(conn *websocket.Conn) *Client {
	client := &Client{
		hub:    h,
		id:     uuid.NewString(),
		socket: conn,
		send:   make(chan []byte, sendBufferSize),
	}

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) encodeMessage(messageType string, payload interface{}) []byte {
	data, err := json.Marshal(Message{Type: messageType, Payload: payload})
	if err != nil {
		h.logger.Error("failed to marshal message", zap.String("type", messageType), zap.Error(err))
		return nil
	}
	return data
}

func (c *Client) readPump() {
	defer func() {
		if c.registered {
			c.hub.unregisterClient(c)
		} else {
			close(c.send)
		}
	}()

	c.socket.SetReadLimit(maxMessageSize)
	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if !c.registered {
				c.reject("malformed connect message")
				return
			}
			c.emitError("", "malformed message")
			continue
		}

		if !c.registered {
			if !c.authenticate(msg) {
				return
			}
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.socket.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// emit is only called from the read pump.
func (c *Client) emit(messageType string, payload interface{}) {
	data := c.hub.encodeMessage(messageType, payload)
	if data == nil {
		return
	}
	if c.registered {
		c.hub.sendTo(c, data)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) emitError(event, message string) {
	c.emit(EventError, map[string]interface{}{
		"event":   event,
		"message": message,
	})
}
