package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType 消息类型
type MessageType string

const (
	ResultMessage    MessageType = "result"
	StatusMessage    MessageType = "status"
	StatsMessage     MessageType = "stats"
	RankingMessage   MessageType = "ranking"
	InvalidMessage   MessageType = "invalid"
	BusyMessage      MessageType = "busy"
	HeartbeatMessage MessageType = "heartbeat"
	SnapshotMessage  MessageType = "snapshot"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 64
)

// Message 推送给看板的消息
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	ID        string          `json:"id"`
}

// Publisher 接收显示变更
type Publisher interface {
	Publish(t MessageType, data any) error
}

// Client WebSocket客户端
type Client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// HubStats 推送统计
type HubStats struct {
	ConnectedClients int       `json:"connected_clients"`
	MessagesSent     int64     `json:"messages_sent"`
	MessagesDropped  int64     `json:"messages_dropped"`
	StartTime        time.Time `json:"start_time"`
}

// Hub WebSocket中心，把显示变更广播给所有看板
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	greeting   func() any

	sent    atomic.Int64
	dropped atomic.Int64
	started time.Time
}

// NewHub 创建WebSocket中心；allowedOrigins为空或包含"*"时接受任意来源
func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.Named("hub"),
		started:    time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// SetGreeting 设置新连接收到的第一条snapshot消息
func (h *Hub) SetGreeting(fn func() any) {
	h.mu.Lock()
	h.greeting = fn
	h.mu.Unlock()
}

// Run 处理注册和广播，直到ctx结束
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.logger.Info("websocket hub stopped")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", zap.String("client", client.id), zap.Int("total", n))

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", zap.String("client", client.id), zap.Int("total", n))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 慢客户端直接断开
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// HandleWebSocket 处理WebSocket连接
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		id:   uuid.NewString(),
	}

	h.mu.RLock()
	greeting := h.greeting
	h.mu.RUnlock()
	if greeting != nil {
		if msg, err := encode(SnapshotMessage, greeting()); err == nil {
			client.send <- msg
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump(h.logger)
	go client.readPump(h)
}

// Publish 广播一条消息，队列满时丢弃
func (h *Hub) Publish(t MessageType, data any) error {
	msg, err := encode(t, data)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- msg:
		h.sent.Add(1)
	default:
		h.dropped.Add(1)
		h.logger.Warn("broadcast queue is full, dropping message", zap.String("type", string(t)))
	}
	return nil
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats 获取推送统计
func (h *Hub) Stats() HubStats {
	return HubStats{
		ConnectedClients: h.ClientCount(),
		MessagesSent:     h.sent.Load(),
		MessagesDropped:  h.dropped.Load(),
		StartTime:        h.started,
	}
}

func (c *Client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("websocket write failed", zap.String("client", c.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只用来发现断开；看板不发送指令
func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
	}
}

func encode(t MessageType, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return json.Marshal(Message{
		Type:      t,
		Timestamp: time.Now(),
		Data:      payload,
		ID:        uuid.NewString(),
	})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
