package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
	"video_course_backend/pkg/logger"
	"video_course_backend/pkg/monitoring"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

const (
	MsgPlaybackAck      = "playerProgressAck"
	MsgLessonCompleted  = "lessonCompleted"
	MsgPlaybackRejected = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type PlaybackClient struct {
	Hub     *PlaybackHub
	Conn    *websocket.Conn
	Send    chan []byte
	Actor   Actor
	Limiter *rate.Limiter
	// closed 由 Hub.mu 保护，置位后不再向 Send 写入
	closed bool
}

func (c *PlaybackClient) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.String("userId", c.Actor.UserID))
			}
			break
		}

		// 播放器大约每秒上报一次，超出部分直接丢弃
		if !c.Limiter.Allow() {
			continue
		}

		var ev PlaybackEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			continue
		}
		c.Hub.handleEvent(c, ev)
	}
}

func (c *PlaybackClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// PlaybackHub 管理播放进度 WebSocket 连接，同一用户可以有多个连接
type PlaybackHub struct {
	Playback   *PlaybackService
	clients    map[string]map[*PlaybackClient]bool
	mu         sync.RWMutex
	register   chan *PlaybackClient
	unregister chan *PlaybackClient
	done       chan struct{}
	stopOnce   sync.Once
	stopped    bool
}

func NewPlaybackHub(playback *PlaybackService) *PlaybackHub {
	return &PlaybackHub{
		Playback:   playback,
		clients:    make(map[string]map[*PlaybackClient]bool),
		register:   make(chan *PlaybackClient),
		unregister: make(chan *PlaybackClient),
		done:       make(chan struct{}),
	}
}

func (h *PlaybackHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.stopped {
				client.closeSend()
				h.mu.Unlock()
				continue
			}
			set, ok := h.clients[client.Actor.UserID]
			if !ok {
				set = make(map[*PlaybackClient]bool)
				h.clients[client.Actor.UserID] = set
			}
			set[client] = true
			h.mu.Unlock()
			monitoring.PlaybackConnections.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[client.Actor.UserID]; ok && set[client] {
				delete(set, client)
				client.closeSend()
				if len(set) == 0 {
					delete(h.clients, client.Actor.UserID)
				}
				monitoring.PlaybackConnections.Dec()
			}
			h.mu.Unlock()

		case <-h.done:
			return
		}
	}
}

func (h *PlaybackHub) handleEvent(c *PlaybackClient, ev PlaybackEvent) {
	st, err := h.Playback.ReportPosition(context.Background(), c.Actor, ev, "websocket")
	if err != nil {
		c.push(WSMessage{Type: MsgPlaybackRejected, Data: map[string]string{"message": err.Error()}})
		return
	}
	c.push(WSMessage{Type: MsgPlaybackAck, Data: st})
}

func (c *PlaybackClient) push(msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	c.trySend(payload)
}

// trySend 调用方需持有 Hub.mu
func (c *PlaybackClient) trySend(payload []byte) {
	if c.closed {
		return
	}
	select {
	case c.Send <- payload:
	default:
	}
}

// closeSend 调用方需持有 Hub.mu 写锁
func (c *PlaybackClient) closeSend() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// PushToUser 推送给该用户的全部连接，例如在其他标签页中标记完成后同步状态
func (h *PlaybackHub) PushToUser(userID string, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("Failed to encode websocket message", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		client.trySend(payload)
	}
}

func (h *PlaybackHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Stop 关闭所有连接
func (h *PlaybackHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		h.stopped = true
		closed := 0
		for userID, set := range h.clients {
			for client := range set {
				client.closeSend()
				closed++
			}
			delete(h.clients, userID)
		}
		h.mu.Unlock()

		monitoring.PlaybackConnections.Set(0)
		logger.Log.Info("PlaybackHub stopped", zap.Int("closedConnections", closed))
	})
}

func ServeWs(hub *PlaybackHub, w http.ResponseWriter, r *http.Request, actor Actor) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.String("userId", actor.UserID))
		return
	}
	client := &PlaybackClient{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 64),
		Actor:   actor,
		Limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
