// Package realtime pushes truck status changes to map viewers over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/evn/grubana/internal/models"
)

const (
	MessageSnapshot    = "snapshot"
	MessageTruckStatus = "truck_status"

	sendBuffer   = 64
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second

	snapshotTimeout = 5 * time.Second
)

// Snapshotter supplies the markers a new viewer starts from.
type Snapshotter interface {
	Map(ctx context.Context, now time.Time) ([]models.TruckView, error)
}

type Message struct {
	Type      string             `json:"type"`
	Truck     *models.TruckView  `json:"truck,omitempty"`
	Trucks    []models.TruckView `json:"trucks,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{ID: uuid.NewString(), Conn: conn, Send: make(chan []byte, sendBuffer)}
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	source Snapshotter
	clock  func() time.Time
	log    *zap.Logger
}

func NewHub(source Snapshotter, clock func() time.Time, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		source:     source,
		clock:      clock,
		log:        log.Named("realtime"),
	}
}

// Run owns the client set until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.Send)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.add(ctx, c)
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
			}
			h.mu.Unlock()
			h.log.Debug("viewer disconnected", zap.String("client_id", c.ID))
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.Send <- msg:
				default:
					// slow viewer; it reconnects and gets a fresh snapshot
					close(c.Send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register hands c to Run, which queues the current map snapshot and adds it to
// the hub in one step. Updates published while the snapshot is read are
// delivered after it.
func (h *Hub) Register(ctx context.Context, c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Send)
	case <-ctx.Done():
		close(c.Send)
	}
}

func (h *Hub) add(ctx context.Context, c *Client) {
	snapCtx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	now := h.clock()
	views, err := h.source.Map(snapCtx, now)
	if err != nil {
		h.log.Warn("⚠️ snapshot failed", zap.String("client_id", c.ID), zap.Error(err))
	} else if data, err := json.Marshal(Message{Type: MessageSnapshot, Trucks: views, Timestamp: now.UTC()}); err == nil {
		c.Send <- data
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.log.Debug("viewer connected", zap.String("client_id", c.ID))
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// PublishStatus fans a truck's new status out to every viewer. Hidden trucks are
// published too so viewers can drop the marker.
func (h *Hub) PublishStatus(view models.TruckView) {
	v := view
	data, err := json.Marshal(Message{Type: MessageTruckStatus, Truck: &v, Timestamp: h.clock().UTC()})
	if err != nil {
		h.log.Error("❌ encode status", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("⚠️ broadcast queue full, dropping update", zap.String("owner_id", view.OwnerID))
	}
}

// ClientCount is the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ReadPump drains the connection until the viewer goes away. Viewers never send data.
func (h *Hub) ReadPump(c *Client) {
	defer func() {
		h.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) WritePump(c *Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
