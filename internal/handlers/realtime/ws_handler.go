package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	realtimeService "github.com/evn/grubana/internal/services/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type MapFeedHandler struct {
	hub *realtimeService.Hub
	log *zap.Logger
}

func NewMapFeedHandler(hub *realtimeService.Hub, log *zap.Logger) *MapFeedHandler {
	return &MapFeedHandler{hub: hub, log: log}
}

// ServeWS upgrades a map viewer and streams a snapshot followed by status updates.
func (h *MapFeedHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("⚠️ websocket upgrade failed", zap.Error(err))
		return
	}

	client := realtimeService.NewClient(conn)
	h.hub.Register(r.Context(), client)

	go h.hub.WritePump(client)
	go h.hub.ReadPump(client)
}
