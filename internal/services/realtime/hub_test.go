package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evn/grubana/internal/models"
)

var at = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// stubSource serves a fixed snapshot and runs onMap while it is being read.
type stubSource struct {
	views []models.TruckView
	err   error
	onMap func()
}

func (s *stubSource) Map(context.Context, time.Time) ([]models.TruckView, error) {
	if s.onMap != nil {
		s.onMap()
	}
	return s.views, s.err
}

func startHub(t *testing.T, src *stubSource) *Hub {
	t.Helper()
	h := NewHub(src, func() time.Time { return at }, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message")
		return Message{}
	}
}

func newTestClient() *Client {
	return &Client{ID: "viewer", Send: make(chan []byte, sendBuffer)}
}

func TestRegister_SnapshotThenUpdates(t *testing.T) {
	src := &stubSource{views: []models.TruckView{{OwnerID: "a"}}}
	h := startHub(t, src)
	c := newTestClient()

	h.Register(context.Background(), c)
	msg := receive(t, c)
	assert.Equal(t, MessageSnapshot, msg.Type)
	require.Len(t, msg.Trucks, 1)

	h.PublishStatus(models.TruckView{OwnerID: "b"})
	msg = receive(t, c)
	assert.Equal(t, MessageTruckStatus, msg.Type)
	assert.Equal(t, "b", msg.Truck.OwnerID)
}

func TestRegister_UpdateDuringSnapshotIsDelivered(t *testing.T) {
	src := &stubSource{}
	h := startHub(t, src)
	src.onMap = func() { h.PublishStatus(models.TruckView{OwnerID: "late"}) }
	c := newTestClient()

	h.Register(context.Background(), c)
	assert.Equal(t, MessageSnapshot, receive(t, c).Type)

	msg := receive(t, c)
	assert.Equal(t, MessageTruckStatus, msg.Type)
	assert.Equal(t, "late", msg.Truck.OwnerID)
}

func TestRegister_SnapshotFailureStillRegisters(t *testing.T) {
	h := startHub(t, &stubSource{err: errors.New("unavailable")})
	c := newTestClient()

	h.Register(context.Background(), c)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.PublishStatus(models.TruckView{OwnerID: "a"})
	assert.Equal(t, MessageTruckStatus, receive(t, c).Type)
}

func TestRegister_AfterShutdownClosesClient(t *testing.T) {
	h := NewHub(&stubSource{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)

	c := newTestClient()
	h.Register(context.Background(), c)
	_, ok := <-c.Send
	assert.False(t, ok)
}
