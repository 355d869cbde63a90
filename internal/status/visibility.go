// Package status decides whether a truck is shown on the map, whether it is open,
// and whether it accepts pre-orders. Everything here is pure and safe for concurrent use.
package status

import (
	"time"

	"github.com/evn/grubana/internal/models"
)

const (
	DefaultGracePeriod = 15 * time.Minute
	DefaultMaxSession  = 8 * time.Hour
)

// Policy holds the liveness windows.
type Policy struct {
	// GracePeriod keeps a truck visible after its last heartbeat.
	GracePeriod time.Duration
	// MaxSession keeps a truck visible from session start even without heartbeats.
	MaxSession time.Duration
}

func DefaultPolicy() Policy {
	return Policy{GracePeriod: DefaultGracePeriod, MaxSession: DefaultMaxSession}
}

// SessionActive applies the heartbeat and session-window rules, ignoring the visible flag.
// A zero timestamp never satisfies its rule.
func (p Policy) SessionActive(rec models.TruckLocationRecord, now time.Time) bool {
	recentlyActive := !rec.LastActive.IsZero() && now.Sub(rec.LastActive) <= p.GracePeriod
	withinSessionWindow := !rec.SessionStartTime.IsZero() && now.Sub(rec.SessionStartTime) < p.MaxSession
	return recentlyActive || withinSessionWindow
}

// IsDisplayable reports whether the truck's location should be shown at now.
// An owner opt-out (Visible=false) always wins.
func (p Policy) IsDisplayable(rec models.TruckLocationRecord, now time.Time) bool {
	if !rec.Visible {
		return false
	}
	return p.SessionActive(rec, now)
}
