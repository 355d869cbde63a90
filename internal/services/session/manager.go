// Package session is the write side of truck liveness: it maintains the
// lastActive, sessionStartTime and isLive fields the status engine reads.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evn/grubana/internal/models"
	"github.com/evn/grubana/internal/repositories"
	"github.com/evn/grubana/internal/status"
)

// ErrUnknownOwner is returned by Heartbeat when the owner never went live.
var ErrUnknownOwner = fmt.Errorf("heartbeat without a session: %w", repositories.ErrNotFound)

// ChangeNotifier is told about every successful write so map viewers can be refreshed.
type ChangeNotifier interface {
	NotifyChanged(ctx context.Context, ownerID string, now time.Time)
}

type Manager struct {
	store    repositories.LocationStore
	policy   status.Policy
	notifier ChangeNotifier
	log      *zap.Logger
}

func NewManager(store repositories.LocationStore, policy status.Policy, notifier ChangeNotifier, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, policy: policy, notifier: notifier, log: log.Named("session")}
}

// GoLive starts a new session unless the previous one is still inside its
// grace period or session window, in which case only lastActive moves.
// It reports whether a new session was started.
func (m *Manager) GoLive(ctx context.Context, ownerID string, now time.Time, coords *models.Coordinates) (bool, error) {
	rec, err := m.store.GetLocation(ctx, ownerID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		m.log.Error("❌ go live: read failed", zap.String("owner_id", ownerID), zap.Error(err))
		return false, fmt.Errorf("go live %q: %w", ownerID, err)
	}

	newSession := rec == nil || !m.policy.SessionActive(*rec, now)

	update := models.LocationUpdate{
		IsLive:     models.Bool(true),
		LastActive: models.Time(now),
	}.WithCoordinates(coords)
	if newSession {
		update.SessionStartTime = models.Time(now)
	}

	if err := m.store.UpsertLocation(ctx, ownerID, update); err != nil {
		m.log.Error("❌ go live: write failed", zap.String("owner_id", ownerID), zap.Error(err))
		return false, fmt.Errorf("go live %q: %w", ownerID, err)
	}

	m.log.Info("✅ truck live",
		zap.String("owner_id", ownerID),
		zap.Bool("new_session", newSession),
	)
	m.notify(ctx, ownerID, now)
	return newSession, nil
}

// Heartbeat refreshes lastActive (and the position when given).
func (m *Manager) Heartbeat(ctx context.Context, ownerID string, now time.Time, coords *models.Coordinates) error {
	if _, err := m.store.GetLocation(ctx, ownerID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			m.log.Warn("⚠️ heartbeat for unknown owner", zap.String("owner_id", ownerID))
			return ErrUnknownOwner
		}
		m.log.Error("❌ heartbeat: read failed", zap.String("owner_id", ownerID), zap.Error(err))
		return fmt.Errorf("heartbeat %q: %w", ownerID, err)
	}

	update := models.LocationUpdate{LastActive: models.Time(now)}.WithCoordinates(coords)
	if err := m.store.UpsertLocation(ctx, ownerID, update); err != nil {
		m.log.Error("❌ heartbeat: write failed", zap.String("owner_id", ownerID), zap.Error(err))
		return fmt.Errorf("heartbeat %q: %w", ownerID, err)
	}

	m.log.Debug("heartbeat", zap.String("owner_id", ownerID))
	m.notify(ctx, ownerID, now)
	return nil
}

// GoOffline marks the truck as not live. The owner's visibility choice is left as is;
// a missing record is created visible.
func (m *Manager) GoOffline(ctx context.Context, ownerID string, now time.Time) error {
	update := models.LocationUpdate{
		IsLive:     models.Bool(false),
		LastActive: models.Time(now),
	}
	if err := m.store.UpsertLocation(ctx, ownerID, update); err != nil {
		m.log.Error("❌ go offline: write failed", zap.String("owner_id", ownerID), zap.Error(err))
		return fmt.Errorf("go offline %q: %w", ownerID, err)
	}

	m.log.Info("✅ truck offline", zap.String("owner_id", ownerID))
	m.notify(ctx, ownerID, now)
	return nil
}

// SetVisible records the owner's show/hide choice. Nothing else writes Visible.
func (m *Manager) SetVisible(ctx context.Context, ownerID string, visible bool, now time.Time) error {
	if err := m.store.UpsertLocation(ctx, ownerID, models.LocationUpdate{Visible: models.Bool(visible)}); err != nil {
		m.log.Error("❌ set visible: write failed", zap.String("owner_id", ownerID), zap.Error(err))
		return fmt.Errorf("set visible %q: %w", ownerID, err)
	}

	m.log.Info("✅ visibility changed", zap.String("owner_id", ownerID), zap.Bool("visible", visible))
	m.notify(ctx, ownerID, now)
	return nil
}

// Record returns the stored record, or ErrNotFound.
func (m *Manager) Record(ctx context.Context, ownerID string) (*models.TruckLocationRecord, error) {
	return m.store.GetLocation(ctx, ownerID)
}

func (m *Manager) notify(ctx context.Context, ownerID string, now time.Time) {
	if m.notifier != nil {
		m.notifier.NotifyChanged(ctx, ownerID, now)
	}
}
