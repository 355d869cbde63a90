package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/evn/grubana/internal/models"
)

// ErrNotFound is returned when an owner has no truck location record.
var ErrNotFound = errors.New("record not found")

// ErrMalformedHours is returned when a stored schedule exists but cannot be decoded.
var ErrMalformedHours = errors.New("malformed business hours")

// LocationStore persists truckLocations/{ownerId}.
type LocationStore interface {
	GetLocation(ctx context.Context, ownerID string) (*models.TruckLocationRecord, error)
	// UpsertLocation applies a partial update, creating the record with
	// Visible=true / IsLive=false defaults when it does not exist.
	UpsertLocation(ctx context.Context, ownerID string, update models.LocationUpdate) error
	ListLocations(ctx context.Context) ([]models.TruckLocationRecord, error)
	// ExpireSession sets IsLive=false only when the record is still live with the
	// given LastActive and SessionStartTime, and reports whether it wrote.
	ExpireSession(ctx context.Context, ownerID string, lastActive, sessionStart time.Time) (bool, error)
}

// ProfileStore persists users/{ownerId}.businessHours.
type ProfileStore interface {
	// GetBusinessHours returns nil hours (and no error) when the owner never set a schedule.
	GetBusinessHours(ctx context.Context, ownerID string) (models.BusinessHours, error)
	SetBusinessHours(ctx context.Context, ownerID string, hours models.BusinessHours) error
	ListOwnersWithoutBusinessHours(ctx context.Context) ([]string, error)
}

// Store is what every backend implements.
type Store interface {
	LocationStore
	ProfileStore
}
