// models/truck_location.go
package models

import (
	"time"
)

// TruckLocationRecord is the per-owner liveness document (truckLocations/{ownerId}).
// Zero LastActive / SessionStartTime mean the field was never written.
type TruckLocationRecord struct {
	OwnerID          string    `json:"owner_id"`
	Visible          bool      `json:"visible"`
	IsLive           bool      `json:"is_live"`
	LastActive       time.Time `json:"last_active"`
	SessionStartTime time.Time `json:"session_start_time"`
	Lat              *float64  `json:"lat,omitempty"` // pointers keep "no fix yet" apart from 0,0
	Lng              *float64  `json:"lng,omitempty"`
}

// HasLocation reports whether both coordinates are known.
func (r TruckLocationRecord) HasLocation() bool {
	return r.Lat != nil && r.Lng != nil
}

// Coordinates is an optional position reported with a live/heartbeat call.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationUpdate is a partial write against a TruckLocationRecord.
// Nil fields are left untouched by every storage adapter.
// When the record does not exist yet it is created with Visible=true and IsLive=false
// unless the update sets them.
type LocationUpdate struct {
	Visible          *bool
	IsLive           *bool
	LastActive       *time.Time
	SessionStartTime *time.Time
	Lat              *float64
	Lng              *float64
}

// WithCoordinates copies c into the update when c is not nil.
func (u LocationUpdate) WithCoordinates(c *Coordinates) LocationUpdate {
	if c == nil {
		return u
	}
	lat, lng := c.Lat, c.Lng
	u.Lat = &lat
	u.Lng = &lng
	return u
}

// Apply merges u into r using the same rules the storage adapters follow.
func (u LocationUpdate) Apply(r TruckLocationRecord) TruckLocationRecord {
	if u.Visible != nil {
		r.Visible = *u.Visible
	}
	if u.IsLive != nil {
		r.IsLive = *u.IsLive
	}
	if u.LastActive != nil {
		r.LastActive = *u.LastActive
	}
	if u.SessionStartTime != nil {
		r.SessionStartTime = *u.SessionStartTime
	}
	if u.Lat != nil {
		lat := *u.Lat
		r.Lat = &lat
	}
	if u.Lng != nil {
		lng := *u.Lng
		r.Lng = &lng
	}
	return r
}

// NewTruckLocationRecord returns the record shape used on first creation.
func NewTruckLocationRecord(ownerID string) TruckLocationRecord {
	return TruckLocationRecord{OwnerID: ownerID, Visible: true}
}

// Bool and Time return pointers for building LocationUpdate literals.
func Bool(v bool) *bool { return &v }

func Time(v time.Time) *time.Time { return &v }

// UnixMillis converts t to milliseconds since epoch; the zero time maps to 0.
func UnixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromUnixMillis is the inverse of UnixMillis.
func FromUnixMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
