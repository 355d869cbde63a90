// Package repotest provides an in-memory repositories.Store for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/evn/grubana/internal/models"
	"github.com/evn/grubana/internal/repositories"
)

// Store keeps records in maps. Set the *Err fields to make the matching calls fail.
type Store struct {
	mu        sync.Mutex
	locations map[string]models.TruckLocationRecord
	hours     map[string]models.BusinessHours

	GetErr    error
	UpsertErr error
	ListErr   error
	HoursErr  error
	// FailOwners makes UpsertLocation fail only for these owners.
	FailOwners map[string]error
	// HoursErrs makes GetBusinessHours fail only for these owners.
	HoursErrs map[string]error

	Upserts []Upsert
}

// Upsert is one recorded UpsertLocation call.
type Upsert struct {
	OwnerID string
	Update  models.LocationUpdate
}

func NewStore() *Store {
	return &Store{
		locations: map[string]models.TruckLocationRecord{},
		hours:     map[string]models.BusinessHours{},
	}
}

// Put seeds a record directly.
func (s *Store) Put(rec models.TruckLocationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[rec.OwnerID] = rec
}

// Get returns the stored record without going through error injection.
func (s *Store) Get(ownerID string) (models.TruckLocationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.locations[ownerID]
	return rec, ok
}

func (s *Store) GetLocation(_ context.Context, ownerID string) (*models.TruckLocationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	rec, ok := s.locations[ownerID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) UpsertLocation(_ context.Context, ownerID string, u models.LocationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	if err, ok := s.FailOwners[ownerID]; ok {
		return err
	}
	rec, ok := s.locations[ownerID]
	if !ok {
		rec = models.NewTruckLocationRecord(ownerID)
	}
	s.locations[ownerID] = u.Apply(rec)
	s.Upserts = append(s.Upserts, Upsert{OwnerID: ownerID, Update: u})
	return nil
}

func (s *Store) ExpireSession(_ context.Context, ownerID string, lastActive, sessionStart time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertErr != nil {
		return false, s.UpsertErr
	}
	if err, ok := s.FailOwners[ownerID]; ok {
		return false, err
	}
	rec, ok := s.locations[ownerID]
	if !ok || !rec.IsLive || !rec.LastActive.Equal(lastActive) || !rec.SessionStartTime.Equal(sessionStart) {
		return false, nil
	}
	u := models.LocationUpdate{IsLive: models.Bool(false)}
	s.locations[ownerID] = u.Apply(rec)
	s.Upserts = append(s.Upserts, Upsert{OwnerID: ownerID, Update: u})
	return true, nil
}

func (s *Store) ListLocations(_ context.Context) ([]models.TruckLocationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]models.TruckLocationRecord, 0, len(s.locations))
	for _, rec := range s.locations {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OwnerID < out[j].OwnerID })
	return out, nil
}

func (s *Store) GetBusinessHours(_ context.Context, ownerID string) (models.BusinessHours, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.HoursErr != nil {
		return nil, s.HoursErr
	}
	if err, ok := s.HoursErrs[ownerID]; ok {
		return nil, err
	}
	return s.hours[ownerID], nil
}

func (s *Store) SetBusinessHours(_ context.Context, ownerID string, hours models.BusinessHours) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.HoursErr != nil {
		return s.HoursErr
	}
	s.hours[ownerID] = hours
	return nil
}

func (s *Store) ListOwnersWithoutBusinessHours(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id := range s.locations {
		if len(s.hours[id]) == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

var _ repositories.Store = (*Store)(nil)
