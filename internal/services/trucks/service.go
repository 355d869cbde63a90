// Package trucks is the read path: it loads stored records and schedules and
// resolves them into the status shown on the map and used to gate pre-orders.
package trucks

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

// ErrNotOrderable is returned by CheckOrderable for hidden or closed trucks.
var ErrNotOrderable = errors.New("truck is not accepting orders")

// ErrInvalidHours wraps schedule validation failures.
var ErrInvalidHours = errors.New("invalid business hours")

// Publisher receives every recomputed status.
type Publisher interface {
	PublishStatus(view models.TruckView)
}

type Service struct {
	store     repositories.Store
	resolver  status.Resolver
	publisher Publisher
	log       *zap.Logger
}

func NewService(store repositories.Store, resolver status.Resolver, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, resolver: resolver, log: log.Named("trucks")}
}

// SetPublisher wires the realtime feed. The hub is built after the service
// because it needs Map for its snapshots.
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

func (s *Service) Status(ctx context.Context, ownerID string, now time.Time) (models.TruckView, error) {
	rec, err := s.store.GetLocation(ctx, ownerID)
	if err != nil {
		return models.TruckView{}, fmt.Errorf("truck status %q: %w", ownerID, err)
	}
	return s.resolve(ctx, *rec, now)
}

// Map returns the trucks that should have a marker right now.
func (s *Service) Map(ctx context.Context, now time.Time) ([]models.TruckView, error) {
	views, err := s.All(ctx, now)
	if err != nil {
		return nil, err
	}
	out := views[:0]
	for _, v := range views {
		if v.Status.Displayable {
			out = append(out, v)
		}
	}
	return out, nil
}

// All resolves every stored record, hidden ones included. A record whose
// schedule cannot be read is logged and left out; the rest are still returned.
func (s *Service) All(ctx context.Context, now time.Time) ([]models.TruckView, error) {
	recs, err := s.store.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trucks: %w", err)
	}

	views := make([]models.TruckView, 0, len(recs))
	for _, rec := range recs {
		v, err := s.resolve(ctx, rec, now)
		if err != nil {
			s.log.Warn("⚠️ skipping truck", zap.String("owner_id", rec.OwnerID), zap.Error(err))
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

// CheckOrderable is the pre-order gate.
func (s *Service) CheckOrderable(ctx context.Context, ownerID string, now time.Time) error {
	v, err := s.Status(ctx, ownerID, now)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotOrderable
	}
	if err != nil {
		return err
	}
	if !v.Status.Orderable {
		return fmt.Errorf("%w (%s)", ErrNotOrderable, v.State)
	}
	return nil
}

// NotifyChanged recomputes one truck and pushes it to map viewers.
func (s *Service) NotifyChanged(ctx context.Context, ownerID string, now time.Time) {
	if s.publisher == nil {
		return
	}
	v, err := s.Status(ctx, ownerID, now)
	if err != nil {
		s.log.Warn("⚠️ status refresh failed", zap.String("owner_id", ownerID), zap.Error(err))
		return
	}
	s.publisher.PublishStatus(v)
}

// BusinessHours returns the owner's schedule, or the default one with isDefault set.
func (s *Service) BusinessHours(ctx context.Context, ownerID string) (hours models.BusinessHours, isDefault bool, err error) {
	hours, err = s.store.GetBusinessHours(ctx, ownerID)
	if errors.Is(err, repositories.ErrMalformedHours) {
		s.log.Warn("⚠️ stored business hours unreadable, using default", zap.String("owner_id", ownerID), zap.Error(err))
		return models.DefaultBusinessHours(), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("business hours %q: %w", ownerID, err)
	}
	if hours == nil {
		return models.DefaultBusinessHours(), true, nil
	}
	return hours, false, nil
}

// SetBusinessHours validates with the strict clock parser before storing.
func (s *Service) SetBusinessHours(ctx context.Context, ownerID string, hours models.BusinessHours, now time.Time) error {
	hours = hours.Normalize()
	if err := status.ValidateBusinessHours(hours); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHours, err)
	}
	if err := s.store.SetBusinessHours(ctx, ownerID, hours); err != nil {
		s.log.Error("❌ save business hours failed", zap.String("owner_id", ownerID), zap.Error(err))
		return fmt.Errorf("save business hours %q: %w", ownerID, err)
	}
	s.log.Info("✅ business hours updated", zap.String("owner_id", ownerID))
	s.NotifyChanged(ctx, ownerID, now)
	return nil
}

func (s *Service) resolve(ctx context.Context, rec models.TruckLocationRecord, now time.Time) (models.TruckView, error) {
	hours, err := s.store.GetBusinessHours(ctx, rec.OwnerID)
	switch {
	case errors.Is(err, repositories.ErrMalformedHours):
		// nil resolves against the default schedule
		s.log.Warn("⚠️ stored business hours unreadable, using default", zap.String("owner_id", rec.OwnerID), zap.Error(err))
		hours = nil
	case err != nil:
		return models.TruckView{}, fmt.Errorf("business hours %q: %w", rec.OwnerID, err)
	}
	return models.NewTruckView(rec, s.resolver.Resolve(rec, hours, now)), nil
}
