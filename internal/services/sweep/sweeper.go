// Package sweep ends sessions that have aged out. It is run by an external
// scheduler (truckctl sweep or the cron endpoint), never by an in-process timer.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evn/grubana/internal/repositories"
	"github.com/evn/grubana/internal/status"
)

// Notifier is told about every truck the sweep took offline.
type Notifier interface {
	NotifyChanged(ctx context.Context, ownerID string, now time.Time)
}

type Result struct {
	RunID     string    `json:"run_id"`
	Checked   int       `json:"checked"`
	Expired   int       `json:"expired"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"started_at"`
	Owners    []string  `json:"expired_owners,omitempty"`
}

type Sweeper struct {
	store    repositories.LocationStore
	policy   status.Policy
	notifier Notifier
	log      *zap.Logger
}

func NewSweeper(store repositories.LocationStore, policy status.Policy, notifier Notifier, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{store: store, policy: policy, notifier: notifier, log: log.Named("sweep")}
}

// Run sets isLive=false on every live record whose session has expired at now.
// The write is conditional on the record being unchanged since it was listed.
// Visible is never written. A failed record is logged and counted; only a failed
// listing aborts the run. Running it twice with the same now changes nothing.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (Result, error) {
	res := Result{RunID: uuid.NewString(), StartedAt: now}
	log := s.log.With(zap.String("run_id", res.RunID))

	recs, err := s.store.ListLocations(ctx)
	if err != nil {
		log.Error("❌ sweep: list failed", zap.Error(err))
		return res, fmt.Errorf("sweep: list locations: %w", err)
	}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !rec.IsLive {
			continue
		}
		res.Checked++
		if s.policy.SessionActive(rec, now) {
			continue
		}

		expired, err := s.store.ExpireSession(ctx, rec.OwnerID, rec.LastActive, rec.SessionStartTime)
		if err != nil {
			res.Failed++
			log.Error("❌ sweep: expire failed", zap.String("owner_id", rec.OwnerID), zap.Error(err))
			continue
		}
		if !expired {
			// the owner went live or heartbeated after the listing
			log.Info("session renewed during sweep, skipped", zap.String("owner_id", rec.OwnerID))
			continue
		}
		res.Expired++
		res.Owners = append(res.Owners, rec.OwnerID)
		if s.notifier != nil {
			s.notifier.NotifyChanged(ctx, rec.OwnerID, now)
		}
	}

	if res.Expired > 0 || res.Failed > 0 {
		log.Info("✅ sweep finished",
			zap.Int("checked", res.Checked),
			zap.Int("expired", res.Expired),
			zap.Int("failed", res.Failed),
		)
	}
	return res, nil
}
