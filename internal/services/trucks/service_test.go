package trucks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evn/grubana/internal/models"
	"github.com/evn/grubana/internal/repositories"
	"github.com/evn/grubana/internal/repositories/repotest"
	"github.com/evn/grubana/internal/status"
)

// Monday 10:00 and 18:00 UTC.
var (
	morning = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	evening = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
)

type capturePublisher struct {
	mu    sync.Mutex
	views []models.TruckView
}

func (p *capturePublisher) PublishStatus(v models.TruckView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views = append(p.views, v)
}

func live(ownerID string, visible bool, now time.Time) models.TruckLocationRecord {
	return models.TruckLocationRecord{
		OwnerID: ownerID, Visible: visible, IsLive: true,
		LastActive: now.Add(-time.Minute), SessionStartTime: now.Add(-time.Hour),
	}
}

func newService() (*Service, *repotest.Store) {
	store := repotest.NewStore()
	return NewService(store, status.NewResolver(status.DefaultPolicy()), nil), store
}

func TestStatus(t *testing.T) {
	svc, store := newService()
	store.Put(live("owner-1", true, morning))

	v, err := svc.Status(context.Background(), "owner-1", morning)
	require.NoError(t, err)
	assert.Equal(t, models.StateVisibleOpen, v.State)
	assert.True(t, v.Status.Orderable)

	_, err = svc.Status(context.Background(), "missing", morning)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestStatus_UsesOwnerSchedule(t *testing.T) {
	svc, store := newService()
	store.Put(live("owner-1", true, evening))
	require.NoError(t, store.SetBusinessHours(context.Background(), "owner-1", models.BusinessHours{
		"monday": {Open: "4:00 PM", Close: "11:00 PM"},
	}))

	v, err := svc.Status(context.Background(), "owner-1", evening)
	require.NoError(t, err)
	assert.Equal(t, models.StateVisibleOpen, v.State)
}

func TestMap_OnlyDisplayable(t *testing.T) {
	svc, store := newService()
	store.Put(live("a", true, evening))
	store.Put(live("b", false, evening))
	store.Put(models.TruckLocationRecord{
		OwnerID: "c", Visible: true,
		LastActive: evening.Add(-10 * time.Hour), SessionStartTime: evening.Add(-10 * time.Hour),
	})

	views, err := svc.Map(context.Background(), evening)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "a", views[0].OwnerID)
	assert.Equal(t, models.StateVisibleClosed, views[0].State)

	all, err := svc.All(context.Background(), evening)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMap_BadScheduleDoesNotDropOtherTrucks(t *testing.T) {
	svc, store := newService()
	store.Put(live("bad", true, morning))
	store.Put(live("good", true, morning))
	store.Put(live("unreachable", true, morning))
	store.HoursErrs = map[string]error{
		"bad":         fmt.Errorf("decode: %w", repositories.ErrMalformedHours),
		"unreachable": errors.New("i/o timeout"),
	}

	views, err := svc.Map(context.Background(), morning)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "bad", views[0].OwnerID)
	assert.Equal(t, models.StateVisibleOpen, views[0].State, "default schedule applies")
	assert.Equal(t, "good", views[1].OwnerID)

	_, err = svc.Status(context.Background(), "bad", morning)
	assert.NoError(t, err)
	hours, isDefault, err := svc.BusinessHours(context.Background(), "bad")
	require.NoError(t, err)
	assert.True(t, isDefault)
	assert.Equal(t, models.DefaultBusinessHours(), hours)
	_, err = svc.Status(context.Background(), "unreachable", morning)
	assert.Error(t, err)
}

func TestMap_ListFailure(t *testing.T) {
	svc, store := newService()
	store.ListErr = errors.New("unavailable")

	_, err := svc.Map(context.Background(), morning)
	assert.Error(t, err)
}

func TestCheckOrderable(t *testing.T) {
	svc, store := newService()
	store.Put(live("open", true, morning))
	store.Put(live("hidden", false, morning))
	ctx := context.Background()

	assert.NoError(t, svc.CheckOrderable(ctx, "open", morning))
	assert.ErrorIs(t, svc.CheckOrderable(ctx, "open", evening), ErrNotOrderable)
	assert.ErrorIs(t, svc.CheckOrderable(ctx, "hidden", morning), ErrNotOrderable)
	assert.ErrorIs(t, svc.CheckOrderable(ctx, "nobody", morning), ErrNotOrderable)
}

func TestNotifyChanged_Publishes(t *testing.T) {
	svc, store := newService()
	pub := &capturePublisher{}
	svc.SetPublisher(pub)
	store.Put(live("owner-1", true, morning))

	svc.NotifyChanged(context.Background(), "owner-1", morning)
	svc.NotifyChanged(context.Background(), "missing", morning)

	require.Len(t, pub.views, 1)
	assert.Equal(t, "owner-1", pub.views[0].OwnerID)
}

func TestBusinessHours(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	hours, isDefault, err := svc.BusinessHours(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, isDefault)
	assert.Equal(t, models.DefaultBusinessHours(), hours)

	err = svc.SetBusinessHours(ctx, "owner-1", models.BusinessHours{"Monday": {Open: "25:00", Close: "5:00 PM"}}, morning)
	assert.ErrorIs(t, err, ErrInvalidHours)

	err = svc.SetBusinessHours(ctx, "owner-1", models.BusinessHours{"friday": {Open: "10:00 PM", Close: "2:00 AM"}}, morning)
	assert.ErrorIs(t, err, ErrInvalidHours, "the other six days are missing")

	custom := models.DefaultBusinessHours()
	delete(custom, "friday")
	custom[" Friday "] = models.DayHours{Open: "10:00 PM", Close: "2:00 AM"}
	require.NoError(t, svc.SetBusinessHours(ctx, "owner-1", custom, morning))

	hours, isDefault, err = svc.BusinessHours(ctx, "owner-1")
	require.NoError(t, err)
	assert.False(t, isDefault)
	assert.Equal(t, models.DayHours{Open: "10:00 PM", Close: "2:00 AM"}, hours["friday"])
	assert.Len(t, hours, 7)
}
