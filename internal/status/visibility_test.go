package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/evn/grubana/internal/models"
)

var evalTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) // a Monday

func record(visible bool, sinceActive, sinceStart time.Duration) models.TruckLocationRecord {
	return models.TruckLocationRecord{
		OwnerID:          "owner-1",
		Visible:          visible,
		IsLive:           true,
		LastActive:       evalTime.Add(-sinceActive),
		SessionStartTime: evalTime.Add(-sinceStart),
	}
}

func TestIsDisplayable_HiddenFlagWins(t *testing.T) {
	p := DefaultPolicy()
	for _, rec := range []models.TruckLocationRecord{
		record(false, 0, 0),
		record(false, time.Minute, time.Hour),
		record(false, 20*time.Minute, 3*time.Hour),
		record(false, 9*time.Hour, 9*time.Hour),
	} {
		assert.False(t, p.IsDisplayable(rec, evalTime))
	}
}

func TestIsDisplayable_RecentHeartbeatIgnoresSessionAge(t *testing.T) {
	p := DefaultPolicy()

	assert.True(t, p.IsDisplayable(record(true, 0, 30*time.Hour), evalTime))
	assert.True(t, p.IsDisplayable(record(true, 15*time.Minute, 12*time.Hour), evalTime), "grace period is inclusive")
}

func TestIsDisplayable_SessionWindow(t *testing.T) {
	p := DefaultPolicy()

	assert.True(t, p.IsDisplayable(record(true, 16*time.Minute, 7*time.Hour+59*time.Minute), evalTime))
	assert.False(t, p.IsDisplayable(record(true, 16*time.Minute, 8*time.Hour), evalTime), "session window is exclusive")
	assert.False(t, p.IsDisplayable(record(true, 9*time.Hour, 9*time.Hour), evalTime))
}

func TestIsDisplayable_MissingTimestampsAreExpired(t *testing.T) {
	p := DefaultPolicy()

	rec := models.TruckLocationRecord{OwnerID: "owner-1", Visible: true}
	assert.False(t, p.IsDisplayable(rec, evalTime))

	rec.LastActive = evalTime.Add(-time.Minute)
	assert.True(t, p.IsDisplayable(rec, evalTime))

	rec = models.TruckLocationRecord{OwnerID: "owner-1", Visible: true, SessionStartTime: evalTime.Add(-time.Hour)}
	assert.True(t, p.IsDisplayable(rec, evalTime))
}

func TestIsDisplayable_CustomPolicy(t *testing.T) {
	p := Policy{GracePeriod: time.Minute, MaxSession: time.Hour}

	assert.False(t, p.IsDisplayable(record(true, 2*time.Minute, 2*time.Hour), evalTime))
	assert.True(t, p.IsDisplayable(record(true, 2*time.Minute, 30*time.Minute), evalTime))
}

func TestSessionActive_IgnoresVisibleFlag(t *testing.T) {
	p := DefaultPolicy()

	assert.True(t, p.SessionActive(record(false, time.Minute, time.Hour), evalTime))
	assert.False(t, p.SessionActive(record(false, time.Hour, 10*time.Hour), evalTime))
}
