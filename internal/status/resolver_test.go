package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/evn/grubana/internal/models"
)

func TestResolve_Composition(t *testing.T) {
	r := NewResolver(DefaultPolicy())
	schedule := everyDay("9:00 AM", "5:00 PM")

	cases := []struct {
		name string
		rec  models.TruckLocationRecord
		at   time.Time
		want models.TruckStatus
	}{
		{
			name: "visible and open",
			rec:  liveAt(monday(10, 0), true),
			at:   monday(10, 0),
			want: models.TruckStatus{Visible: true, Open: true, Displayable: true, Orderable: true},
		},
		{
			name: "visible but closed still shows on the map",
			rec:  liveAt(monday(18, 0), true),
			at:   monday(18, 0),
			want: models.TruckStatus{Visible: true, Open: false, Displayable: true, Orderable: false},
		},
		{
			name: "hidden while open is not orderable",
			rec:  liveAt(monday(10, 0), false),
			at:   monday(10, 0),
			want: models.TruckStatus{Visible: false, Open: true, Displayable: false, Orderable: false},
		},
		{
			name: "expired session overrides stored visible flag",
			rec: models.TruckLocationRecord{
				Visible:          true,
				LastActive:       monday(1, 0),
				SessionStartTime: monday(1, 0),
			},
			at:   monday(10, 0),
			want: models.TruckStatus{Visible: false, Open: true, Displayable: false, Orderable: false},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.Resolve(tc.rec, schedule, tc.at)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got.Visible && got.Open, got.Orderable)
			assert.Equal(t, got.Visible, got.Displayable)
		})
	}
}

func liveAt(now time.Time, visible bool) models.TruckLocationRecord {
	return models.TruckLocationRecord{
		OwnerID:          "owner-1",
		Visible:          visible,
		IsLive:           true,
		LastActive:       now.Add(-time.Minute),
		SessionStartTime: now.Add(-time.Hour),
	}
}

func TestResolve_EndToEndScenarios(t *testing.T) {
	r := NewResolver(DefaultPolicy())

	morning := monday(10, 0)
	rec := models.TruckLocationRecord{
		OwnerID:          "owner-1",
		Visible:          true,
		LastActive:       morning.Add(-20 * time.Minute),
		SessionStartTime: morning.Add(-3 * time.Hour),
	}
	assert.Equal(t,
		models.TruckStatus{Visible: true, Open: true, Displayable: true, Orderable: true},
		r.Resolve(rec, nil, morning))

	evening := monday(18, 0)
	rec.LastActive = evening.Add(-20 * time.Minute)
	rec.SessionStartTime = evening.Add(-3 * time.Hour)
	assert.Equal(t,
		models.TruckStatus{Visible: true, Open: false, Displayable: true, Orderable: false},
		r.Resolve(rec, nil, evening))

	for _, at := range []time.Time{monday(3, 0), morning, evening, monday(23, 59)} {
		stale := models.TruckLocationRecord{
			Visible:          true,
			LastActive:       at.Add(-9 * time.Hour),
			SessionStartTime: at.Add(-9 * time.Hour),
		}
		assert.False(t, r.Resolve(stale, nil, at).Displayable)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := NewResolver(DefaultPolicy())
	rec := liveAt(monday(12, 0), true)

	first := r.Resolve(rec, nil, monday(12, 0))
	second := r.Resolve(rec, nil, monday(12, 0))
	assert.Equal(t, first, second)
}

func TestTruckStatus_State(t *testing.T) {
	assert.Equal(t, models.StateHidden, models.TruckStatus{Open: true}.State())
	assert.Equal(t, models.StateVisibleClosed, models.TruckStatus{Visible: true, Displayable: true}.State())
	assert.Equal(t, models.StateVisibleOpen, models.TruckStatus{Visible: true, Open: true}.State())
}
