package models

import "time"

// TruckState is the customer-facing state derived from a TruckStatus.
type TruckState string

const (
	StateHidden        TruckState = "hidden"
	StateVisibleClosed TruckState = "visible_closed"
	StateVisibleOpen   TruckState = "visible_open"
)

// TruckStatus is computed on every evaluation and never persisted.
type TruckStatus struct {
	Visible     bool `json:"visible"`
	Open        bool `json:"open"`
	Displayable bool `json:"displayable"`
	Orderable   bool `json:"orderable"`
}

func (s TruckStatus) State() TruckState {
	switch {
	case !s.Visible:
		return StateHidden
	case s.Open:
		return StateVisibleOpen
	default:
		return StateVisibleClosed
	}
}

// TruckView is what the read path returns for a single truck.
type TruckView struct {
	OwnerID string      `json:"owner_id"`
	Status  TruckStatus `json:"status"`
	State   TruckState  `json:"state"`
	IsLive  bool        `json:"is_live"`
	Lat     *float64    `json:"lat,omitempty"`
	Lng     *float64    `json:"lng,omitempty"`

	LastActive       time.Time `json:"last_active"`
	SessionStartTime time.Time `json:"session_start_time"`
}

// NewTruckView pairs a record with its resolved status.
func NewTruckView(rec TruckLocationRecord, st TruckStatus) TruckView {
	return TruckView{
		OwnerID: rec.OwnerID,
		Status:  st,
		State:   st.State(),
		IsLive:  rec.IsLive,
		Lat:     rec.Lat,
		Lng:     rec.Lng,

		LastActive:       rec.LastActive,
		SessionStartTime: rec.SessionStartTime,
	}
}
