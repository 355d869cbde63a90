package status

import (
	"time"

	"github.com/evn/grubana/internal/models"
)

// Resolver combines visibility and business hours into the status used by the map and pre-orders.
type Resolver struct {
	Policy Policy
}

func NewResolver(p Policy) Resolver {
	return Resolver{Policy: p}
}

// Resolve is a pure function of its inputs. Business hours never hide a marker;
// they only gate ordering.
func (r Resolver) Resolve(rec models.TruckLocationRecord, schedule models.BusinessHours, now time.Time) models.TruckStatus {
	visible := r.Policy.IsDisplayable(rec, now)
	open := IsOpenNow(schedule, now)

	return models.TruckStatus{
		Visible:     visible,
		Open:        open,
		Displayable: visible,
		Orderable:   visible && open,
	}
}
