package schedule

import (
	"context"
	"time"
)

// DefaultConflictWindow is the exclusivity window around every booked
// appointment: a new booking closer than this to an existing one is
// rejected. Appointments are assumed to last one hour.
const DefaultConflictWindow = time.Hour

// InstantLister yields the instants of every persisted appointment.
// It is the only part of the appointment store the checker needs.
type InstantLister interface {
	ListScheduledInstants(ctx context.Context) ([]time.Time, error)
}

// SlotChecker decides whether a requested instant can still be booked.
type SlotChecker struct {
	Store  InstantLister
	Window time.Duration
}

// NewSlotChecker builds a checker over the given store. A zero window
// falls back to DefaultConflictWindow.
func NewSlotChecker(store InstantLister, window time.Duration) *SlotChecker {
	if window <= 0 {
		window = DefaultConflictWindow
	}
	return &SlotChecker{Store: store, Window: window}
}

// IsAvailable reports whether no existing appointment lies within the
// conflict window of the requested instant, in either direction. An
// exact duplicate is a conflict (distance zero). The scan is linear;
// the store round-trip dominates, not the comparison.
func (c *SlotChecker) IsAvailable(ctx context.Context, requested time.Time) (bool, error) {
	window := c.Window
	if window <= 0 {
		window = DefaultConflictWindow
	}

	booked, err := c.Store.ListScheduledInstants(ctx)
	if err != nil {
		return false, err
	}
	for _, b := range booked {
		diff := requested.Sub(b)
		if diff < 0 {
			diff = -diff
		}
		if diff < window {
			return false, nil
		}
	}
	return true, nil
}
