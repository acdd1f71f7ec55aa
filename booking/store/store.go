// Package store persists confirmed appointments. Writes go to a durable
// local append-only log first and are mirrored best-effort to a shared
// Google Sheet; reads serve the slot availability check.
package store

import (
	"context"
	"fmt"
	"time"
)

// Channel identifies the messaging transport a booking arrived from.
// It is informational only and never changes booking rules.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
	ChannelSMS      Channel = "sms"
)

// Status of a persisted appointment. This engine only ever creates
// pending appointments; later states belong to the back office.
type Status string

// StatusPending keeps the Spanish literal the shared sheet has always
// used, so existing rows and new rows stay consistent.
const StatusPending Status = "Pendiente"

// Appointment is an immutable, fully validated booking. Every persisted
// appointment passed the business-hours and availability checks at
// write time.
type Appointment struct {
	CreatedAt   time.Time
	Name        string
	ContactID   string
	Service     string
	Device      string
	Problem     string
	ScheduledAt time.Time
	Status      Status
	Channel     Channel
}

// Scope tells which side of the dual write an error came from. Local
// failures are fatal to the booking attempt; remote failures degrade it.
type Scope string

const (
	ScopeLocal  Scope = "local"
	ScopeRemote Scope = "remote"
)

// Error wraps a persistence failure with the side it happened on.
type Error struct {
	Scope Scope
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Scope, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// AppendResult reports the outcome of a successful append. RemoteErr is
// non-nil for a degraded success: the local log has the row but the
// remote mirror rejected it or was unreachable.
type AppendResult struct {
	RemoteErr error
}

// Degraded reports whether the remote mirror missed this append.
func (r AppendResult) Degraded() bool { return r.RemoteErr != nil }

// Store is the boundary the conversation engine writes through.
type Store interface {
	// Append durably records one appointment. The local write decides
	// success; a remote failure is surfaced via the result only.
	Append(ctx context.Context, appt Appointment) (AppendResult, error)
	// ListScheduledInstants returns the instant of every persisted
	// appointment. Rows with corrupt or missing timestamps are skipped.
	ListScheduledInstants(ctx context.Context) ([]time.Time, error)
}
