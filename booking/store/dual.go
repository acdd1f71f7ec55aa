package store

import (
	"context"
	"log/slog"
	"time"
)

// RemoteMirror is the contract the dual store consumes the shared sheet
// through: append one row, list the schedule column. Connection setup
// and auth live behind the implementation.
type RemoteMirror interface {
	AppendRow(ctx context.Context, appt Appointment) error
	ScheduleColumn(ctx context.Context) ([]string, error)
}

// DualStore writes each appointment to the local log synchronously and
// then mirrors it to the remote store best-effort. A remote outage can
// never lose a booking, only delay its appearance on the shared sheet.
type DualStore struct {
	local  *LocalLog
	remote RemoteMirror
	log    *slog.Logger
}

// NewDualStore combines the durable local log with an optional remote
// mirror. A nil remote disables mirroring (degraded from the start,
// e.g. when sheet credentials are absent in development).
func NewDualStore(local *LocalLog, remote RemoteMirror, log *slog.Logger) *DualStore {
	if log == nil {
		log = slog.Default()
	}
	return &DualStore{local: local, remote: remote, log: log}
}

// Append records the appointment locally, then mirrors it. The local
// write decides success; the remote outcome only shows up in the result
// so callers can report a degraded success.
func (d *DualStore) Append(ctx context.Context, appt Appointment) (AppendResult, error) {
	if err := d.local.Append(ctx, appt); err != nil {
		d.log.Error("local append failed",
			slog.String("event", "store.append"),
			slog.String("path", d.local.Path()),
			slog.String("err", err.Error()),
		)
		return AppendResult{}, err
	}

	if d.remote == nil {
		return AppendResult{}, nil
	}

	if err := d.remote.AppendRow(ctx, appt); err != nil {
		remoteErr := &Error{Scope: ScopeRemote, Op: "append", Err: err}
		d.log.Warn("remote mirror failed, booking kept locally",
			slog.String("event", "store.append"),
			slog.String("status", "degraded"),
			slog.String("contact", appt.ContactID),
			slog.String("err", err.Error()),
		)
		return AppendResult{RemoteErr: remoteErr}, nil
	}
	return AppendResult{}, nil
}

// ListScheduledInstants prefers the remote store, which sees rows from
// every deployment sharing the sheet, and falls back to the local log
// when it is unreachable.
func (d *DualStore) ListScheduledInstants(ctx context.Context) ([]time.Time, error) {
	if d.remote != nil {
		raw, err := d.remote.ScheduleColumn(ctx)
		if err == nil {
			return parseScheduleValues(raw), nil
		}
		d.log.Warn("remote list failed, falling back to local log",
			slog.String("event", "store.list"),
			slog.String("err", err.Error()),
		)
	}
	return d.local.ListScheduledInstants(ctx)
}
