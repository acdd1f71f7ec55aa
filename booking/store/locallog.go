package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"
)

// Column layout of the local log. The header names are the ones the
// shared sheet has used since the first deployment; changing them would
// orphan every existing row.
var localLogHeader = []string{
	"Timestamp", "Nombre", "ContactoID", "Servicio", "Equipo", "Problema", "Horario", "Estado",
}

const scheduleColumn = 6 // "Horario"

// LocalLog is the durable half of the dual write: an append-only CSV
// file, one row per confirmed appointment, created lazily with a header
// on first write. Fields are quoted per RFC 4180, so free text with
// commas or newlines survives a read-back. A mutex serializes appends
// so concurrent sessions never interleave partial rows.
type LocalLog struct {
	path string
	mu   sync.Mutex
}

// NewLocalLog builds a log writing to path. The file itself is not
// touched until the first append.
func NewLocalLog(path string) *LocalLog {
	return &LocalLog{path: path}
}

// Path returns the log file location.
func (l *LocalLog) Path() string { return l.path }

// Append writes one appointment row, creating the file with its header
// when missing or empty.
func (l *LocalLog) Append(_ context.Context, appt Appointment) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	needHeader, err := l.needsHeader()
	if err != nil {
		return &Error{Scope: ScopeLocal, Op: "append", Err: err}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &Error{Scope: ScopeLocal, Op: "append", Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(localLogHeader); err != nil {
			return &Error{Scope: ScopeLocal, Op: "append", Err: err}
		}
	}
	if err := w.Write(appointmentRow(appt)); err != nil {
		return &Error{Scope: ScopeLocal, Op: "append", Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &Error{Scope: ScopeLocal, Op: "append", Err: err}
	}
	if err := f.Sync(); err != nil {
		return &Error{Scope: ScopeLocal, Op: "append", Err: err}
	}
	return nil
}

// ListScheduledInstants reads every row's schedule column. A missing
// file means no appointments yet. Rows whose timestamp does not parse
// are skipped, not fatal; one corrupt line must not block bookings.
func (l *LocalLog) ListScheduledInstants(_ context.Context) ([]time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &Error{Scope: ScopeLocal, Op: "list", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var instants []time.Time
	first := true
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Malformed line; skip the rest of the record.
			continue
		}
		if first {
			first = false
			if len(record) > 0 && record[0] == localLogHeader[0] {
				continue
			}
		}
		if len(record) <= scheduleColumn {
			continue
		}
		t, err := time.Parse(time.RFC3339, record[scheduleColumn])
		if err != nil {
			continue
		}
		instants = append(instants, t)
	}
	return instants, nil
}

func (l *LocalLog) needsHeader() (bool, error) {
	info, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat log: %w", err)
	}
	return info.Size() == 0, nil
}

func appointmentRow(appt Appointment) []string {
	return []string{
		appt.CreatedAt.UTC().Format(time.RFC3339),
		appt.Name,
		appt.ContactID,
		appt.Service,
		appt.Device,
		appt.Problem,
		appt.ScheduledAt.Format(time.RFC3339),
		string(appt.Status),
	}
}
