package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type fakeMirror struct {
	rows      []Appointment
	appendErr error
	column    []string
	listErr   error
}

func (f *fakeMirror) AppendRow(_ context.Context, appt Appointment) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, appt)
	return nil
}

func (f *fakeMirror) ScheduleColumn(context.Context) ([]string, error) {
	return f.column, f.listErr
}

func newTestDual(t *testing.T, remote RemoteMirror) (*DualStore, *LocalLog) {
	t.Helper()
	local := NewLocalLog(filepath.Join(t.TempDir(), "citas.csv"))
	return NewDualStore(local, remote, nil), local
}

func TestDualStoreAppendMirrorsRemote(t *testing.T) {
	remote := &fakeMirror{}
	dual, local := newTestDual(t, remote)
	scheduled := time.Date(2025, time.January, 15, 10, 30, 0, 0, time.Local)

	res, err := dual.Append(context.Background(), testAppointment(scheduled))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if res.Degraded() {
		t.Fatalf("unexpected degraded result: %v", res.RemoteErr)
	}
	if len(remote.rows) != 1 {
		t.Fatalf("remote rows = %d, want 1", len(remote.rows))
	}
	instants, err := local.ListScheduledInstants(context.Background())
	if err != nil || len(instants) != 1 {
		t.Fatalf("local log rows = %d (err %v), want 1", len(instants), err)
	}
}

func TestDualStoreRemoteFailureIsDegradedSuccess(t *testing.T) {
	remote := &fakeMirror{appendErr: errors.New("sheet unreachable")}
	dual, local := newTestDual(t, remote)
	scheduled := time.Date(2025, time.January, 15, 10, 30, 0, 0, time.Local)

	res, err := dual.Append(context.Background(), testAppointment(scheduled))
	if err != nil {
		t.Fatalf("remote failure must not fail the append: %v", err)
	}
	if !res.Degraded() {
		t.Fatal("expected degraded result when the mirror fails")
	}
	var serr *Error
	if !errors.As(res.RemoteErr, &serr) || serr.Scope != ScopeRemote {
		t.Fatalf("RemoteErr = %v, want remote-scoped store error", res.RemoteErr)
	}
	instants, _ := local.ListScheduledInstants(context.Background())
	if len(instants) != 1 {
		t.Fatalf("local log must keep the row, got %d", len(instants))
	}
}

func TestDualStoreLocalFailureIsFatalAndSkipsRemote(t *testing.T) {
	remote := &fakeMirror{}
	// A directory path makes the local open fail.
	local := NewLocalLog(t.TempDir())
	dual := NewDualStore(local, remote, nil)

	_, err := dual.Append(context.Background(), testAppointment(time.Now()))
	if err == nil {
		t.Fatal("expected local write error")
	}
	var serr *Error
	if !errors.As(err, &serr) || serr.Scope != ScopeLocal {
		t.Fatalf("err = %v, want local-scoped store error", err)
	}
	if len(remote.rows) != 0 {
		t.Fatal("remote write must not happen after a local failure")
	}
}

func TestDualStoreListPrefersRemote(t *testing.T) {
	want := time.Date(2025, time.January, 15, 10, 30, 0, 0, time.UTC)
	remote := &fakeMirror{column: []string{want.Format(time.RFC3339), "garbage", ""}}
	dual, _ := newTestDual(t, remote)

	instants, err := dual.ListScheduledInstants(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(instants) != 1 || !instants[0].Equal(want) {
		t.Fatalf("instants = %v, want exactly [%v]", instants, want)
	}
}

func TestDualStoreListFallsBackToLocal(t *testing.T) {
	remote := &fakeMirror{listErr: errors.New("sheet unreachable")}
	dual, local := newTestDual(t, remote)
	scheduled := time.Date(2025, time.January, 15, 10, 30, 0, 0, time.Local)
	if err := local.Append(context.Background(), testAppointment(scheduled)); err != nil {
		t.Fatalf("seed local: %v", err)
	}

	instants, err := dual.ListScheduledInstants(context.Background())
	if err != nil {
		t.Fatalf("list must fall back to local, got %v", err)
	}
	if len(instants) != 1 || !instants[0].Equal(scheduled) {
		t.Fatalf("instants = %v, want local row", instants)
	}
}

func TestDualStoreNilRemote(t *testing.T) {
	dual, _ := newTestDual(t, nil)
	res, err := dual.Append(context.Background(), testAppointment(time.Now()))
	if err != nil {
		t.Fatalf("append without remote: %v", err)
	}
	if res.Degraded() {
		t.Fatal("no remote configured is not a degraded append")
	}
}
