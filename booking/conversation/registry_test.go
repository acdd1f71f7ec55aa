package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/myfimport/citabot/booking/store"
)

func TestRegistryReusesSession(t *testing.T) {
	r := NewRegistry()
	a := r.getOrCreate("tg:1")
	b := r.getOrCreate("tg:1")
	if a != b {
		t.Fatal("same user must map to the same session")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	s := r.getOrCreate("tg:1")
	r.Remove("tg:1")

	if r.Len() != 0 {
		t.Fatalf("Len() = %d after remove, want 0", r.Len())
	}
	s.mu.Lock()
	gone := s.gone
	s.mu.Unlock()
	if !gone {
		t.Fatal("removed session must be marked gone")
	}
	if r.getOrCreate("tg:1") == s {
		t.Fatal("next lookup must build a fresh session")
	}

	// Removing an unknown user is a no-op.
	r.Remove("tg:99")
}

func TestRegistryConcurrentGetOrCreate(t *testing.T) {
	r := NewRegistry()
	const users, perUser = 8, 25

	var wg sync.WaitGroup
	sessions := make([][]*session, users)
	for u := 0; u < users; u++ {
		sessions[u] = make([]*session, perUser)
		for i := 0; i < perUser; i++ {
			wg.Add(1)
			go func(u, i int) {
				defer wg.Done()
				sessions[u][i] = r.getOrCreate(fmt.Sprintf("tg:%d", u))
			}(u, i)
		}
	}
	wg.Wait()

	if r.Len() != users {
		t.Fatalf("Len() = %d, want %d", r.Len(), users)
	}
	for u := 0; u < users; u++ {
		for i := 1; i < perUser; i++ {
			if sessions[u][i] != sessions[u][0] {
				t.Fatalf("user %d got distinct sessions from racing lookups", u)
			}
		}
	}
}

func TestUsersAdvanceIndependently(t *testing.T) {
	st := &memStore{}
	e := newTestEngine(st)
	ctx := context.Background()

	e.HandleMessage(ctx, "tg:1", store.ChannelTelegram, "hola")
	e.HandleMessage(ctx, "wa:2", store.ChannelWhatsApp, "hola")
	e.HandleMessage(ctx, "tg:1", store.ChannelTelegram, "1")

	// User two is still on the service step, untouched by user one.
	got := strings.Join(e.HandleMessage(ctx, "wa:2", store.ChannelWhatsApp, "2"), "\n")
	if !strings.Contains(got, "Reparación de software") {
		t.Fatalf("interleaved users leaked state: %q", got)
	}
	if e.Registry().Len() != 2 {
		t.Fatalf("sessions = %d, want 2", e.Registry().Len())
	}
}

func TestRemoveMidFlowRestartsUser(t *testing.T) {
	e := newTestEngine(&memStore{})
	ctx := context.Background()
	user := "tg:5"

	e.HandleMessage(ctx, user, store.ChannelTelegram, "hola")
	e.HandleMessage(ctx, user, store.ChannelTelegram, "1")
	e.Registry().Remove(user)

	got := e.HandleMessage(ctx, user, store.ChannelTelegram, "Dell XPS")
	if got[0] != welcomeLines[0] {
		t.Fatalf("message after removal should restart the flow, got %q", got[0])
	}
}

func TestConcurrentMessagesSingleBooking(t *testing.T) {
	st := &memStore{}
	e := newTestEngine(st)
	ctx := context.Background()
	user := "tg:9"
	runToSchedule(t, e, user)

	// Two racing copies of the same schedule message: both serialize on
	// the session, the loser lands on a reset conversation.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.HandleMessage(ctx, user, store.ChannelTelegram, "15/01 10:30")
		}()
	}
	wg.Wait()

	if len(st.appts) != 1 {
		t.Fatalf("appointments stored = %d, want exactly 1", len(st.appts))
	}
}
