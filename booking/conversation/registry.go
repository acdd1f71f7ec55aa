package conversation

import (
	"sync"
	"time"

	"github.com/myfimport/citabot/booking/store"
)

// Step identifies the field the conversation is currently collecting.
type Step string

const (
	// StepWelcome precedes the flow: the next message, whatever it
	// says, is answered with the welcome menu.
	StepWelcome  Step = "welcome"
	StepService  Step = "service"
	StepDevice   Step = "device"
	StepProblem  Step = "problem"
	StepName     Step = "name"
	StepSchedule Step = "schedule"
)

// Request is the booking being assembled by one conversation. Fields
// fill strictly in collection order; the schedule step is unreachable
// while any earlier field is empty.
type Request struct {
	UserID      string
	Channel     store.Channel
	Service     string
	Device      string
	Problem     string
	Name        string
	ScheduledAt time.Time
}

// session is the per-user conversation state. Its mutex serializes all
// transitions for that user: two messages from the same contact are
// applied in arrival order, never interleaved.
type session struct {
	mu   sync.Mutex
	gone bool
	step Step
	req  Request
}

func (s *session) reset() {
	s.step = StepWelcome
	s.req = Request{UserID: s.req.UserID, Channel: s.req.Channel}
}

// Registry owns every live conversation session, keyed by the
// channel-scoped user identifier. Sessions are memory only; after a
// restart users simply start the flow again.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

func (r *Registry) getOrCreate(userID string) *session {
	r.mu.RLock()
	s, ok := r.sessions[userID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok {
		return s
	}
	s = &session{step: StepWelcome, req: Request{UserID: userID}}
	r.sessions[userID] = s
	return s
}

// Remove drops a user's session. The next inbound message starts a
// fresh conversation. Safe to call for unknown users.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()
	if !ok {
		return
	}
	// Mark the session dead so a handler already holding the pointer
	// retries against the registry instead of mutating an orphan.
	s.mu.Lock()
	s.gone = true
	s.mu.Unlock()
}

// Len reports how many conversations are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
