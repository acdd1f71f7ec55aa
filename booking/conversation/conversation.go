// Package conversation implements the per-user booking state machine:
// it collects the service, device, problem and name fields one message
// at a time, validates the requested slot, and writes the confirmed
// appointment through the store.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/myfimport/citabot/booking/schedule"
	"github.com/myfimport/citabot/booking/store"
)

// greetings reset the conversation to the welcome menu from any step.
var greetings = map[string]struct{}{
	"/start":         {},
	"hola":           {},
	"hi":             {},
	"hello":          {},
	"inicio":         {},
	"menu":           {},
	"menú":           {},
	"menu principal": {},
	"buenos días":    {},
	"buenos dias":    {},
	"buenas tardes":  {},
}

// Options configure an Engine. Store is required; everything else has
// a working default.
type Options struct {
	Store          store.Store
	Hours          schedule.WeeklyHours
	ConflictWindow time.Duration
	Now            func() time.Time
	Logger         *slog.Logger
}

// Engine routes inbound messages to their owning session and runs the
// state machine. It is safe for concurrent use: sessions of different
// users advance in parallel, messages of one user are serialized.
type Engine struct {
	registry  *Registry
	store     store.Store
	hours     schedule.WeeklyHours
	checker   *schedule.SlotChecker
	now       func() time.Time
	log       *slog.Logger
	processed atomic.Uint64
}

// New builds an Engine over the given store.
func New(opts Options) *Engine {
	hours := opts.Hours
	if hours == nil {
		hours = schedule.DefaultWeeklyHours()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		registry: NewRegistry(),
		store:    opts.Store,
		hours:    hours,
		checker:  schedule.NewSlotChecker(opts.Store, opts.ConflictWindow),
		now:      now,
		log:      log,
	}
}

// Registry exposes the session registry, mainly for diagnostics.
func (e *Engine) Registry() *Registry { return e.registry }

// Processed returns how many inbound messages the engine has handled
// since start.
func (e *Engine) Processed() uint64 { return e.processed.Load() }

// HandleMessage applies one inbound message to the sender's session and
// returns the reply lines for the transport to deliver. It never calls
// a transport itself. The store append in the final step is the only
// side effect; every other transition is a pure state update.
func (e *Engine) HandleMessage(ctx context.Context, userID string, ch store.Channel, text string) []string {
	e.processed.Add(1)

	for {
		s := e.registry.getOrCreate(userID)
		s.mu.Lock()
		if s.gone {
			s.mu.Unlock()
			continue
		}
		s.req.UserID = userID
		s.req.Channel = ch
		reply := e.advance(ctx, s, text)
		s.mu.Unlock()
		return reply
	}
}

func (e *Engine) advance(ctx context.Context, s *session, text string) []string {
	trimmed := strings.TrimSpace(text)

	if _, ok := greetings[strings.ToLower(trimmed)]; ok {
		s.reset()
		s.step = StepService
		return welcomeLines
	}

	switch s.step {
	case StepWelcome:
		// First contact: whatever the user said, show the menu.
		s.step = StepService
		return welcomeLines

	case StepService:
		if trimmed == "" {
			return emptyInputLines
		}
		if name, ok := serviceCatalog[trimmed]; ok {
			s.req.Service = name
		} else {
			s.req.Service = trimmed
		}
		s.step = StepDevice
		return devicePrompt(s.req.Service)

	case StepDevice:
		if trimmed == "" {
			return emptyInputLines
		}
		s.req.Device = trimmed
		s.step = StepProblem
		return problemPrompt(s.req.Device)

	case StepProblem:
		if trimmed == "" {
			return emptyInputLines
		}
		s.req.Problem = trimmed
		s.step = StepName
		return namePrompt(s.req.Problem)

	case StepName:
		if trimmed == "" {
			return emptyInputLines
		}
		s.req.Name = trimmed
		s.step = StepSchedule
		return schedulePrompt(s.req.Name)

	case StepSchedule:
		return e.finishBooking(ctx, s, trimmed)
	}

	// Unknown step: state got corrupted somehow, start over.
	s.reset()
	s.step = StepService
	return welcomeLines
}

// finishBooking runs the three schedule gates in order and persists the
// appointment once they all pass. Parse, hours and conflict failures
// re-prompt the same step; only a local store failure is fatal to the
// attempt.
func (e *Engine) finishBooking(ctx context.Context, s *session, input string) []string {
	now := e.now()

	requested, err := schedule.ParseDateTime(input, now)
	if err != nil {
		var perr *schedule.ParseError
		if errors.As(err, &perr) {
			e.log.Debug("schedule input rejected",
				slog.String("event", "conv.schedule"),
				slog.String("status", "reprompt"),
				slog.String("contact", s.req.UserID),
				slog.String("cause", perr.Reason),
			)
		}
		return invalidFormatLines
	}

	if !e.hours.IsOpen(requested) {
		return outsideHoursLines
	}

	available, err := e.checker.IsAvailable(ctx, requested)
	if err != nil {
		// Neither store side could list bookings. Proceed as available
		// rather than blocking every customer on a read outage; the
		// conflict window is advisory across deployments anyway.
		e.log.Warn("availability check degraded",
			slog.String("event", "conv.availability"),
			slog.String("contact", s.req.UserID),
			slog.String("err", err.Error()),
		)
		available = true
	}
	if !available {
		return slotTakenLines
	}

	s.req.ScheduledAt = requested
	appt := store.Appointment{
		CreatedAt:   now,
		Name:        s.req.Name,
		ContactID:   s.req.UserID,
		Service:     s.req.Service,
		Device:      s.req.Device,
		Problem:     s.req.Problem,
		ScheduledAt: requested,
		Status:      store.StatusPending,
		Channel:     s.req.Channel,
	}

	res, err := e.store.Append(ctx, appt)
	if err != nil {
		// Fatal: the durable log rejected the write. Re-prompting with
		// the same data risks a user-visible duplicate, so reset.
		e.log.Error("booking not saved",
			slog.String("event", "conv.book"),
			slog.String("status", "fail"),
			slog.String("contact", s.req.UserID),
			slog.String("err", err.Error()),
		)
		s.reset()
		return saveFailedLines
	}

	if res.Degraded() {
		e.log.Warn("booking saved locally only",
			slog.String("event", "conv.book"),
			slog.String("status", "degraded"),
			slog.String("contact", s.req.UserID),
			slog.String("err", res.RemoteErr.Error()),
		)
	} else {
		e.log.Info("booking saved",
			slog.String("event", "conv.book"),
			slog.String("status", "ok"),
			slog.String("contact", s.req.UserID),
			slog.String("channel", string(s.req.Channel)),
			slog.Time("scheduled_at", requested),
		)
	}

	reply := confirmationLines(s.req, requested)
	s.reset()
	return reply
}
