// Package webhook is the WhatsApp/SMS transport: a small HTTP server
// that accepts Twilio-style form callbacks and answers with TwiML, so
// the carrier delivers the engine's reply back to the sender.
package webhook

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/myfimport/citabot/booking/store"
	coreconfig "github.com/myfimport/citabot/core/config"
	"github.com/myfimport/citabot/core/logger"
)

// Engine is the slice of the conversation engine this transport needs.
type Engine interface {
	HandleMessage(ctx context.Context, userID string, ch store.Channel, text string) []string
	Processed() uint64
}

// Server receives inbound message callbacks on /whatsapp and /sms and
// exposes the health endpoints the hosting platform probes.
type Server struct {
	engine Engine
	addr   string
	log    *slog.Logger
}

// New builds a webhook server from configuration.
func New(cfg *coreconfig.Config, engine Engine) *Server {
	listen := strings.TrimSpace(cfg.Webhook.Listen)
	addr := fmt.Sprintf("%s:%d", listen, cfg.Webhook.Port)
	log := logger.WA
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, addr: addr, log: log}
}

// Run serves until the context is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /whatsapp", s.handleInbound(store.ChannelWhatsApp))
	mux.HandleFunc("POST /sms", s.handleInbound(store.ChannelSMS))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleStatus)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info("webhook transport started",
		slog.String("event", "wa.start"),
		slog.String("listen", s.addr),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("webhook: serve: %w", err)
	}
}

// twiml is the minimal response document Twilio expects; each Message
// element becomes one outbound message to the sender.
type twiml struct {
	XMLName  xml.Name `xml:"Response"`
	Messages []string `xml:"Message"`
}

func (s *Server) handleInbound(ch store.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		from := strings.TrimSpace(r.PostFormValue("From"))
		body := r.PostFormValue("Body")
		if from == "" {
			http.Error(w, "missing From", http.StatusBadRequest)
			return
		}

		rid := uuid.NewString()
		ctx := logger.WithRID(r.Context(), rid)
		ctx = logger.WithMessageMeta(ctx, from, string(ch))

		s.log.Debug("message received",
			slog.String("rid", rid),
			slog.String("channel", string(ch)),
			slog.String("contact", from),
			slog.String("payload", logger.SanitizeLimit(body, 256)),
		)

		lines := s.engine.HandleMessage(ctx, from, ch, body)

		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		out, err := xml.Marshal(twiml{Messages: []string{strings.Join(lines, "\n")}})
		if err != nil {
			http.Error(w, "encode failed", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(xml.Header))
		w.Write(out)

		s.log.Debug("message handled",
			slog.String("rid", rid),
			slog.String("status", "ok"),
			slog.Duration("duration", logger.Took(start)),
		)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"message":   "Chatbot Server Running",
		"processed": s.engine.Processed(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
