// citabot is the appointment-booking assistant for the MyF repair shop.
// It serves the same conversation over Telegram and Twilio-style
// WhatsApp/SMS webhooks, logging every confirmed booking to a durable
// local file and mirroring it to a shared Google Sheet.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/myfimport/citabot/booking/conversation"
	"github.com/myfimport/citabot/booking/store"
	coreconfig "github.com/myfimport/citabot/core/config"
	"github.com/myfimport/citabot/core/logger"
	"github.com/myfimport/citabot/core/telegram"
	"github.com/myfimport/citabot/core/webhook"
)

const heartbeatInterval = time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatalf("citabot: %v", err)
	}
}

func run() error {
	// Matches the original deployment: secrets come from a .env file
	// when present. A missing file is fine.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg); err != nil {
		return err
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appointments, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}

	engine := conversation.New(conversation.Options{
		Store:          appointments,
		Hours:          cfg.WeeklyHours(),
		ConflictWindow: cfg.ConflictWindow(),
		Logger:         logger.CONV,
	})

	errCh := make(chan error, 2)

	go func() {
		srv := webhook.New(cfg, engine)
		errCh <- srv.Run(ctx)
	}()

	if cfg.TelegramEnabled() {
		go func() {
			errCh <- telegram.Run(ctx, telegram.Options{Config: cfg, Engine: engine})
		}()
	} else {
		logger.APP.Warn("telegram disabled: no token configured",
			slog.String("event", "app.telegram"),
		)
	}

	go heartbeat(ctx, engine)

	logger.APP.Info("app ready", slog.String("event", "ready"))

	select {
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		logger.APP.Info("shutting down...", slog.String("event", "shutdown"))
		// Give transports a moment to stop cleanly.
		timer := time.NewTimer(5 * time.Second)
		defer timer.Stop()
		select {
		case <-errCh:
		case <-timer.C:
		}
		return nil
	}
}

func buildStore(ctx context.Context, cfg *coreconfig.Config) (store.Store, error) {
	local := store.NewLocalLog(cfg.Storage.AppointmentsFile)

	var remote store.RemoteMirror
	if cfg.RemoteStoreEnabled() {
		sheet, err := store.NewSheetStore(ctx, store.SheetConfig{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			SheetName:       cfg.Sheets.SheetName,
			CredentialsFile: cfg.Sheets.CredentialsFile,
			Email:           cfg.Sheets.Email,
			PrivateKey:      cfg.Sheets.PrivateKey,
		})
		if err != nil {
			// The local log alone keeps bookings safe; start degraded
			// instead of refusing to serve customers.
			logger.STORE.Warn("remote store unavailable, running degraded",
				slog.String("event", "store.init"),
				slog.String("err", err.Error()),
			)
		} else {
			remote = sheet
		}
	} else {
		logger.STORE.Warn("no spreadsheet configured, local log only",
			slog.String("event", "store.init"),
		)
	}

	return store.NewDualStore(local, remote, logger.STORE), nil
}

func heartbeat(ctx context.Context, engine *conversation.Engine) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.APP.Info("alive",
				slog.String("event", "heartbeat"),
				slog.Uint64("processed", engine.Processed()),
				slog.Int("sessions", engine.Registry().Len()),
			)
		}
	}
}
