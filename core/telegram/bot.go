// Package telegram is the Telegram transport: it feeds inbound text
// messages to the conversation engine and delivers the engine's replies.
// All booking logic lives behind the Engine interface.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/myfimport/citabot/booking/store"
	coreconfig "github.com/myfimport/citabot/core/config"
	"github.com/myfimport/citabot/core/logger"
)

// Engine is the slice of the conversation engine this transport needs.
type Engine interface {
	HandleMessage(ctx context.Context, userID string, ch store.Channel, text string) []string
}

// Options configure Run.
type Options struct {
	Config *coreconfig.Config
	Engine Engine
}

// Run composes and runs the Telegram bot until the context is done.
func Run(ctx context.Context, opts Options) error {
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	if opts.Engine == nil {
		return fmt.Errorf("telegram: nil engine provided")
	}
	cfg := opts.Config.Telegram

	settings := tele.Settings{
		Token:  cfg.Token,
		Poller: buildPoller(cfg),
		Client: buildHTTPClient(),
		OnError: func(err error, c tele.Context) {
			logger.TG.Error("handler error",
				slog.String("event", "tg.error"),
				slog.String("err", err.Error()),
			)
		},
	}

	bot, err := tele.NewBot(settings)
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	bot.Use(recoverMiddleware)
	bot.Use(loggingMiddleware)
	bot.Handle(tele.OnText, textHandler(opts.Engine))

	logger.TG.Info("telegram transport started",
		slog.String("event", "tg.start"),
		slog.String("mode", cfg.RunMode),
	)

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	case <-runDone:
		return nil
	}
}

// textHandler routes every text message, /start included, through the
// engine; greeting handling is the engine's job, not the transport's.
func textHandler(engine Engine) tele.HandlerFunc {
	return func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return nil
		}
		contact := fmt.Sprintf("telegram:%d", chat.ID)

		ctx := logger.WithRID(context.Background(), logger.BuildRID(c.Update().ID, chat.ID))
		ctx = logger.WithMessageMeta(ctx, contact, string(store.ChannelTelegram))

		lines := engine.HandleMessage(ctx, contact, store.ChannelTelegram, c.Text())
		if len(lines) == 0 {
			return nil
		}
		return c.Send(strings.Join(lines, "\n"), tele.ModeMarkdown)
	}
}

func buildPoller(cfg coreconfig.TelegramConfig) tele.Poller {
	if strings.EqualFold(cfg.RunMode, coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", cfg.WebhookListen, cfg.WebhookPort),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	}
	timeoutSec := cfg.LongPollTimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	return &tele.LongPoller{Timeout: time.Duration(timeoutSec) * time.Second}
}

func buildHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 65 * time.Second,
		},
	}
}
