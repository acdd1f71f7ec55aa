package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestHandler(format logFormat, out io.Writer) *structuredHandler {
	return newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: newFanoutWriter([]io.Writer{out}, 0),
		format: format,
	})
}

func TestHandlerKVKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newTestHandler(formatKV, &buf))

	log.Info("conv.book",
		slog.String("custom", "x"),
		slog.String("status", "ok"),
		slog.String("component", "conv"),
	)

	line := strings.TrimSpace(buf.String())
	fields := strings.Fields(line)
	keys := make([]string, len(fields))
	for i, f := range fields {
		k, _, ok := strings.Cut(f, "=")
		if !ok {
			t.Fatalf("field %q is not key=value in line %q", f, line)
		}
		keys[i] = k
	}
	want := []string{"ts", "level", "component", "event", "status", "custom"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key[%d] = %q, want %q (line %q)", i, keys[i], want[i], line)
		}
	}
}

func TestHandlerKVQuoting(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newTestHandler(formatKV, &buf))

	log.Info("probe", slog.String("err", `open "x": no such file`))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, `err="open \"x\": no such file"`) {
		t.Fatalf("value with spaces not quoted: %q", line)
	}
}

func TestHandlerJSONDeterministic(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newTestHandler(formatJSON, &buf))

	log.Warn("availability check degraded",
		slog.String("contact", "tg:1"),
		slog.String("err", "store down"),
	)

	line := strings.TrimSpace(buf.String())
	var rec map[string]string
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("line is not valid JSON: %v\n%s", err, line)
	}
	if rec["level"] != "WARN" || rec["event"] != "availability check degraded" {
		t.Fatalf("record = %v", rec)
	}
	if rec["contact"] != "tg:1" || rec["err"] != "store down" {
		t.Fatalf("record = %v", rec)
	}
	// contact ranks before err in the raw bytes.
	if strings.Index(line, `"contact"`) > strings.Index(line, `"err"`) {
		t.Fatalf("key order not deterministic: %s", line)
	}
}

func TestHandlerRIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newTestHandler(formatKV, &buf))

	ctx := WithRID(context.Background(), "42:100")
	log.InfoContext(ctx, "update.received")

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "rid=42:100") {
		t.Fatalf("rid from context missing: %q", line)
	}
}

func TestHandlerExplicitEventKeepsMessage(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newTestHandler(formatKV, &buf))

	log.Info("human readable text", slog.String("event", "conv.book"))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "event=conv.book") {
		t.Fatalf("explicit event lost: %q", line)
	}
	if !strings.Contains(line, `msg="human readable text"`) {
		t.Fatalf("message dropped alongside explicit event: %q", line)
	}
}

func TestHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	h := newStructuredHandler(handlerConfig{
		level:  slog.LevelInfo,
		writer: newFanoutWriter([]io.Writer{&buf}, 0),
		format: formatKV,
	})
	log := slog.New(h)

	log.Debug("hidden")
	log.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked through info level: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("info line missing: %q", out)
	}
}

func TestHandlerWithAttrsIsolated(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(newTestHandler(formatKV, &buf))
	tg := base.With(slog.String("component", "tg"))

	tg.Info("update.received")
	base.Info("startup")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "component=tg") {
		t.Fatalf("child logger missing component: %q", lines[0])
	}
	if strings.Contains(lines[1], "component=") {
		t.Fatalf("parent logger inherited child attr: %q", lines[1])
	}
}
