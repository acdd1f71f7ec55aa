package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

type logFormat int

const (
	formatJSON logFormat = iota
	formatKV
)

// Keys emitted before everything else, in this order. Unknown keys
// follow in the order they were logged.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"channel",
	"contact",
	"step",
	"user_id",
	"chat_id",
	"op",
	"path",
	"count",
	"scheduled_at",
	"window_min",
	"duration_ms",
	"duration",
	"http_code",
	"cause",
	"err",
}

type handlerConfig struct {
	level    slog.Leveler
	writer   *fanoutWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as either single-line KV pairs or
// JSON with a deterministic key order, so logs stay grep- and
// diff-friendly regardless of call site.
type structuredHandler struct {
	cfg   handlerConfig
	rank  map[string]int
	attrs []slog.Attr
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if len(cfg.keyOrder) == 0 {
		cfg.keyOrder = defaultKeyOrder
	}
	rank := make(map[string]int, len(cfg.keyOrder))
	for i, k := range cfg.keyOrder {
		rank[k] = i
	}
	return &structuredHandler{cfg: cfg, rank: rank}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.cfg.level != nil {
		min = h.cfg.level.Level()
	}
	return level >= min
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup flattens groups; the key schema is flat by design.
func (h *structuredHandler) WithGroup(string) slog.Handler { return h }

func (h *structuredHandler) Handle(ctx context.Context, rec slog.Record) error {
	pairs := make([]pair, 0, rec.NumAttrs()+len(h.attrs)+6)
	pairs = append(pairs,
		pair{"ts", rec.Time.Format("2006-01-02T15:04:05.000Z07:00")},
		pair{"level", rec.Level.String()},
	)

	seen := map[string]bool{"ts": true, "level": true}
	add := func(a slog.Attr) {
		key := a.Key
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		pairs = append(pairs, pair{key, attrValue(a.Value)})
	}
	for _, a := range h.attrs {
		add(a)
	}
	if rid := RIDFrom(ctx); rid != "" && !seen["rid"] {
		add(slog.String("rid", rid))
	}
	rec.Attrs(func(a slog.Attr) bool {
		add(a)
		return true
	})
	if !seen["event"] && rec.Message != "" {
		pairs = append(pairs, pair{"event", rec.Message})
	} else if rec.Message != "" && seen["event"] {
		// Keep the message too when it is not a duplicate of event.
		if !messageEqualsEvent(pairs, rec.Message) {
			pairs = append(pairs, pair{"msg", rec.Message})
		}
	}

	ordered := h.order(pairs)

	var b strings.Builder
	switch h.cfg.format {
	case formatKV:
		for i, p := range ordered {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(p.key)
			b.WriteByte('=')
			b.WriteString(quoteKV(p.val))
		}
	default:
		b.WriteByte('{')
		for i, p := range ordered {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(p.key)
			vb, _ := json.Marshal(p.val)
			b.Write(kb)
			b.WriteByte(':')
			b.Write(vb)
		}
		b.WriteByte('}')
	}
	b.WriteByte('\n')

	return h.cfg.writer.Write([]byte(b.String()))
}

type pair struct {
	key string
	val string
}

func (h *structuredHandler) order(pairs []pair) []pair {
	known := make([]pair, 0, len(pairs))
	var rest []pair
	for _, want := range h.cfg.keyOrder {
		for _, p := range pairs {
			if p.key == want {
				known = append(known, p)
				break
			}
		}
	}
	for _, p := range pairs {
		if _, ok := h.rank[p.key]; !ok {
			rest = append(rest, p)
		}
	}
	return append(known, rest...)
}

func attrValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return fmt.Sprint(v.Any())
	}
}

func quoteKV(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func messageEqualsEvent(pairs []pair, msg string) bool {
	for _, p := range pairs {
		if p.key == "event" {
			return p.val == msg
		}
	}
	return false
}
