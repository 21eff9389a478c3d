package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
)

// Poster はFluent Bitへのレコード送信を抽象化する。
// *fluent.Fluent がこれを満たす。
type Poster interface {
	Post(tag string, message interface{}) error
}

// NewFluentClient はFluent Bitへの非同期クライアントを生成する。
// 接続は送信時に確立されるため、生成成功はFluent Bitの到達性を保証しない。
func NewFluentClient(host string, port int, tagPrefix string) (*fluent.Fluent, error) {
	if tagPrefix == "" {
		return nil, errors.New("fluent tag prefix is required")
	}
	client, err := fluent.New(fluent.Config{
		FluentHost: host,
		FluentPort: port,
		TagPrefix:  tagPrefix,
		Async:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fluent client: %w", err)
	}
	return client, nil
}

// fluentHandler はslogのレコードをFluent Bitへ転送するslog.Handler。
// タグはレベル名（info, warn, ...）で、TagPrefixはクライアント側で付与される。
type fluentHandler struct {
	poster Poster
	level  slog.Level
	attrs  []slog.Attr
	group  string
}

func newFluentHandler(p Poster, level slog.Level) *fluentHandler {
	return &fluentHandler{poster: p, level: level}
}

func (h *fluentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *fluentHandler) Handle(_ context.Context, r slog.Record) error {
	data := make(map[string]interface{}, len(h.attrs)+r.NumAttrs()+3)
	for _, a := range h.attrs {
		putAttr(data, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		putAttr(data, h.group, a)
		return true
	})

	data["level"] = strings.ToLower(r.Level.String())
	data["message"] = r.Message
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	data["timestamp"] = ts.UTC().Format(time.RFC3339Nano)

	return h.poster.Post(strings.ToLower(r.Level.String()), data)
}

func (h *fluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *fluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return &next
}

// putAttr はグループをドット区切りのキーに展開してdataへ格納する。
func putAttr(data map[string]interface{}, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	switch v.Kind() {
	case slog.KindGroup:
		for _, ga := range v.Group() {
			putAttr(data, key, ga)
		}
	case slog.KindTime:
		data[key] = v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindDuration:
		data[key] = v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			data[key] = err.Error()
			return
		}
		data[key] = v.Any()
	default:
		if key == "" {
			return
		}
		data[key] = v.Any()
	}
}

// fanoutHandler は同じレコードを複数のハンドラに渡す。
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) *fanoutHandler {
	return &fanoutHandler{handlers: handlers}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, hh := range h.handlers {
		if !hh.Enabled(ctx, r.Level) {
			continue
		}
		if err := hh.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
