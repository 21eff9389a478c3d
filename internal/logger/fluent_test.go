package logger

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

type postedRecord struct {
	tag  string
	data map[string]interface{}
}

type fakePoster struct {
	mu      sync.Mutex
	records []postedRecord
	err     error
}

func (p *fakePoster) Post(tag string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, _ := message.(map[string]interface{})
	p.records = append(p.records, postedRecord{tag: tag, data: data})
	return p.err
}

func (p *fakePoster) last(t *testing.T) postedRecord {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.records) == 0 {
		t.Fatal("expected at least one posted record")
	}
	return p.records[len(p.records)-1]
}

func TestFluentHandler_PostsRecordWithLevelTag(t *testing.T) {
	p := &fakePoster{}
	l := slog.New(newFluentHandler(p, slog.LevelInfo))

	l.Warn("favorite conflict", slog.String("meal_id", "52772"), slog.Int("attempts", 2))

	rec := p.last(t)
	if rec.tag != "warn" {
		t.Errorf("tag = %q, want %q", rec.tag, "warn")
	}
	if rec.data["message"] != "favorite conflict" {
		t.Errorf("message = %v, want %q", rec.data["message"], "favorite conflict")
	}
	if rec.data["level"] != "warn" {
		t.Errorf("level = %v, want %q", rec.data["level"], "warn")
	}
	if rec.data["meal_id"] != "52772" {
		t.Errorf("meal_id = %v, want %q", rec.data["meal_id"], "52772")
	}
	if rec.data["attempts"] != int64(2) {
		t.Errorf("attempts = %v (%T), want int64(2)", rec.data["attempts"], rec.data["attempts"])
	}
	if _, ok := rec.data["timestamp"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestFluentHandler_FiltersBelowLevel(t *testing.T) {
	p := &fakePoster{}
	l := slog.New(newFluentHandler(p, slog.LevelWarn))

	l.Info("ignored")
	l.Debug("ignored too")

	if len(p.records) != 0 {
		t.Errorf("expected no records below warn, got %d", len(p.records))
	}
}

func TestFluentHandler_ErrorsAreStringified(t *testing.T) {
	p := &fakePoster{}
	l := slog.New(newFluentHandler(p, slog.LevelInfo))

	l.Error("store failure", slog.Any("error", errors.New("connection refused")))

	rec := p.last(t)
	if rec.data["error"] != "connection refused" {
		t.Errorf("error = %v, want %q", rec.data["error"], "connection refused")
	}
}

func TestFluentHandler_WithAttrsAndGroup(t *testing.T) {
	p := &fakePoster{}
	l := slog.New(newFluentHandler(p, slog.LevelInfo)).
		With(slog.String("component", "favorite")).
		WithGroup("req").
		With(slog.String("method", "POST"))

	l.Info("handled", slog.Int("status", 200))

	rec := p.last(t)
	if rec.data["component"] != "favorite" {
		t.Errorf("component = %v, want %q", rec.data["component"], "favorite")
	}
	if rec.data["req.method"] != "POST" {
		t.Errorf("req.method = %v, want %q", rec.data["req.method"], "POST")
	}
	if rec.data["req.status"] != int64(200) {
		t.Errorf("req.status = %v, want 200", rec.data["req.status"])
	}
}

func TestFluentHandler_NestedGroupAttr(t *testing.T) {
	p := &fakePoster{}
	l := slog.New(newFluentHandler(p, slog.LevelInfo))

	l.Info("upstream", slog.Group("meal", slog.String("id", "1"), slog.String("name", "Soup")))

	rec := p.last(t)
	if rec.data["meal.id"] != "1" {
		t.Errorf("meal.id = %v, want %q", rec.data["meal.id"], "1")
	}
	if rec.data["meal.name"] != "Soup" {
		t.Errorf("meal.name = %v, want %q", rec.data["meal.name"], "Soup")
	}
}

func TestFanoutHandler_WritesToAllHandlers(t *testing.T) {
	var buf bytes.Buffer
	p := &fakePoster{}
	l := slog.New(newFanoutHandler(
		slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		newFluentHandler(p, slog.LevelInfo),
	))

	l.Info("both sinks", slog.String("k", "v"))

	if !strings.Contains(buf.String(), "both sinks") {
		t.Errorf("console output missing message: %q", buf.String())
	}
	if rec := p.last(t); rec.data["k"] != "v" {
		t.Errorf("fluent k = %v, want %q", rec.data["k"], "v")
	}
}

func TestFanoutHandler_PosterErrorDoesNotBlockConsole(t *testing.T) {
	var buf bytes.Buffer
	p := &fakePoster{err: errors.New("fluent down")}
	h := newFanoutHandler(
		newFluentHandler(p, slog.LevelInfo),
		slog.NewJSONHandler(&buf, nil),
	)
	l := slog.New(h)

	l.Info("still logged")

	if !strings.Contains(buf.String(), "still logged") {
		t.Errorf("console handler should receive the record even if fluent fails, got %q", buf.String())
	}
}

func TestConfigure_WithFluentForwardsRecords(t *testing.T) {
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil))) })

	var buf bytes.Buffer
	p := &fakePoster{}
	l := Configure(&buf, Options{Format: "json", Level: "info", Fluent: p})

	l.Info("forwarded")

	if rec := p.last(t); rec.data["message"] != "forwarded" {
		t.Errorf("message = %v, want %q", rec.data["message"], "forwarded")
	}
	if !strings.Contains(buf.String(), "forwarded") {
		t.Errorf("console output missing message: %q", buf.String())
	}
}

func TestNewFluentClient_RequiresTagPrefix(t *testing.T) {
	if _, err := NewFluentClient("localhost", 24224, ""); err == nil {
		t.Fatal("expected error for empty tag prefix, got nil")
	}
}
