package logger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dagucloud/rollbuf/internal/rollbuf"
)

// Entry is a log record kept by HistoryHandler.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   []slog.Attr
}

// String renders the entry in the text handler's key=value style.
func (e Entry) String() string {
	var sb strings.Builder
	sb.WriteString(e.Time.Format(time.RFC3339))
	sb.WriteByte(' ')
	sb.WriteString(e.Level.String())
	sb.WriteByte(' ')
	sb.WriteString(e.Message)
	for _, a := range e.Attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.String())
	}
	return sb.String()
}

type history struct {
	mu  sync.RWMutex
	buf *rollbuf.Buffer[Entry]
}

var _ slog.Handler = (*HistoryHandler)(nil)

// HistoryHandler is a slog.Handler that remembers the most recent records.
// Handlers derived through WithAttrs and WithGroup share the same history.
type HistoryHandler struct {
	h      *history
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// NewHistoryHandler returns a handler keeping the last size records at or
// above level.
func NewHistoryHandler(size int, level slog.Leveler) (*HistoryHandler, error) {
	buf, err := rollbuf.New[Entry](size)
	if err != nil {
		return nil, err
	}
	return &HistoryHandler{
		h:     &history{buf: buf},
		level: level,
	}, nil
}

// Enabled implements slog.Handler.
func (s *HistoryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= s.level.Level()
}

// Handle implements slog.Handler.
func (s *HistoryHandler) Handle(_ context.Context, record slog.Record) error {
	entry := Entry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Attrs:   make([]slog.Attr, 0, len(s.attrs)+record.NumAttrs()),
	}
	entry.Attrs = append(entry.Attrs, s.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		entry.Attrs = append(entry.Attrs, s.qualify(a))
		return true
	})

	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	s.h.buf.Add(entry)
	return nil
}

// WithAttrs implements slog.Handler.
func (s *HistoryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := s.clone()
	for _, a := range attrs {
		next.attrs = append(next.attrs, s.qualify(a))
	}
	return next
}

// WithGroup implements slog.Handler.
func (s *HistoryHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	next := s.clone()
	next.prefix = s.prefix + name + "."
	return next
}

// Entries returns the remembered records, oldest first.
func (s *HistoryHandler) Entries() []Entry {
	s.h.mu.RLock()
	defer s.h.mu.RUnlock()
	return s.h.buf.Items()
}

func (s *HistoryHandler) clone() *HistoryHandler {
	return &HistoryHandler{
		h:      s.h,
		level:  s.level,
		attrs:  append([]slog.Attr(nil), s.attrs...),
		prefix: s.prefix,
	}
}

func (s *HistoryHandler) qualify(a slog.Attr) slog.Attr {
	if s.prefix == "" {
		return a
	}
	a.Key = s.prefix + a.Key
	return a
}
