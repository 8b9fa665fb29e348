package logging

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type EventType string

const (
	EventInputDecoded    EventType = "input_decoded"
	EventKeySizeGuessed  EventType = "keysize_guessed"
	EventColumnsSolved   EventType = "columns_solved"
	EventKeyAssembled    EventType = "key_assembled"
	EventCursorMoved     EventType = "cursor_moved"
	EventCursorRejected  EventType = "cursor_rejected"
	EventDetection       EventType = "detection"
	EventHistoryRecorded EventType = "history_recorded"
)

type Outcome string

const (
	OutcomeInfo     Outcome = "info"
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
)

// Event is one line of the analysis event log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Component string         `json:"component"`
	EventType EventType      `json:"event_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Outcome   Outcome        `json:"outcome,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

type Option func(*config) error

type config struct {
	writers          []io.Writer
	closers          []io.Closer
	useDefaultWriter bool
}

func defaultConfig() *config {
	return &config{writers: []io.Writer{os.Stdout}, useDefaultWriter: true}
}

func WithWriter(w io.Writer) Option {
	return func(cfg *config) error {
		if w == nil {
			return errors.New("writer cannot be nil")
		}
		cfg.writers = append(cfg.writers, w)
		return nil
	}
}

// WithFile appends events to path, creating it when missing.
func WithFile(path string) Option {
	return func(cfg *config) error {
		if strings.TrimSpace(path) == "" {
			return errors.New("file path cannot be empty")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		cfg.writers = append(cfg.writers, f)
		cfg.closers = append(cfg.closers, f)
		return nil
	}
}

func WithoutStdout() Option {
	return func(cfg *config) error {
		cfg.useDefaultWriter = false
		filtered := cfg.writers[:0]
		for _, w := range cfg.writers {
			if w == os.Stdout {
				continue
			}
			filtered = append(filtered, w)
		}
		cfg.writers = filtered
		return nil
	}
}

type eventCore struct {
	mu      sync.Mutex
	encoder *json.Encoder
	closers []io.Closer
}

// EventLogger writes analysis events as JSON lines. Loggers derived with
// WithComponent share the underlying writers.
type EventLogger struct {
	component   string
	core        *eventCore
	ownsClosers bool
}

func NewEventLogger(component string, opts ...Option) (*EventLogger, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			for _, closer := range cfg.closers {
				_ = closer.Close()
			}
			return nil, err
		}
	}
	if len(cfg.writers) == 0 {
		return nil, errors.New("no writers configured for event logger")
	}
	enc := json.NewEncoder(io.MultiWriter(cfg.writers...))
	enc.SetEscapeHTML(false)
	return &EventLogger{
		component:   component,
		core:        &eventCore{encoder: enc, closers: cfg.closers},
		ownsClosers: true,
	}, nil
}

// Discard returns a logger that drops every event.
func Discard() *EventLogger {
	logger, _ := NewEventLogger("", WithoutStdout(), WithWriter(io.Discard))
	return logger
}

func (l *EventLogger) Close() error {
	if l == nil || !l.ownsClosers || l.core == nil {
		return nil
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	var firstErr error
	for _, closer := range l.core.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.core.closers = nil
	return firstErr
}

func (l *EventLogger) Emit(event Event) error {
	if l == nil {
		return errors.New("nil event logger")
	}
	if l.core == nil {
		return errors.New("nil event logger core")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	} else {
		event.Timestamp = event.Timestamp.UTC()
	}
	if event.Component == "" {
		event.Component = l.component
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.encoder.Encode(event)
}

func (l *EventLogger) WithComponent(component string) *EventLogger {
	if l == nil || l.core == nil {
		return nil
	}
	return &EventLogger{
		component:   component,
		core:        l.core,
		ownsClosers: false,
	}
}
