// SPDX-License-Identifier: GPL-2.0-or-later

package log

// API inspired by zerolog https://github.com/rs/zerolog

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Level defines log level.
type Level uint8

// Logging constants, matching ffmpeg.
const (
	LevelError   Level = 16
	LevelWarning Level = 24
	LevelInfo    Level = 32
	LevelDebug   Level = 48
)

// ErrUnknownLevel unknown log level name.
var ErrUnknownLevel = errors.New("unknown log level")

// ParseLevel parses level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "error":
		return LevelError, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// UnixMicro time.
type UnixMicro uint64

// Entry log entry.
type Entry struct {
	Level Level
	Time  UnixMicro // Timestamp.
	Src   string    // Source.
	File  string    // Input file, optional.
	Msg   string
}

// ILogger interface used by components.
type ILogger interface {
	Log(Entry)
}

// Event defines log event.
type Event struct {
	level Level
	time  UnixMicro
	src   string
	file  string

	logger ILogger
}

// Src sets event source.
func (e *Event) Src(source string) *Event {
	e.src = source
	return e
}

// File sets the input file the event refers to.
func (e *Event) File(name string) *Event {
	e.file = name
	return e
}

// Time sets event time.
func (e *Event) Time(t time.Time) *Event {
	e.time = UnixMicro(t.UnixNano() / 1000)
	return e
}

// Msg sends the *Event with msg added as the message field.
func (e *Event) Msg(msg string) {
	e.logger.Log(Entry{
		Level: e.level,
		Time:  e.time,
		Src:   e.src,
		File:  e.file,
		Msg:   msg,
	})
}

// Msgf sends the event with formatted msg added as the message field.
func (e *Event) Msgf(format string, v ...interface{}) {
	e.Msg(fmt.Sprintf(format, v...))
}

// CancelFunc cancels log feed subscription.
type CancelFunc func()

// Logger distributes log entries to subscribers.
type Logger struct {
	subs   map[int]func(Entry)
	nextID int
	mu     sync.Mutex
}

// NewLogger returns Logger.
func NewLogger() *Logger {
	return &Logger{
		subs: make(map[int]func(Entry)),
	}
}

// NewMockLogger used for testing.
func NewMockLogger() *Logger {
	return NewLogger()
}

// Log sends entry to every subscriber.
// Entries are delivered in the order they are logged.
func (l *Logger) Log(entry Entry) {
	if entry.Time == 0 {
		entry.Time = UnixMicro(time.Now().UnixNano() / 1000)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for id := 0; id < l.nextID; id++ {
		if sub, exists := l.subs[id]; exists {
			sub(entry)
		}
	}
}

// Subscribe calls fn for every subsequent entry until canceled.
func (l *Logger) Subscribe(fn func(Entry)) CancelFunc {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// LogToWriter prints every entry at or below maxLevel to w.
func (l *Logger) LogToWriter(w io.Writer, maxLevel Level) CancelFunc {
	return l.Subscribe(func(entry Entry) {
		if entry.Level > maxLevel {
			return
		}
		fmt.Fprintln(w, FormatEntry(entry))
	})
}

// FormatEntry formats entry as a single line.
func FormatEntry(entry Entry) string {
	var b strings.Builder

	switch entry.Level {
	case LevelError:
		b.WriteString("[ERROR] ")
	case LevelWarning:
		b.WriteString("[WARNING] ")
	case LevelInfo:
		b.WriteString("[INFO] ")
	case LevelDebug:
		b.WriteString("[DEBUG] ")
	}

	if entry.File != "" {
		b.WriteString(entry.File + ": ")
	}
	if entry.Src != "" {
		b.WriteString(strings.ToUpper(entry.Src[:1]) + entry.Src[1:] + ": ")
	}

	b.WriteString(entry.Msg)
	return b.String()
}

// Error starts a new message with error level.
// You must call Msg on the returned event in order to send the event.
func Error(l ILogger) *Event {
	return newEvent(l, LevelError)
}

// Warn starts a new message with warn level.
// You must call Msg on the returned event in order to send the event.
func Warn(l ILogger) *Event {
	return newEvent(l, LevelWarning)
}

// Info starts a new message with info level.
// You must call Msg on the returned event in order to send the event.
func Info(l ILogger) *Event {
	return newEvent(l, LevelInfo)
}

// Debug starts a new message with debug level.
// You must call Msg on the returned event in order to send the event.
func Debug(l ILogger) *Event {
	return newEvent(l, LevelDebug)
}

func newEvent(l ILogger, level Level) *Event {
	return &Event{
		level:  level,
		time:   UnixMicro(time.Now().UnixNano() / 1000),
		logger: l,
	}
}

// Error starts a new message with error level.
func (l *Logger) Error() *Event { return Error(l) }

// Warn starts a new message with warn level.
func (l *Logger) Warn() *Event { return Warn(l) }

// Info starts a new message with info level.
func (l *Logger) Info() *Event { return Info(l) }

// Debug starts a new message with debug level.
func (l *Logger) Debug() *Event { return Debug(l) }

// Recorder ILogger that keeps every entry, used for testing.
type Recorder struct {
	Entries []Entry
	mu      sync.Mutex
}

// Log implements ILogger.
func (r *Recorder) Log(entry Entry) {
	r.mu.Lock()
	r.Entries = append(r.Entries, entry)
	r.mu.Unlock()
}

// Levels returns entries with the given level.
func (r *Recorder) Levels(level Level) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var entries []Entry
	for _, e := range r.Entries {
		if e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}
