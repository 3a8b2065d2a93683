// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🎨 Level controls how an event is echoed to the console
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// 📝 Event is a single pipeline log record
type Event struct {
	Message string `json:"message"`
	Details []any  `json:"obj,omitempty"`
	Level   Level  `json:"-"`
}

// MarshalJSON renders error details as their message so they survive encoding.
func (e Event) MarshalJSON() ([]byte, error) {
	type event Event
	out := event(e)
	if len(e.Details) > 0 {
		out.Details = make([]any, len(e.Details))
		for i, d := range e.Details {
			if err, ok := d.(error); ok {
				out.Details[i] = err.Error()
				continue
			}
			out.Details[i] = d
		}
	}
	return json.Marshal(out)
}

// 🎯 Logger is an append-only, ordered event log shared by the pipeline stages.
// Every event is echoed to the console unless silent mode is on, and mirrored
// to the zerolog logger carried in the context.
type Logger struct {
	console io.Writer
	mu      sync.Mutex
	silent  bool
	events  []Event
}

// 🏭 New creates a new logger
func New(console io.Writer) *Logger {
	if console == nil {
		console = io.Discard
	}
	return &Logger{
		console: console,
		mu:      sync.Mutex{},
	}
}

// 🔇 SetSilent toggles console echo. Events are still recorded.
func (l *Logger) SetSilent(silent bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.silent = silent
}

// 📝 Record appends an informational event
func (l *Logger) Record(ctx context.Context, msg string, details ...any) {
	l.append(ctx, Event{Message: msg, Details: details, Level: LevelInfo})
}

// 📝 Success appends a success event
func (l *Logger) Success(ctx context.Context, msg string, details ...any) {
	l.append(ctx, Event{Message: msg, Details: details, Level: LevelSuccess})
}

// 📝 Warning appends a warning event
func (l *Logger) Warning(ctx context.Context, msg string, details ...any) {
	l.append(ctx, Event{Message: msg, Details: details, Level: LevelWarning})
}

// 📝 Error appends an error event
func (l *Logger) Error(ctx context.Context, msg string, details ...any) {
	l.append(ctx, Event{Message: msg, Details: details, Level: LevelError})
}

// 📝 Recordf appends a formatted informational event
func (l *Logger) Recordf(ctx context.Context, format string, args ...interface{}) {
	l.Record(ctx, fmt.Sprintf(format, args...))
}

func (l *Logger) append(ctx context.Context, e Event) {
	if len(e.Details) == 0 {
		e.Details = nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, e)

	if !l.silent {
		fmt.Fprintln(l.console, FormatEvent(e))
	}

	zl := zerolog.Ctx(ctx)
	var ev *zerolog.Event
	switch e.Level {
	case LevelError:
		ev = zl.Error()
	case LevelWarning:
		ev = zl.Warn()
	default:
		ev = zl.Debug()
	}
	if len(e.Details) > 0 {
		ev = ev.Interface("obj", e.Details)
	}
	ev.Msg(e.Message)
}

// 📋 Events returns a copy of the recorded events in append order
func (l *Logger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// 🔍 Messages returns the recorded messages in append order
func (l *Logger) Messages() []string {
	events := l.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Message
	}
	return out
}

// 💾 Flush writes every recorded event to path as an indented JSON array,
// replacing any existing file.
func (l *Logger) Flush(path string) error {
	events := l.Events()

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return errors.Errorf("encoding events: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// 🖌️ FormatEvent formats an event for the console
func FormatEvent(e Event) string {
	var b strings.Builder
	switch e.Level {
	case LevelSuccess:
		fmt.Fprintf(&b, "✅ %s", color.New(color.FgGreen).Sprint(e.Message))
	case LevelWarning:
		fmt.Fprintf(&b, "⚠️  %s", color.New(color.FgYellow).Sprint(e.Message))
	case LevelError:
		fmt.Fprintf(&b, "❌ %s", color.New(color.FgRed).Sprint(e.Message))
	default:
		fmt.Fprintf(&b, "ℹ️  %s", color.New(color.FgCyan).Sprint(e.Message))
	}
	for _, d := range e.Details {
		fmt.Fprintf(&b, " %s", color.New(color.Faint).Sprint(d))
	}
	return b.String()
}

// 📝 Header prints a banner line without recording it
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.silent {
		return
	}
	name := color.New(color.Bold, color.FgCyan).Sprint("hdrpack")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
}
