// Package logging provides the slog handler used on the command line.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// LevelFromVerbosity maps the -v/-q balance onto a level: 1 or less is
// error, 2 warn, 3 info, 4 and above debug.
func LevelFromVerbosity(v int) slog.Level {
	switch {
	case v <= 1:
		return slog.LevelError
	case v == 2:
		return slog.LevelWarn
	case v == 3:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

type seen struct {
	level   slog.Level
	msg     string
	repeats int
}

// shared is the state common to a handler and its WithAttrs/WithGroup
// children
type shared struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
	seen  map[string]*seen
	order []string
}

// ConciseHandler writes each distinct line once. A record is a repeat when its
// level, message and attributes all match an earlier one; repeats are counted
// instead of printed, and Flush reports the counts.
type ConciseHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
	s      *shared
}

// NewConciseHandler writes to w. With useColor the level name is colored
// the way fatih/color does for a terminal.
func NewConciseHandler(w io.Writer, level slog.Leveler, useColor bool) *ConciseHandler {
	return &ConciseHandler{
		level: level,
		s: &shared{
			w:     w,
			color: useColor,
			seen:  make(map[string]*seen),
		},
	}
}

func (h *ConciseHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *ConciseHandler) Handle(_ context.Context, r slog.Record) error {
	// render the message with its attributes first, it is the dedup key
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	body := b.String()
	key := r.Level.String() + "\x00" + body

	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if prev, ok := h.s.seen[key]; ok {
		prev.repeats++
		return nil
	}
	h.s.seen[key] = &seen{level: r.Level, msg: body}
	h.s.order = append(h.s.order, key)

	_, err := io.WriteString(h.s.w, h.levelName(r.Level)+": "+body+"\n")
	return err
}

func (h *ConciseHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		c.attrs = append(c.attrs, a)
	}
	return &c
}

func (h *ConciseHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

// Flush reports every message that was suppressed at least once and resets
// the counts.
func (h *ConciseHandler) Flush() error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	var err error
	for _, key := range h.s.order {
		s := h.s.seen[key]
		if s.repeats == 0 {
			continue
		}
		times := "times"
		if s.repeats == 1 {
			times = "time"
		}
		_, werr := fmt.Fprintf(h.s.w, "%s: %s (repeated %d more %s)\n", h.levelName(s.level), s.msg, s.repeats, times)
		if werr != nil && err == nil {
			err = werr
		}
	}
	h.s.seen = make(map[string]*seen)
	h.s.order = nil
	return err
}

func (h *ConciseHandler) levelName(l slog.Level) string {
	name := l.String()
	if !h.s.color {
		return name
	}
	switch {
	case l >= slog.LevelError:
		return color.New(color.FgRed, color.Bold).Sprint(name)
	case l >= slog.LevelWarn:
		return color.New(color.FgYellow).Sprint(name)
	case l >= slog.LevelInfo:
		return color.New(color.FgCyan).Sprint(name)
	}
	return color.New(color.FgHiBlack).Sprint(name)
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, g := range a.Value.Group() {
			writeAttr(b, p, g)
		}
		return
	}
	v := a.Value.String()
	if strings.ContainsAny(v, " \t\"=") {
		v = fmt.Sprintf("%q", v)
	}
	fmt.Fprintf(b, " %s%s=%s", prefix, a.Key, v)
}

// New builds a logger on a ConciseHandler for the given verbosity
func New(w io.Writer, verbosity int, useColor bool) (*slog.Logger, *ConciseHandler) {
	h := NewConciseHandler(w, LevelFromVerbosity(verbosity), useColor)
	return slog.New(h), h
}
