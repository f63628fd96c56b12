// Package logging routes the framework's diagnostic stream onto logrus. Levels
// are hierarchical dot-separated names ("vkf.buffer.create",
// "vkf.validation.error"); a handler is built with wildcard patterns selecting
// which subtrees it lets through.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Handler filters framework diagnostics by level name and forwards the
// survivors to a logrus logger. It implements vkf.DebugLogger.
type Handler struct {
	log      *logrus.Logger
	patterns []string
}

// New builds a handler passing the given level patterns. A pattern is a
// dot-separated name whose last segment may be "*", matching the whole
// subtree: "vkf.buffer.*" passes every buffer event, "*" passes everything.
// With no patterns nothing passes.
func New(patterns ...string) *Handler {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return &Handler{log: log, patterns: patterns}
}

// SetOutput redirects the handler's output, stderr by default.
func (h *Handler) SetOutput(w io.Writer) {
	h.log.SetOutput(w)
}

// Enabled reports whether a level name passes the handler's patterns.
func (h *Handler) Enabled(level string) bool {
	for _, p := range h.patterns {
		if matchPattern(p, level) {
			return true
		}
	}
	return false
}

// Logf filters on the level name and forwards to logrus. Validation errors
// log at error severity and validation warnings at warn; everything else is
// debug detail.
func (h *Handler) Logf(level, format string, args ...interface{}) {
	if !h.Enabled(level) {
		return
	}
	entry := h.log.WithField("level", level)
	switch {
	case strings.HasSuffix(level, ".error"):
		entry.Errorf(format, args...)
	case strings.HasSuffix(level, ".warning"):
		entry.Warnf(format, args...)
	default:
		entry.Debugf(format, args...)
	}
}

func matchPattern(pattern, level string) bool {
	if pattern == "*" {
		return true
	}
	ps := strings.Split(pattern, ".")
	ls := strings.Split(level, ".")
	for i, seg := range ps {
		if seg == "*" {
			return i == len(ps)-1
		}
		if i >= len(ls) || seg != ls[i] {
			return false
		}
	}
	return len(ps) == len(ls)
}
