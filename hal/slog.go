package hal

import (
	"bytes"
	"log/slog"
)

// NewSlog returns a structured logger that writes one text record per line
// to l.
func NewSlog(l Logger, level slog.Level) *slog.Logger {
	h := slog.NewTextHandler(lineWriter{l: l}, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

type lineWriter struct {
	l Logger
}

func (w lineWriter) Write(p []byte) (int, error) {
	w.l.WriteLineBytes(bytes.TrimRight(p, "\n"))
	return len(p), nil
}
