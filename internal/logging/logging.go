// Package logging wires the daemon's structured logger: a console text
// handler, plus a Seq ingestion handler when a Seq endpoint is reachable.
package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	slogseq "github.com/sokkalf/slog-seq"
)

// defaultSeqURL is where the Seq sink ingests from unless overridden via
// the TOONSTORED_SEQ_URL environment variable.
const defaultSeqURL = "http://localhost:5341"

// fanoutHandler forwards each record to every target handler.
type fanoutHandler struct {
	targets []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.targets {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.targets {
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	targets := make([]slog.Handler, len(f.targets))
	for i, h := range f.targets {
		targets[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{targets: targets}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	targets := make([]slog.Handler, len(f.targets))
	for i, h := range f.targets {
		targets[i] = h.WithGroup(name)
	}
	return &fanoutHandler{targets: targets}
}

// Setup builds the daemon's logger and returns it with a flush/close
// function the caller defers. Seq ingestion is best-effort: when no Seq
// handler can be constructed, the console handler serves alone.
func Setup() (*slog.Logger, func()) {
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})

	seqURL := os.Getenv("TOONSTORED_SEQ_URL")
	if seqURL == "" {
		seqURL = defaultSeqURL
	}
	_, seqHandler := slogseq.NewLogger(
		seqURL,
		slogseq.WithBatchSize(1),
		slogseq.WithFlushInterval(500*time.Millisecond),
		slogseq.WithHandlerOptions(&slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}),
	)
	if seqHandler == nil {
		return slog.New(console), func() {}
	}

	logger := slog.New(&fanoutHandler{
		targets: []slog.Handler{console, seqHandler},
	})
	return logger, func() { seqHandler.Close() }
}
