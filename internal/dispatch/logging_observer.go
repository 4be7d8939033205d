package dispatch

import "log/slog"

// LoggingObserver logs every dispatch event with structured fields.
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver returns an Observer backed by logger.
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

// OnEvent implements Observer.
func (lo *LoggingObserver) OnEvent(event Event) {
	lo.logger.Debug("command_lifecycle",
		"event", event.Type,
		"conn_id", event.ConnID,
		"command", event.Command,
		"timestamp", event.Timestamp,
		"data", event.Data,
	)
}
