// Package notify abstracts the desktop notification collaborator.
package notify

import "log/slog"

// Notifier is pinged when the pomodoro cycle changes phase. A GUI frontend
// typically backs this with a desktop notification daemon.
type Notifier interface {
	Ping(phase string)
}

// LogNotifier reports phase changes through the logger. It is the fallback
// when no desktop notifier is wired in.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Ping(phase string) {
	n.logger.Info("pomodoro phase changed", "phase", phase)
}
