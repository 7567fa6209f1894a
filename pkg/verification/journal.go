package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Journal collects the step log returned to the caller. Every entry is also
// written to the process logger. Entries past the cap are only logged, except
// those added with Final.
type Journal struct {
	entries   []LogEntry
	max       int
	truncated bool
	logger    *slog.Logger
	now       func() time.Time
}

func NewJournal(logger *slog.Logger, limit int) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 500
	}
	return &Journal{
		max:    limit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (j *Journal) Add(ctx context.Context, severity Severity, message string) {
	j.logger.Log(ctx, severity.level(), message, slog.String("severity", string(severity)))

	if len(j.entries) >= j.max {
		if !j.truncated {
			j.truncated = true
			j.entries = append(j.entries, LogEntry{
				Message:   fmt.Sprintf("Log limit of %d entries reached, further entries omitted", j.max),
				Type:      SeverityWarning,
				Timestamp: j.now(),
			})
		}
		return
	}

	j.entries = append(j.entries, LogEntry{
		Message:   message,
		Type:      severity,
		Timestamp: j.now(),
	})
}

// Final records how the run ended. It is kept even when the cap was reached.
func (j *Journal) Final(ctx context.Context, severity Severity, message string) {
	j.logger.Log(ctx, severity.level(), message, slog.String("severity", string(severity)))

	j.entries = append(j.entries, LogEntry{
		Message:   message,
		Type:      severity,
		Timestamp: j.now(),
	})
}

func (j *Journal) Finalf(ctx context.Context, severity Severity, format string, args ...any) {
	j.Final(ctx, severity, fmt.Sprintf(format, args...))
}

func (j *Journal) Addf(ctx context.Context, severity Severity, format string, args ...any) {
	j.Add(ctx, severity, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the journal.
func (j *Journal) Entries() []LogEntry {
	out := make([]LogEntry, len(j.entries))
	copy(out, j.entries)
	return out
}

func (s Severity) level() slog.Level {
	switch s {
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
