// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ferrywire/ferrywire/internal/domain"
)

// DeadLetterSink records events that could not be delivered within policy.
type DeadLetterSink interface {
	Record(ctx context.Context, dl domain.DeadLetter) error
}

// LogSink is the default sink: one structured log entry per dead letter,
// carrying the full event and its delivery history.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Record(ctx context.Context, dl domain.DeadLetter) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	event, _ := json.Marshal(dl.Event)
	attempts, _ := json.Marshal(dl.Attempts)

	logger.Error("event dead-lettered",
		"seq", dl.Event.Seq,
		"event_id", dl.Event.ID,
		"kind", dl.Event.Kind,
		"reason", dl.Reason,
		"attempts", len(dl.Attempts),
		"event", string(event),
		"attempt_history", string(attempts),
	)
	return nil
}
