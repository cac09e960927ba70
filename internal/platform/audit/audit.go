// Package audit records who did what to whom. Sinks are fire-and-forget:
// recording never fails the operation being audited.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event describes one completed workflow operation. Exactly one event is
// emitted per successful call; failed calls emit nothing.
type Event struct {
	ID       uuid.UUID `db:"id" json:"id"`
	Actor    string    `db:"actor" json:"actor"`
	Role     string    `db:"actor_role" json:"actor_role"`
	Action   string    `db:"action" json:"action"`
	Subject  string    `db:"subject" json:"subject"`
	Recorded time.Time `db:"recorded" json:"recorded"`
}

// New builds an event stamped with a fresh id and the current time.
func New(actor, role, action, subject string) Event {
	return Event{
		ID:       uuid.New(),
		Actor:    actor,
		Role:     role,
		Action:   action,
		Subject:  subject,
		Recorded: time.Now().UTC(),
	}
}

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, e Event)
}

// LogSink writes events to the structured log.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(_ context.Context, e Event) {
	s.logger.Info().
		Str("type", "audit").
		Str("event_id", e.ID.String()).
		Str("actor", e.Actor).
		Str("actor_role", e.Role).
		Str("action", e.Action).
		Str("subject", e.Subject).
		Time("recorded", e.Recorded).
		Msg("audit")
}

// MultiSink fans an event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, e Event) {
	for _, s := range m {
		s.Record(ctx, e)
	}
}
