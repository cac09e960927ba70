package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PGSink persists events to the audit_event table. Storage failures are
// logged and swallowed so auditing can never fail a workflow call.
type PGSink struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPGSink(pool *pgxpool.Pool, logger zerolog.Logger) *PGSink {
	return &PGSink{pool: pool, logger: logger}
}

func (s *PGSink) Record(ctx context.Context, e Event) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_event (id, actor, actor_role, action, subject, recorded)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Actor, e.Role, e.Action, e.Subject, e.Recorded)
	if err != nil {
		s.logger.Error().Err(err).
			Str("event_id", e.ID.String()).
			Str("action", e.Action).
			Msg("failed to persist audit event")
	}
}
