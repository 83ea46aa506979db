package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"trafficsignal/backend/services/signal-controller/internal/models"
)

// DecisionRepository appends decisions to an audit table. It is write-only; controller state is
// never restored from it.
type DecisionRepository struct {
	db *sql.DB
}

// NewDecisionRepository returns repository.
func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// EnsureSchema creates the audit table when it is missing.
func (r *DecisionRepository) EnsureSchema(ctx context.Context) error {
	const table = `
		CREATE TABLE IF NOT EXISTS signal_decisions (
			id              UUID PRIMARY KEY,
			intersection_id TEXT        NOT NULL,
			reason          TEXT        NOT NULL,
			green_lane      SMALLINT,
			emergency_lane  SMALLINT,
			vehicles        JSONB       NOT NULL,
			signals         JSONB       NOT NULL,
			decided_at      TIMESTAMPTZ NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	const index = `
		CREATE INDEX IF NOT EXISTS signal_decisions_intersection_time
			ON signal_decisions (intersection_id, decided_at DESC)
	`
	if _, err := r.db.ExecContext(ctx, table); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, index)
	return err
}

// Save stores one decision.
func (r *DecisionRepository) Save(ctx context.Context, status models.Status) error {
	vehicles, err := json.Marshal(status.Vehicles)
	if err != nil {
		return err
	}
	signals, err := json.Marshal(status.Signals)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO signal_decisions (id, intersection_id, reason, green_lane, emergency_lane, vehicles, signals, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = r.db.ExecContext(ctx, query,
		status.DecisionID,
		status.IntersectionID,
		status.Reason,
		nullableLane(status.CurrentGreen),
		nullableLane(status.EmergencyLane),
		vehicles,
		signals,
		status.DecidedAt.UTC(),
	)
	return err
}

// CountSince returns how many decisions of each reason were recorded at or after since. A zero
// since counts the whole table.
func (r *DecisionRepository) CountSince(ctx context.Context, intersectionID string, since time.Time) (map[string]int64, error) {
	const query = `
		SELECT reason, COUNT(*)
		FROM signal_decisions
		WHERE intersection_id = $1 AND ($2::timestamptz IS NULL OR decided_at >= $2)
		GROUP BY reason
	`
	var from sql.NullTime
	if !since.IsZero() {
		from = sql.NullTime{Time: since.UTC(), Valid: true}
	}
	rows, err := r.db.QueryContext(ctx, query, intersectionID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var reason string
		var n int64
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		counts[reason] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func nullableLane(lane *int) sql.NullInt16 {
	if lane == nil {
		return sql.NullInt16{}
	}
	return sql.NullInt16{Int16: int16(*lane), Valid: true}
}
