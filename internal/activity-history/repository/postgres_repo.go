package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radieske/bankroll-challenges/pkg/contracts/events"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS challenge_activity (
		id           BIGSERIAL PRIMARY KEY,
		event_id     TEXT NOT NULL UNIQUE,
		kind         TEXT NOT NULL,
		challenge_id TEXT NOT NULL,
		bet_id       TEXT NULL,
		user_id      TEXT NOT NULL,
		status       TEXT NULL,
		old_result   TEXT NULL,
		new_result   TEXT NULL,
		stake        NUMERIC NULL,
		odds         NUMERIC NULL,
		payout       NUMERIC NULL,
		profit       NUMERIC NULL,
		occurred_at  TIMESTAMPTZ NOT NULL,
		recorded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_challenge_activity_challenge ON challenge_activity (challenge_id, occurred_at)`,
}

// PostgresRepo grava o histórico de atividades dos desafios
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// Migrate cria a tabela de histórico se ainda não existir
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}

// InsertActivity grava o evento uma única vez por event_id.
// Reentregas do Kafka caem no ON CONFLICT e devolvem inserted=false.
func (r *PostgresRepo) InsertActivity(ctx context.Context, a events.Activity) (bool, error) {
	const q = `
		INSERT INTO challenge_activity
		  (event_id, kind, challenge_id, bet_id, user_id, status, old_result, new_result,
		   stake, odds, payout, profit, occurred_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (event_id) DO NOTHING
	`
	res, err := r.DB.ExecContext(ctx, q,
		a.EventID, a.Kind, a.ChallengeID, nullable(a.BetID), a.UserID,
		nullable(a.Status), nullable(a.OldResult), nullable(a.NewResult),
		nullable(a.Stake), nullable(a.Odds), nullable(a.Payout), nullable(a.Profit),
		a.OccurredAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepo) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
