package repo

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS challenges (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		name             TEXT NOT NULL,
		description      TEXT NULL,
		initial_bankroll NUMERIC NOT NULL CHECK (initial_bankroll >= 0),
		target_bankroll  NUMERIC NOT NULL CHECK (target_bankroll > 0),
		status           TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','archived')),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		ended_at         TIMESTAMPTZ NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_challenges_user_created ON challenges (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS bets (
		id           TEXT PRIMARY KEY,
		challenge_id TEXT NOT NULL REFERENCES challenges(id),
		user_id      TEXT NOT NULL,
		title        TEXT NULL,
		notes        TEXT NULL,
		stake        NUMERIC NOT NULL CHECK (stake > 0),
		odds         NUMERIC NOT NULL CHECK (odds > 1),
		result       TEXT NOT NULL DEFAULT 'pending' CHECK (result IN ('pending','won','lost')),
		payout       NUMERIC NOT NULL DEFAULT 0,
		profit       NUMERIC NOT NULL DEFAULT 0,
		placed_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_challenge_placed ON bets (challenge_id, placed_at DESC)`,
}

// Migrate cria as tabelas do challenge-service se ainda não existirem
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
