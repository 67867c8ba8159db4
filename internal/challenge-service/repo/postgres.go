package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/bankroll-challenges/pkg/bankroll"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrNotWritable indica que a escrita guardada não afetou linhas:
	// a aposta/desafio sumiu ou o desafio não está mais active
	ErrNotWritable = errors.New("not writable")
)

const challengeColumns = `id, user_id, name, description, initial_bankroll, target_bankroll, status, created_at, ended_at`

const betColumns = `id, challenge_id, user_id, title, notes, stake, odds, result, payout, profit, placed_at`

// Postgres implementa a persistência de desafios e apostas.
// Todas as consultas são filtradas por user_id: linha de outro usuário = ErrNotFound.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de desafios
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChallenge(s rowScanner) (Challenge, error) {
	var c Challenge
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.InitialBankroll, &c.TargetBankroll,
		&c.Status, &c.CreatedAt, &c.EndedAt)
	return c, err
}

func scanBet(s rowScanner) (Bet, error) {
	var b Bet
	err := s.Scan(&b.ID, &b.ChallengeID, &b.UserID, &b.Title, &b.Notes, &b.Stake, &b.Odds,
		&b.Result, &b.Payout, &b.Profit, &b.PlacedAt)
	return b, err
}

// CreateChallenge insere um desafio active e preenche ID/CreatedAt
func (p *Postgres) CreateChallenge(ctx context.Context, c *Challenge) error {
	c.ID = uuid.NewString()
	c.Status = StatusActive
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO challenges (id,user_id,name,description,initial_bankroll,target_bankroll,status)
		VALUES ($1,$2,$3,$4,$5,$6,'active')
		RETURNING created_at`,
		c.ID, c.UserID, c.Name, c.Description, c.InitialBankroll, c.TargetBankroll,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

// GetChallenge busca um desafio do usuário
func (p *Postgres) GetChallenge(ctx context.Context, userID, id string) (Challenge, error) {
	c, err := scanChallenge(p.db.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id=$1 AND user_id=$2`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Challenge{}, ErrNotFound
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("select challenge: %w", err)
	}
	return c, nil
}

// ListChallenges lista os desafios do usuário, mais recentes primeiro
func (p *Postgres) ListChallenges(ctx context.Context, userID string, f ChallengeFilter) ([]Challenge, error) {
	q := `SELECT ` + challengeColumns + ` FROM challenges WHERE user_id=$1`
	args := []any{userID}
	if f.Status != nil {
		q += ` AND status=$2`
		args = append(args, string(*f.Status))
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, f.Limit)

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	out := []Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetChallengeStatus troca status e ended_at juntos e devolve o desafio atualizado
func (p *Postgres) SetChallengeStatus(ctx context.Context, userID, id string, status Status, endedAt *time.Time) (Challenge, error) {
	c, err := scanChallenge(p.db.QueryRowContext(ctx, `
		UPDATE challenges SET status=$1, ended_at=$2
		WHERE id=$3 AND user_id=$4
		RETURNING `+challengeColumns,
		string(status), endedAt, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Challenge{}, ErrNotFound
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("update challenge status: %w", err)
	}
	return c, nil
}

// CreateBet insere a aposta somente se o desafio pertence ao usuário e está active.
// Preenche ID/PlacedAt; sem linha inserida devolve ErrNotWritable.
func (p *Postgres) CreateBet(ctx context.Context, b *Bet) error {
	b.ID = uuid.NewString()
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO bets (id,challenge_id,user_id,title,notes,stake,odds,result,payout,profit)
		SELECT $1,c.id,c.user_id,$4,$5,$6,$7,$8,$9,$10
		FROM challenges c
		WHERE c.id=$2 AND c.user_id=$3 AND c.status='active'
		RETURNING placed_at`,
		b.ID, b.ChallengeID, b.UserID, b.Title, b.Notes, b.Stake, b.Odds, b.Result, b.Payout, b.Profit,
	).Scan(&b.PlacedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotWritable
	}
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	return nil
}

// GetBet busca uma aposta do usuário
func (p *Postgres) GetBet(ctx context.Context, userID, id string) (Bet, error) {
	b, err := scanBet(p.db.QueryRowContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE id=$1 AND user_id=$2`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Bet{}, ErrNotFound
	}
	if err != nil {
		return Bet{}, fmt.Errorf("select bet: %w", err)
	}
	return b, nil
}

// ListBets lista as apostas de um desafio, mais recentes primeiro
func (p *Postgres) ListBets(ctx context.Context, challengeID string) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE challenge_id=$1 ORDER BY placed_at DESC`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	out := []Bet{}
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBetResult grava result, payout e profit no mesmo UPDATE.
// Só altera apostas de desafios active; sem linha afetada devolve ErrNotWritable.
func (p *Postgres) UpdateBetResult(ctx context.Context, userID, betID string, result bankroll.Result, d bankroll.Derived) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bets b SET result=$1, payout=$2, profit=$3
		FROM challenges c
		WHERE b.id=$4 AND b.user_id=$5 AND c.id=b.challenge_id AND c.status='active'`,
		result, d.Payout, d.Profit, betID, userID)
	if err != nil {
		return fmt.Errorf("update bet result: %w", err)
	}
	return requireAffected(res)
}

// DeleteBet remove a aposta se o desafio ainda estiver active
func (p *Postgres) DeleteBet(ctx context.Context, userID, betID string) error {
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM bets b
		USING challenges c
		WHERE b.id=$1 AND b.user_id=$2 AND c.id=b.challenge_id AND c.status='active'`,
		betID, userID)
	if err != nil {
		return fmt.Errorf("delete bet: %w", err)
	}
	return requireAffected(res)
}

// Ping é usado pelo /healthz
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotWritable
	}
	return nil
}
