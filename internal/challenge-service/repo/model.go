package repo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/bankroll-challenges/pkg/bankroll"
)

// Status do ciclo de vida de um desafio
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Challenge é o modelo persistido no Postgres.
type Challenge struct {
	ID              string
	UserID          string
	Name            string
	Description     *string
	InitialBankroll decimal.Decimal
	TargetBankroll  decimal.Decimal
	Status          Status
	CreatedAt       time.Time
	EndedAt         *time.Time
}

// Bet é o modelo persistido no Postgres.
// Payout e Profit são sempre derivados de (Stake, Odds, Result).
type Bet struct {
	ID          string
	ChallengeID string
	UserID      string
	Title       *string
	Notes       *string
	Stake       decimal.Decimal
	Odds        decimal.Decimal
	Result      bankroll.Result
	Payout      decimal.Decimal
	Profit      decimal.Decimal
	PlacedAt    time.Time
}

// Wager devolve a visão usada pelo motor de banca
func (b Bet) Wager() bankroll.Wager {
	return bankroll.Wager{Stake: b.Stake, Odds: b.Odds, Result: b.Result}
}

// ChallengeFilter filtra a listagem de desafios de um usuário
type ChallengeFilter struct {
	Status *Status
	Limit  int
}
