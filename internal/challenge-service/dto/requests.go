package dto

import "github.com/shopspring/decimal"

// Valores monetários aceitam número ou string JSON ("100.50")

type CreateChallengeRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	InitialBankroll decimal.Decimal `json:"initial_bankroll"`
	TargetBankroll  decimal.Decimal `json:"target_bankroll"`
}

type PlaceBetRequest struct {
	Title string          `json:"title"`
	Notes string          `json:"notes"`
	Stake decimal.Decimal `json:"stake"`
	Odds  decimal.Decimal `json:"odds"` // odd decimal, > 1
}

type SetBetResultRequest struct {
	Result string `json:"result"` // pending | won | lost
}
