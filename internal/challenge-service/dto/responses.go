package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/bankroll-challenges/internal/challenge-service/repo"
	"github.com/radieske/bankroll-challenges/internal/challenge-service/service"
)

type ChallengeResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     *string    `json:"description"`
	InitialBankroll string     `json:"initial_bankroll"`
	TargetBankroll  string     `json:"target_bankroll"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	EndedAt         *time.Time `json:"ended_at"`
}

type BetResponse struct {
	ID          string    `json:"id"`
	ChallengeID string    `json:"challenge_id"`
	Title       *string   `json:"title"`
	Notes       *string   `json:"notes"`
	Stake       string    `json:"stake"`
	Odds        string    `json:"odds"`
	Result      string    `json:"result"`
	Payout      string    `json:"payout"`
	Profit      string    `json:"profit"`
	PlacedAt    time.Time `json:"placed_at"`
}

type ChallengeViewResponse struct {
	Challenge       ChallengeResponse `json:"challenge"`
	Bets            []BetResponse     `json:"bets"`
	CurrentBankroll string            `json:"current_bankroll"`
	Progress        int               `json:"progress"` // 0..100
	ReadOnly        bool              `json:"read_only"`
}

type ChallengeListResponse struct {
	Items []ChallengeResponse `json:"items"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func FromChallenge(c repo.Challenge) ChallengeResponse {
	return ChallengeResponse{
		ID:              c.ID,
		Name:            c.Name,
		Description:     c.Description,
		InitialBankroll: money(c.InitialBankroll),
		TargetBankroll:  money(c.TargetBankroll),
		Status:          string(c.Status),
		CreatedAt:       c.CreatedAt,
		EndedAt:         c.EndedAt,
	}
}

// FromBet formata a aposta; odds mantém a precisão informada pelo usuário
func FromBet(b repo.Bet) BetResponse {
	return BetResponse{
		ID:          b.ID,
		ChallengeID: b.ChallengeID,
		Title:       b.Title,
		Notes:       b.Notes,
		Stake:       money(b.Stake),
		Odds:        b.Odds.String(),
		Result:      b.Result.String(),
		Payout:      b.Payout.StringFixed(2),
		Profit:      b.Profit.StringFixed(2),
		PlacedAt:    b.PlacedAt,
	}
}

func FromChallenges(cs []repo.Challenge) ChallengeListResponse {
	out := ChallengeListResponse{Items: make([]ChallengeResponse, 0, len(cs))}
	for _, c := range cs {
		out.Items = append(out.Items, FromChallenge(c))
	}
	return out
}

func FromView(v service.ChallengeView) ChallengeViewResponse {
	bets := make([]BetResponse, 0, len(v.Bets))
	for _, b := range v.Bets {
		bets = append(bets, FromBet(b))
	}
	return ChallengeViewResponse{
		Challenge:       FromChallenge(v.Challenge),
		Bets:            bets,
		CurrentBankroll: v.Bankroll.StringFixed(2),
		Progress:        v.Progress,
		ReadOnly:        v.ReadOnly,
	}
}

// money formata com 2 casas; valores digitados com mais casas não são truncados
func money(d decimal.Decimal) string {
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}
