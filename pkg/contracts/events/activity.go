package events

import "time"

// Tipos de atividade publicados no tópico "challenge_activity"
const (
	KindChallengeCreated  = "challenge_created"
	KindChallengeArchived = "challenge_archived"
	KindChallengeReopened = "challenge_reopened"
	KindBetPlaced         = "bet_placed"
	KindBetResultSet      = "bet_result_set"
	KindBetDeleted        = "bet_deleted"
)

// Activity é o evento emitido pelo challenge-service a cada mutação.
// Valores monetários trafegam como string decimal para não perder precisão.
type Activity struct {
	EventID     string    `json:"event_id"`
	Kind        string    `json:"kind"`
	ChallengeID string    `json:"challenge_id"`
	BetID       string    `json:"bet_id,omitempty"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status,omitempty"`     // active | archived (eventos de desafio)
	OldResult   string    `json:"old_result,omitempty"` // pending | won | lost
	NewResult   string    `json:"new_result,omitempty"`
	Stake       string    `json:"stake,omitempty"`
	Odds        string    `json:"odds,omitempty"`
	Payout      string    `json:"payout,omitempty"`
	Profit      string    `json:"profit,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
