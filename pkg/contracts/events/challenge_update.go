package events

import "time"

// ChallengeUpdate é publicado no canal Redis "challenge_updates" após cada mutação
// e repassado aos clientes WebSocket inscritos no desafio.
// Sempre carrega a visão recalculada do zero, nunca um delta.
type ChallengeUpdate struct {
	ChallengeID string    `json:"challengeId"`
	Reason      string    `json:"reason"` // kind da atividade que disparou a atualização
	Status      string    `json:"status"`
	Bankroll    string    `json:"bankroll"`
	Progress    int       `json:"progress"`
	BetCount    int       `json:"betCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
