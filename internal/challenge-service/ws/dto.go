package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// ChallengeID: obrigatório para subscribe/unsubscribe
type ClientMsg struct {
	Type        string `json:"type"`
	ChallengeID string `json:"challengeId"`
}

// ServerMsg são as respostas de controle (pong, subscribed, error).
// Atualizações de desafio seguem como events.ChallengeUpdate.
type ServerMsg struct {
	Type        string `json:"type"`
	ChallengeID string `json:"challengeId,omitempty"`
	Error       string `json:"error,omitempty"`
}
