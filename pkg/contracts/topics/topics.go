package topics

const (
	// Atividade dos desafios (criação, arquivamento, apostas)
	ChallengeActivity = "challenge_activity"

	// DLQs
	ChallengeActivityDLQ = "challenge_activity_dlq"
)
