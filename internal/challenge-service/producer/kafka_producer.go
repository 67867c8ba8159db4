package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	skafka "github.com/radieske/bankroll-challenges/internal/shared/kafka"
	"github.com/radieske/bankroll-challenges/pkg/contracts/events"
)

// KafkaPublisher publica atividades no tópico challenge_activity.
// A chave é o challenge_id: eventos do mesmo desafio caem na mesma partição, em ordem.
type KafkaPublisher struct {
	Writer skafka.MessageWriter
	Topic  string
}

func NewKafkaPublisher(w *kafka.Writer, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

func (p *KafkaPublisher) PublishActivity(ctx context.Context, a events.Activity) error {
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return skafka.WriteJSON(ctx, p.Writer, a.ChallengeID, b)
}
