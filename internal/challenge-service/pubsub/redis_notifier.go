package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bankroll-challenges/pkg/contracts/events"
)

// DefaultChannel é o canal Redis lido pelo hub WebSocket
const DefaultChannel = "challenge_updates"

// RedisNotifier publica a visão recalculada do desafio para as réplicas do serviço
type RedisNotifier struct {
	r       *redis.Client
	channel string
}

func NewRedisNotifier(r *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{r: r, channel: channel}
}

func (n *RedisNotifier) NotifyChallenge(ctx context.Context, u events.ChallengeUpdate) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return n.r.Publish(ctx, n.channel, b).Err()
}
