package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/bankroll-challenges/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal de atualizações de desafio e repassa
// cada mensagem ao hub. Toda réplica do serviço assina o mesmo canal,
// então o cliente recebe a atualização independente de onde a escrita ocorreu.
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				var upd events.ChallengeUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					log.Warn("ws subscriber unmarshal", zap.Error(err))
					continue
				}
				hub.Broadcast(upd)
			}
		}
	}()
}
