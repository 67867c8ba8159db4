package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	skafka "github.com/radieske/bankroll-challenges/internal/shared/kafka"
	"github.com/radieske/bankroll-challenges/pkg/contracts/events"
)

const maxRetries = 3

var errInvalidEvent = errors.New("activity without event_id or kind")

// MessageReader é o subconjunto de *kafka.Reader usado pelo processor.
// O offset só é confirmado via CommitMessages depois que a mensagem foi resolvida.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Store persiste atividades; inserted=false indica reentrega já gravada
type Store interface {
	InsertActivity(ctx context.Context, a events.Activity) (inserted bool, err error)
}

// Processor consome o tópico challenge_activity e grava o histórico no Postgres.
// Mensagens inválidas ou que esgotam as tentativas vão para a DLQ.
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Repo   Store
	DLQ    skafka.MessageWriter // opcional

	// Backoff entre tentativas; default 300ms * tentativa
	Backoff func(attempt int) time.Duration

	OnConsumed     func()       // métricas (counter++)
	OnPersisted    func()       // métricas
	OnDuplicate    func()       // métricas
	OnDeadLettered func()       // métricas
	OnError        func(string) // métricas por fase
}

// Run inicia o loop principal de consumo até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.onError("read")
			if !sleep(ctx, 500*time.Millisecond) {
				return ctx.Err()
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		if !p.handle(ctx, m) {
			// interrompido no shutdown: sem commit, o grupo reentrega a mensagem
			return ctx.Err()
		}
		if err := p.Reader.CommitMessages(context.WithoutCancel(ctx), m); err != nil {
			p.Log.Warn("kafka commit failed", zap.Error(err), zap.Int64("offset", m.Offset))
			p.onError("commit")
		}
	}
}

// handle processa uma mensagem; nunca devolve erro para não travar a partição.
// Retorna false apenas quando o contexto acabou antes da mensagem ser gravada,
// deduplicada ou enviada para a DLQ.
func (p *Processor) handle(ctx context.Context, m kafka.Message) bool {
	var a events.Activity
	if err := json.Unmarshal(m.Value, &a); err != nil {
		p.Log.Warn("invalid message", zap.Error(err), zap.Int64("offset", m.Offset))
		p.onError("decode")
		return p.deadLetter(ctx, m, err)
	}
	if a.EventID == "" || a.Kind == "" {
		p.Log.Warn("invalid activity", zap.Int64("offset", m.Offset))
		p.onError("decode")
		return p.deadLetter(ctx, m, errInvalidEvent)
	}

	inserted, err := p.Repo.InsertActivity(ctx, a)
	for attempt := 1; err != nil && attempt <= maxRetries; attempt++ {
		p.Log.Warn("db insert failed, retrying",
			zap.String("event_id", a.EventID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		p.onError("db_insert")
		if !sleep(ctx, p.backoff(attempt)) {
			return false
		}
		inserted, err = p.Repo.InsertActivity(ctx, a)
	}
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.Log.Error("activity dead-lettered", zap.String("event_id", a.EventID), zap.Error(err))
		return p.deadLetter(ctx, m, err)
	}

	if !inserted {
		p.Log.Debug("duplicate activity ignored", zap.String("event_id", a.EventID))
		if p.OnDuplicate != nil {
			p.OnDuplicate()
		}
		return true
	}

	p.Log.Debug("activity recorded",
		zap.String("event_id", a.EventID),
		zap.String("kind", a.Kind),
		zap.String("challenge_id", a.ChallengeID),
	)
	if p.OnPersisted != nil {
		p.OnPersisted()
	}
	return true
}

// deadLetter copia a mensagem original para a DLQ com o motivo no header "error".
// false = shutdown durante a escrita; a mensagem não deve ser confirmada.
func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, cause error) bool {
	if p.DLQ == nil {
		return true
	}
	dlq := kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: []kafka.Header{{Key: "error", Value: []byte(cause.Error())}},
		Time:    time.Now(),
	}
	if err := p.DLQ.WriteMessages(ctx, dlq); err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.Log.Error("dlq write failed", zap.Error(err))
		p.onError("dlq")
		return true
	}
	if p.OnDeadLettered != nil {
		p.OnDeadLettered()
	}
	return true
}

func (p *Processor) backoff(attempt int) time.Duration {
	if p.Backoff != nil {
		return p.Backoff(attempt)
	}
	return time.Duration(300*attempt) * time.Millisecond
}

func (p *Processor) onError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

// sleep espera d ou até o contexto acabar; false = contexto cancelado
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
