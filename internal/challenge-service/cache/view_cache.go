package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// genTTL mantém o contador de geração vivo bem além do TTL das visões
const genTTL = 24 * time.Hour

// ViewCache guarda visões calculadas de desafio no Redis.
// A chave da visão inclui a geração do desafio; cada escrita incrementa a geração,
// então uma visão antiga nunca é servida depois de uma mutação.
type ViewCache struct {
	R   *redis.Client
	TTL time.Duration
}

func NewViewCache(r *redis.Client, ttl time.Duration) *ViewCache {
	return &ViewCache{R: r, TTL: ttl}
}

func keyGen(challengeID string) string { return "challenge:gen:" + challengeID }

func keyView(challengeID string, gen int64) string {
	return "challenge:view:" + challengeID + ":" + strconv.FormatInt(gen, 10)
}

// Generation devolve a geração atual; chave ausente = 0
func (c *ViewCache) Generation(ctx context.Context, challengeID string) (int64, error) {
	n, err := c.R.Get(ctx, keyGen(challengeID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *ViewCache) Get(ctx context.Context, challengeID string, gen int64, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyView(challengeID, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *ViewCache) Set(ctx context.Context, challengeID string, gen int64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyView(challengeID, gen), b, c.TTL).Err()
}

// Bump invalida todas as visões do desafio
func (c *ViewCache) Bump(ctx context.Context, challengeID string) error {
	pipe := c.R.TxPipeline()
	pipe.Incr(ctx, keyGen(challengeID))
	pipe.Expire(ctx, keyGen(challengeID), genTTL)
	_, err := pipe.Exec(ctx)
	return err
}
