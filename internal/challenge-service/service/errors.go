package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/radieske/bankroll-challenges/internal/challenge-service/repo"
)

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrNotFound          = repo.ErrNotFound
	ErrChallengeArchived = errors.New("challenge is archived")
	ErrValidation        = errors.New("validation failed")
)

// ValidationError carrega mensagens por campo, visíveis ao usuário.
// errors.Is(err, ErrValidation) é verdadeiro para qualquer ValidationError.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
