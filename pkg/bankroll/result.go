package bankroll

import (
	"database/sql/driver"
	"fmt"
)

// Result é o desfecho de uma aposta. Enumeração fechada: só existem os três valores abaixo.
type Result uint8

const (
	ResultPending Result = iota
	ResultWon
	ResultLost
)

var resultNames = [...]string{
	ResultPending: "pending",
	ResultWon:     "won",
	ResultLost:    "lost",
}

// Results lista todos os valores válidos, na ordem de declaração
func Results() []Result { return []Result{ResultPending, ResultWon, ResultLost} }

// Valid indica se r é um dos valores declarados
func (r Result) Valid() bool { return int(r) < len(resultNames) }

func (r Result) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Result(%d)", uint8(r))
	}
	return resultNames[r]
}

// ParseResult converte "pending" | "won" | "lost" para Result
func ParseResult(s string) (Result, error) {
	for i, name := range resultNames {
		if name == s {
			return Result(i), nil
		}
	}
	return ResultPending, fmt.Errorf("bankroll: unknown result %q", s)
}

func (r Result) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("bankroll: invalid result %d", uint8(r))
	}
	return []byte(resultNames[r]), nil
}

func (r *Result) UnmarshalText(b []byte) error {
	v, err := ParseResult(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Value grava o resultado como texto na coluna "result"
func (r Result) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("bankroll: invalid result %d", uint8(r))
	}
	return resultNames[r], nil
}

// Scan lê o resultado a partir do texto armazenado no Postgres
func (r *Result) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	default:
		return fmt.Errorf("bankroll: cannot scan %T into Result", src)
	}
}
