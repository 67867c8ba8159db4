// Package bankroll contém o motor de contabilidade dos desafios: campos derivados
// de cada aposta (payout/profit), banca atual e progresso em direção ao alvo.
//
// Todas as funções são puras e seguras para uso concorrente. Nenhuma retorna erro:
// quem chama valida stake > 0 e odds > 1 antes.
//
// Arredondamento: aritmética decimal exata e arredondamento para 2 casas
// "half away from zero" (0.125 -> 0.13, -0.125 -> -0.13).
package bankroll

import "github.com/shopspring/decimal"

const centsPlaces = 2

var hundred = decimal.NewFromInt(100)

// Wager é a visão (stake, odds, result) de uma aposta usada pelo motor
type Wager struct {
	Stake  decimal.Decimal
	Odds   decimal.Decimal
	Result Result
}

// Derived são os campos calculados e persistidos junto com o resultado
type Derived struct {
	Payout decimal.Decimal
	Profit decimal.Decimal
}

// RoundCents arredonda para 2 casas, metade para longe do zero
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(centsPlaces)
}

// DeriveBetFields calcula payout e profit de uma aposta:
//   - won:     payout = stake*odds, profit = payout-stake
//   - lost:    payout = 0,          profit = -stake
//   - pending: payout = 0,          profit = 0
func DeriveBetFields(stake, odds decimal.Decimal, result Result) Derived {
	switch result {
	case ResultWon:
		payout := stake.Mul(odds)
		return Derived{
			Payout: RoundCents(payout),
			Profit: RoundCents(payout.Sub(stake)),
		}
	case ResultLost:
		return Derived{
			Payout: decimal.Zero,
			Profit: RoundCents(stake.Neg()),
		}
	default:
		return Derived{Payout: decimal.Zero, Profit: decimal.Zero}
	}
}

// CurrentBankroll devolve initial - Σstake + Σ(stake*odds das ganhas).
// O stake sai da banca no registro da aposta, inclusive enquanto pending.
// Arredonda uma única vez, no final.
func CurrentBankroll(initial decimal.Decimal, bets []Wager) decimal.Decimal {
	bankroll := initial
	for _, b := range bets {
		bankroll = bankroll.Sub(b.Stake)
		if b.Result == ResultWon {
			bankroll = bankroll.Add(b.Stake.Mul(b.Odds))
		}
	}
	return RoundCents(bankroll)
}

// Progress é o percentual da banca em relação ao alvo, limitado a [0, 100].
// Alvo <= 0 resulta em 0.
func Progress(bankroll, target decimal.Decimal) int {
	if !target.IsPositive() {
		return 0
	}
	pct := bankroll.Mul(hundred).Div(target).Round(0).IntPart()
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}
