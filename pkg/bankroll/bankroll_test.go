package bankroll

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Fatalf("%s: got %s, want %s", what, got.StringFixed(2), want)
	}
}

func TestDeriveBetFields_Scenarios(t *testing.T) {
	cases := []struct {
		name       string
		stake      string
		odds       string
		result     Result
		wantPayout string
		wantProfit string
	}{
		{"won", "100", "1.85", ResultWon, "185.00", "85.00"},
		{"lost", "100", "1.85", ResultLost, "0", "-100.00"},
		{"pending", "100", "1.85", ResultPending, "0", "0"},
		{"won fractional", "12.34", "2.5", ResultWon, "30.85", "18.51"},
		{"lost sub-cent stake", "10.005", "3", ResultLost, "0", "-10.01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveBetFields(d(tc.stake), d(tc.odds), tc.result)
			assertDecimal(t, "payout", got.Payout, tc.wantPayout)
			assertDecimal(t, "profit", got.Profit, tc.wantProfit)
		})
	}
}

func TestDeriveBetFields_Properties(t *testing.T) {
	stakes := []string{"0.01", "1", "10.5", "99.99", "100", "1234.56"}
	odds := []string{"1.01", "1.5", "1.85", "2", "3.333", "10"}

	for _, s := range stakes {
		for _, o := range odds {
			stake, odd := d(s), d(o)

			won := DeriveBetFields(stake, odd, ResultWon)
			wantPayout := RoundCents(stake.Mul(odd))
			if !won.Payout.Equal(wantPayout) {
				t.Errorf("won %s@%s payout: got %s want %s", s, o, won.Payout, wantPayout)
			}
			if want := RoundCents(won.Payout.Sub(stake)); !won.Profit.Equal(want) {
				t.Errorf("won %s@%s profit: got %s want %s", s, o, won.Profit, want)
			}

			lost := DeriveBetFields(stake, odd, ResultLost)
			if !lost.Payout.IsZero() || !lost.Profit.Equal(stake.Neg()) {
				t.Errorf("lost %s@%s: got %+v", s, o, lost)
			}

			pending := DeriveBetFields(stake, odd, ResultPending)
			if !pending.Payout.IsZero() || !pending.Profit.IsZero() {
				t.Errorf("pending %s@%s: got %+v", s, o, pending)
			}

			again := DeriveBetFields(stake, odd, ResultWon)
			if !again.Payout.Equal(won.Payout) || !again.Profit.Equal(won.Profit) {
				t.Errorf("won %s@%s not idempotent", s, o)
			}
		}
	}
}

func TestDeriveBetFields_PendingIgnoresOdds(t *testing.T) {
	for _, o := range []string{"0", "0.5", "1", "-3"} {
		got := DeriveBetFields(d("50"), d(o), ResultPending)
		if !got.Payout.IsZero() || !got.Profit.IsZero() {
			t.Fatalf("odds %s: expected zero fields, got %+v", o, got)
		}
	}
}

// 0.5 * 1.01 = 0.505 exatamente; em float64 daria 50.4999... centavos
func TestRounding_HalfAwayFromZeroExactDecimal(t *testing.T) {
	got := DeriveBetFields(d("0.5"), d("1.01"), ResultWon)
	assertDecimal(t, "payout", got.Payout, "0.51")
	assertDecimal(t, "profit", got.Profit, "0.01")

	assertDecimal(t, "0.125", RoundCents(d("0.125")), "0.13")
	assertDecimal(t, "-0.125", RoundCents(d("-0.125")), "-0.13")
	assertDecimal(t, "2.675", RoundCents(d("2.675")), "2.68")
	assertDecimal(t, "1.004", RoundCents(d("1.004")), "1.00")
}

func TestCurrentBankroll_Scenarios(t *testing.T) {
	single := []Wager{{Stake: d("100"), Odds: d("1.85"), Result: ResultWon}}
	assertDecimal(t, "scenario 1", CurrentBankroll(d("1000"), single), "1085.00")

	mixed := []Wager{
		{Stake: d("100"), Odds: d("1.85"), Result: ResultWon},
		{Stake: d("50"), Odds: d("2.0"), Result: ResultLost},
		{Stake: d("30"), Odds: d("1.5"), Result: ResultPending},
	}
	assertDecimal(t, "scenario 2", CurrentBankroll(d("1000"), mixed), "1005.00")
}

func TestCurrentBankroll_PendingStakeIsDeducted(t *testing.T) {
	bets := []Wager{{Stake: d("250"), Odds: d("3"), Result: ResultPending}}
	assertDecimal(t, "pending", CurrentBankroll(d("1000"), bets), "750.00")
}

func TestCurrentBankroll_Empty(t *testing.T) {
	assertDecimal(t, "nil", CurrentBankroll(d("1000"), nil), "1000")
	assertDecimal(t, "rounded", CurrentBankroll(d("1000.456"), []Wager{}), "1000.46")
}

// três ganhos de 0.005 cada: arredondando só no fim dá 0.02, por aposta daria 0.03
func TestCurrentBankroll_RoundsOnce(t *testing.T) {
	bets := []Wager{
		{Stake: d("0.01"), Odds: d("1.5"), Result: ResultWon},
		{Stake: d("0.01"), Odds: d("1.5"), Result: ResultWon},
		{Stake: d("0.01"), Odds: d("1.5"), Result: ResultWon},
	}
	assertDecimal(t, "bankroll", CurrentBankroll(d("0"), bets), "0.02")
}

func TestCurrentBankroll_OrderIndependent(t *testing.T) {
	bets := []Wager{
		{Stake: d("100"), Odds: d("1.85"), Result: ResultWon},
		{Stake: d("50"), Odds: d("2.0"), Result: ResultLost},
		{Stake: d("30"), Odds: d("1.5"), Result: ResultPending},
		{Stake: d("12.345"), Odds: d("3.21"), Result: ResultWon},
	}
	want := CurrentBankroll(d("500"), bets)

	for _, perm := range permutations(len(bets)) {
		shuffled := make([]Wager, len(bets))
		for i, j := range perm {
			shuffled[i] = bets[j]
		}
		if got := CurrentBankroll(d("500"), shuffled); !got.Equal(want) {
			t.Fatalf("permutation %v: got %s want %s", perm, got, want)
		}
	}
}

func TestProgress(t *testing.T) {
	cases := []struct {
		bankroll, target string
		want             int
	}{
		{"1005", "2000", 50},
		{"1010", "2000", 51},
		{"0", "2000", 0},
		{"-150", "2000", 0},
		{"2500", "2000", 100},
		{"2000", "2000", 100},
		{"1000", "0", 0},
		{"1000", "-10", 0},
	}
	for _, tc := range cases {
		if got := Progress(d(tc.bankroll), d(tc.target)); got != tc.want {
			t.Errorf("Progress(%s, %s) = %d, want %d", tc.bankroll, tc.target, got, tc.want)
		}
	}
}

func permutations(n int) [][]int {
	var out [][]int
	var rec func(prefix []int, used []bool)
	rec = func(prefix []int, used []bool) {
		if len(prefix) == n {
			out = append(out, append([]int(nil), prefix...))
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			rec(append(prefix, i), used)
			used[i] = false
		}
	}
	rec(nil, make([]bool, n))
	return out
}
