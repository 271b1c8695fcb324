// Package settle computes payouts and realized P&L for resolved rounds. Every
// function here is pure: same inputs, same outputs, nothing mutated.
package settle

import "github.com/minuteflip/flipd/internal/domain"

// SharePayout is what one winning share is worth at settlement. Losing shares
// are worth zero. This fixed $1/$0 binary payout is the contract the LMSR
// pricing during trading is built around.
const SharePayout = 1.0

// Payout returns the gross settlement value of a position for the given
// outcome: winning shares times SharePayout.
func Payout(outcome domain.Outcome, pos domain.Position) float64 {
	if outcome == domain.SideUp {
		return pos.SharesUp * SharePayout
	}
	return pos.SharesDown * SharePayout
}

// PnL returns the realized profit and loss of a position for the given
// outcome. Cost is charged across both sides: a user who bought both pays for
// the hedge.
func PnL(outcome domain.Outcome, pos domain.Position) float64 {
	return Payout(outcome, pos) - (pos.CostUp + pos.CostDown)
}

// OutcomeFor derives the winner from the round's opening and closing prices:
// UP only on a strict increase. Equality settles DOWN.
func OutcomeFor(priceAtStart, priceAtEnd float64) domain.Outcome {
	if priceAtEnd > priceAtStart {
		return domain.SideUp
	}
	return domain.SideDown
}
