// Package amm implements the Logarithmic Market Scoring Rule (LMSR) market
// maker used to price up/down shares inside a round.
//
// LMSR was chosen over a constant-product curve because it bounds the market
// maker's maximum loss by construction and always has a quotable price, even
// with zero standing liquidity. Both properties matter for a market that
// resets every 60 seconds with no liquidity providers.
package amm

import (
	"math"

	"github.com/minuteflip/flipd/internal/domain"
)

const (
	// DefaultLiquidity is the base liquidity constant B0 in USD-equivalent
	// units. Effective liquidity grows with traded volume, so each
	// subsequent dollar moves the price less than the previous one.
	DefaultLiquidity = 3000.0

	// MaxBracketDoublings caps the exponential expansion of the binary
	// search upper bound. If the cost at hi still undershoots the target
	// after this many doublings, the trade is rejected rather than looping.
	MaxBracketDoublings = 64

	// MaxBisectIterations bounds the bisection refinement.
	MaxBisectIterations = 80

	// CostTolerance is the absolute cost error at which bisection stops.
	CostTolerance = 1e-6

	// minBracketHi is the floor for the initial search upper bound.
	minBracketHi = 1000.0
)

// Engine prices a two-outcome LMSR market. It is stateless; pool state lives
// on the round and is passed in per call.
type Engine struct {
	b0 float64
}

// New creates an Engine with the given base liquidity. Non-positive values
// fall back to DefaultLiquidity.
func New(b0 float64) *Engine {
	if b0 <= 0 {
		b0 = DefaultLiquidity
	}
	return &Engine{b0: b0}
}

// BaseLiquidity returns the configured B0.
func (e *Engine) BaseLiquidity() float64 {
	return e.b0
}

// liquidity returns the effective liquidity b for the pool:
// b = B0 + volumeTraded.
func (e *Engine) liquidity(pool domain.PoolState) float64 {
	return e.b0 + pool.VolumeTraded
}

// cost evaluates C(qUp, qDown) = b * ln(exp(qUp/b) + exp(qDown/b)) using the
// log-sum-exp form so large share counts do not overflow.
func cost(qUp, qDown, b float64) float64 {
	maxQ := math.Max(qUp, qDown)
	return maxQ + b*math.Log(math.Exp((qUp-maxQ)/b)+math.Exp((qDown-maxQ)/b))
}

// PriceUp returns the instantaneous price of the UP side in (0, 1). The two
// sides' prices always sum to 1. An underflowed denominator yields the
// balanced-book price 0.5.
func (e *Engine) PriceUp(pool domain.PoolState) float64 {
	b := e.liquidity(pool)
	maxQ := math.Max(pool.QUp, pool.QDown)
	expUp := math.Exp((pool.QUp - maxQ) / b)
	expDown := math.Exp((pool.QDown - maxQ) / b)
	denom := expUp + expDown
	if denom == 0 {
		return 0.5
	}
	return expUp / denom
}

// PriceDown returns the instantaneous price of the DOWN side.
func (e *Engine) PriceDown(pool domain.PoolState) float64 {
	return 1 - e.PriceUp(pool)
}

// BuyResult is the outcome of a share purchase. A zero-effect result
// (SharesReceived == 0, NewPool equal to the input) signals a rejected trade;
// callers must treat it as such, it is never an error or a panic.
type BuyResult struct {
	SharesReceived float64
	PricePerShare  float64 // average realized price, amountUSD / shares
	NewPool        domain.PoolState
}

// BuyShares finds the share quantity dq whose cost equals amountUSD and
// returns the post-trade pool. The cost function is only invertible
// numerically for a target cost, so dq is located by exponential bracket
// expansion followed by bisection.
//
// The input pool is never mutated; the caller persists NewPool.
func (e *Engine) BuyShares(pool domain.PoolState, side domain.Side, amountUSD float64) BuyResult {
	noop := BuyResult{NewPool: pool}

	if amountUSD <= 0 || math.IsNaN(amountUSD) || math.IsInf(amountUSD, 0) {
		return noop
	}

	b := e.liquidity(pool)
	base := cost(pool.QUp, pool.QDown, b)

	costToBuy := func(dq float64) float64 {
		if side == domain.SideUp {
			return cost(pool.QUp+dq, pool.QDown, b) - base
		}
		return cost(pool.QUp, pool.QDown+dq, b) - base
	}

	// Expand the upper bound until it brackets the target cost.
	hi := math.Max(2*amountUSD, minBracketHi)
	for i := 0; i < MaxBracketDoublings && costToBuy(hi) < amountUSD; i++ {
		hi *= 2
	}
	if costToBuy(hi) < amountUSD {
		// Fail closed: un-bracketable target, reject the trade.
		return noop
	}

	lo := 0.0
	for i := 0; i < MaxBisectIterations; i++ {
		mid := (lo + hi) / 2
		c := costToBuy(mid)
		if math.Abs(c-amountUSD) < CostTolerance {
			lo, hi = mid, mid
			break
		}
		if c < amountUSD {
			lo = mid
		} else {
			hi = mid
		}
	}

	dq := (lo + hi) / 2
	if dq <= 0 || math.IsNaN(dq) || math.IsInf(dq, 0) {
		return noop
	}

	newPool := pool
	if side == domain.SideUp {
		newPool.QUp += dq
	} else {
		newPool.QDown += dq
	}
	newPool.VolumeTraded += amountUSD

	return BuyResult{
		SharesReceived: dq,
		PricePerShare:  amountUSD / dq,
		NewPool:        newPool,
	}
}
