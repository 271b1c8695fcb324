package settle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuteflip/flipd/internal/amm"
	"github.com/minuteflip/flipd/internal/domain"
)

func TestPnL_WinningSide(t *testing.T) {
	pos := domain.Position{SharesUp: 20, CostUp: 10}
	assert.InDelta(t, 10.0, PnL(domain.SideUp, pos), 1e-12)
	assert.InDelta(t, -10.0, PnL(domain.SideDown, pos), 1e-12)
}

func TestPnL_HedgedPositionPaysForBothSides(t *testing.T) {
	pos := domain.Position{SharesUp: 20, CostUp: 10, SharesDown: 18, CostDown: 9}
	// Winning UP pays 20, but the full 19 of cost is charged.
	assert.InDelta(t, 1.0, PnL(domain.SideUp, pos), 1e-12)
	assert.InDelta(t, -1.0, PnL(domain.SideDown, pos), 1e-12)
}

func TestPnL_EmptyPositionIsZero(t *testing.T) {
	assert.Zero(t, PnL(domain.SideUp, domain.Position{}))
	assert.Zero(t, PnL(domain.SideDown, domain.Position{}))
}

// TestPnL_FreshRoundScenario settles a $10 UP buy into a fresh round and
// checks the P&L bit-for-bit against the AMM's own share computation.
func TestPnL_FreshRoundScenario(t *testing.T) {
	engine := amm.New(amm.DefaultLiquidity)
	res := engine.BuyShares(domain.PoolState{}, domain.SideUp, 10)
	require.Greater(t, res.SharesReceived, 0.0)

	pos := domain.Position{SharesUp: res.SharesReceived, CostUp: 10}
	pnl := PnL(domain.SideUp, pos)

	assert.Equal(t, res.SharesReceived-10, pnl)
	// Just under 20 shares at an average just over $0.50 each.
	assert.Greater(t, pnl, 9.0)
	assert.Less(t, pnl, 10.0)
}

func TestPnL_Idempotent(t *testing.T) {
	pos := domain.Position{SharesUp: 12.5, CostUp: 7, SharesDown: 3, CostDown: 2}
	first := PnL(domain.SideUp, pos)
	second := PnL(domain.SideUp, pos)
	assert.Equal(t, first, second)
	assert.Equal(t, domain.Position{SharesUp: 12.5, CostUp: 7, SharesDown: 3, CostDown: 2}, pos)
}

func TestOutcomeFor_TieSettlesDown(t *testing.T) {
	assert.Equal(t, domain.SideUp, OutcomeFor(100, 100.01))
	assert.Equal(t, domain.SideDown, OutcomeFor(100, 99.99))
	// Equality is not special-cased: the strict greater-than test means a
	// flat round settles DOWN.
	assert.Equal(t, domain.SideDown, OutcomeFor(100, 100))
}

func TestBuildPosition_ReplaysTrades(t *testing.T) {
	trades := []domain.Trade{
		{Side: domain.SideUp, Shares: 5, AmountUSD: 2.6},
		{Side: domain.SideUp, Shares: 4, AmountUSD: 2.2},
		{Side: domain.SideDown, Shares: 10, AmountUSD: 5.1},
	}
	pos := domain.BuildPosition(trades)
	assert.InDelta(t, 9.0, pos.SharesUp, 1e-12)
	assert.InDelta(t, 4.8, pos.CostUp, 1e-12)
	assert.InDelta(t, 10.0, pos.SharesDown, 1e-12)
	assert.InDelta(t, 5.1, pos.CostDown, 1e-12)
}
