// Package domain defines the core types and collaborator interfaces shared by
// every layer of flipd: rounds, pools, trades, positions, and the narrow
// store/cache/oracle contracts their consumers depend on.
package domain

import (
	"fmt"
	"time"
)

// Side is the direction of a trade within a round.
type Side string

const (
	SideUp   Side = "UP"
	SideDown Side = "DOWN"
)

// ParseSide validates a user-supplied side string.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideUp:
		return SideUp, nil
	case SideDown:
		return SideDown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// Outcome is the settled result of a round. It equals the winning Side.
type Outcome = Side

// RoundStatus is the lifecycle state of a round. The only transition is
// TRADING -> RESOLVED; there is no reentry.
type RoundStatus string

const (
	StatusTrading  RoundStatus = "TRADING"
	StatusResolved RoundStatus = "RESOLVED"
)

// RoundDuration is the fixed length of one market round.
const RoundDuration = 60 * time.Second

// PoolState holds the AMM reserves for one round. All fields only grow after
// creation; a pool is never shrunk (no refunds or cancellations).
type PoolState struct {
	QUp          float64 `json:"qUp"`          // cumulative UP shares issued
	QDown        float64 `json:"qDown"`        // cumulative DOWN shares issued
	VolumeTraded float64 `json:"volumeTraded"` // cumulative USD notional
}

// Round is one 60-second up/down market with its own independent pool.
type Round struct {
	ID              string      `json:"id"`
	StartAt         time.Time   `json:"startAt"`
	EndsAt          time.Time   `json:"endsAt"`
	TradingClosesAt time.Time   `json:"tradingClosesAt"`
	PriceAtStart    float64     `json:"priceAtStart"`
	PriceAtEnd      float64     `json:"priceAtEnd,omitempty"` // set exactly once at resolution
	Outcome         Outcome     `json:"outcome,omitempty"`    // write-once, derived at resolution
	Status          RoundStatus `json:"status"`
	Pool            PoolState   `json:"pool"`
}

// RoundID derives the deterministic identifier for the round starting at the
// given minute boundary. One round exists per minute-aligned timestamp.
func RoundID(startAt time.Time) string {
	return fmt.Sprintf("round-%d", startAt.UTC().Unix())
}

// Resolved reports whether the round has settled.
func (r *Round) Resolved() bool {
	return r.Status == StatusResolved
}

// EffectiveClose returns the wall-clock time after which trades are rejected.
// TradingClosesAt governs when set; otherwise the round end does.
func (r *Round) EffectiveClose() time.Time {
	if !r.TradingClosesAt.IsZero() {
		return r.TradingClosesAt
	}
	return r.EndsAt
}
