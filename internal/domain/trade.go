package domain

import "time"

// Trade is one accepted share purchase inside a round.
type Trade struct {
	ID            string    `json:"id"`
	RoundID       string    `json:"roundId"`
	User          string    `json:"user"`
	Side          Side      `json:"side"`
	AmountUSD     float64   `json:"amountUsd"`
	Shares        float64   `json:"shares"`
	PricePerShare float64   `json:"pricePerShare"` // average realized, not marginal
	ExecutedAt    time.Time `json:"executedAt"`
}

// TradeResult is the structured outcome of a trade attempt. Expected failures
// (unknown round, closed window, bad amount) are reported here rather than as
// errors so the API layer can map them to status codes without try/catch-style
// control flow.
type TradeResult struct {
	Success        bool    `json:"success"`
	SharesReceived float64 `json:"sharesReceived,omitempty"`
	PricePerShare  float64 `json:"pricePerShare,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// Position is a per-user, per-round aggregate of shares and cost basis per
// side, built by replaying the user's accepted trades for that round.
type Position struct {
	SharesUp   float64 `json:"sharesUp"`
	SharesDown float64 `json:"sharesDown"`
	CostUp     float64 `json:"costUp"`
	CostDown   float64 `json:"costDown"`
}

// Add accumulates one accepted trade into the position.
func (p *Position) Add(t Trade) {
	switch t.Side {
	case SideUp:
		p.SharesUp += t.Shares
		p.CostUp += t.AmountUSD
	case SideDown:
		p.SharesDown += t.Shares
		p.CostDown += t.AmountUSD
	}
}

// BuildPosition replays a user's accepted trades for one round into an
// aggregate position.
func BuildPosition(trades []Trade) Position {
	var pos Position
	for _, t := range trades {
		pos.Add(t)
	}
	return pos
}

// LeaderboardEntry is one row of the realized-P&L leaderboard.
type LeaderboardEntry struct {
	User   string  `json:"user"`
	PnL    float64 `json:"pnl"`
	Rounds int64   `json:"rounds"`
	Volume float64 `json:"volume"`
}
