package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRoundClosed   = errors.New("round not trading")
	ErrTradingClosed = errors.New("trading window closed")
	ErrInvalidAmount = errors.New("invalid trade amount")
	ErrInvalidSide   = errors.New("invalid side")
	ErrOracleFailure = errors.New("price oracle failure")
	ErrMethodBlocked = errors.New("rpc method not allowed")
	ErrContextDone   = errors.New("context cancelled")
)
