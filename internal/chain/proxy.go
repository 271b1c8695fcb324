// Package chain exposes a read-only JSON-RPC pass-through to an EVM node.
// Only a small allowlist of state-reading methods is forwarded; anything that
// could mutate chain state or leak node internals is rejected before it ever
// reaches the upstream endpoint.
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/minuteflip/flipd/internal/domain"
)

// allowedMethods is the full set of upstream methods the proxy will forward.
var allowedMethods = map[string]struct{}{
	"eth_blockNumber": {},
	"eth_chainId":     {},
	"eth_call":        {},
	"eth_getBalance":  {},
	"eth_getLogs":     {},
	"eth_gasPrice":    {},
}

// Allowed reports whether the proxy forwards the given JSON-RPC method.
func Allowed(method string) bool {
	_, ok := allowedMethods[method]
	return ok
}

// rpcCaller is the subset of *rpc.Client's methods the proxy depends on.
type rpcCaller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// Proxy forwards allowlisted JSON-RPC calls to one upstream node.
type Proxy struct {
	client  rpcCaller
	timeout time.Duration
	logger  *slog.Logger
}

// Config holds proxy construction parameters.
type Config struct {
	RPCURL  string
	Timeout time.Duration
}

// New dials the upstream node and returns a ready proxy.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Proxy, error) {
	client, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}
	return newProxy(client, cfg.Timeout, logger), nil
}

func newProxy(client rpcCaller, timeout time.Duration, logger *slog.Logger) *Proxy {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Proxy{
		client:  client,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "chain")),
	}
}

// Call forwards one JSON-RPC request and returns the raw result payload.
// Non-allowlisted methods fail with domain.ErrMethodBlocked without touching
// the upstream node.
func (p *Proxy) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if !Allowed(method) {
		return nil, fmt.Errorf("chain: method %q: %w", method, domain.ErrMethodBlocked)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var result json.RawMessage
	if err := p.client.CallContext(ctx, &result, method, params...); err != nil {
		p.logger.Warn("upstream call failed", "method", method, "error", err)
		return nil, fmt.Errorf("chain: call %s: %w", method, err)
	}

	p.logger.Debug("forwarded rpc call", "method", method)
	return result, nil
}
