package chain

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuteflip/flipd/internal/domain"
)

type stubCaller struct {
	method string
	args   []any
	result string
	err    error
}

func (s *stubCaller) CallContext(_ context.Context, result any, method string, args ...any) error {
	s.method = method
	s.args = args
	if s.err != nil {
		return s.err
	}
	raw := result.(*json.RawMessage)
	*raw = json.RawMessage(s.result)
	return nil
}

func testProxy(c rpcCaller) *Proxy {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newProxy(c, time.Second, logger)
}

func TestCall_ForwardsAllowedMethod(t *testing.T) {
	stub := &stubCaller{result: `"0x1a2b"`}
	p := testProxy(stub)

	got, err := p.Call(context.Background(), "eth_blockNumber", nil)
	require.NoError(t, err)
	assert.Equal(t, "eth_blockNumber", stub.method)
	assert.JSONEq(t, `"0x1a2b"`, string(got))
}

func TestCall_PassesParams(t *testing.T) {
	stub := &stubCaller{result: `"0x0"`}
	p := testProxy(stub)

	_, err := p.Call(context.Background(), "eth_getBalance",
		[]any{"0xabc", "latest"})
	require.NoError(t, err)
	require.Len(t, stub.args, 2)
	assert.Equal(t, "0xabc", stub.args[0])
	assert.Equal(t, "latest", stub.args[1])
}

func TestCall_BlocksNonAllowlistedMethods(t *testing.T) {
	stub := &stubCaller{}
	p := testProxy(stub)

	for _, method := range []string{
		"eth_sendRawTransaction",
		"eth_sendTransaction",
		"personal_sign",
		"admin_peers",
		"debug_traceTransaction",
	} {
		_, err := p.Call(context.Background(), method, nil)
		require.ErrorIs(t, err, domain.ErrMethodBlocked, method)
	}
	assert.Empty(t, stub.method, "blocked methods must never reach upstream")
}

func TestCall_WrapsUpstreamError(t *testing.T) {
	stub := &stubCaller{err: errors.New("connection refused")}
	p := testProxy(stub)

	_, err := p.Call(context.Background(), "eth_chainId", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eth_chainId")
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed("eth_call"))
	assert.False(t, Allowed("eth_sendRawTransaction"))
}
