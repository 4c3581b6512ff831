package communicator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-vault/core"
	"github.com/goliatone/go-vault/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingProvider(calls *int32, tokens ...string) core.TokenProvider {
	return func(context.Context) (string, error) {
		n := atomic.AddInt32(calls, 1)
		if int(n) <= len(tokens) {
			return tokens[n-1], nil
		}
		return fmt.Sprintf("token-%d", n), nil
	}
}

func newSeeded(t *testing.T, adapter *transport.FakeAdapter, calls *int32) *Communicator {
	t.Helper()
	c := New(WithNetworkAdapter(adapter))
	c.SetTokenCallback(func(context.Context) (string, error) { return "token-1", nil })
	_, ok, err := c.RefreshToken(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	c.SetTokenCallback(countingProvider(calls, "token-2"))
	return c
}

func TestCommunicator_SingleRetryAfterUnauthorized(t *testing.T) {
	adapter := transport.NewFakeAdapter(
		transport.Respond(http.StatusUnauthorized, map[string]any{"error": "expired"}),
		transport.Respond(http.StatusOK, map[string]any{"id": "r1"}),
	)
	var calls int32
	c := newSeeded(t, adapter, &calls)

	res, err := c.Get(context.Background(), "https://vault.example/records/r1", true)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	recorded := adapter.Calls()
	require.Len(t, recorded, 2)
	assert.Equal(t, "Bearer token-1", recorded[0].Headers[core.HeaderAuthorization])
	assert.Equal(t, "Bearer token-2", recorded[1].Headers[core.HeaderAuthorization])
	assert.Equal(t, "token-2", c.Token())
}

func TestCommunicator_RetryBoundOnRepeatedUnauthorized(t *testing.T) {
	adapter := transport.NewFakeAdapter(
		transport.Respond(http.StatusUnauthorized, map[string]any{"error": "expired"}),
	)
	var calls int32
	c := newSeeded(t, adapter, &calls)

	res, err := c.Post(context.Background(), "https://vault.example/records", true, map[string]any{"value": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	var unauthorized *core.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)
	assert.Equal(t, http.StatusUnauthorized, unauthorized.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, 2, adapter.CallCount())
}

func TestCommunicator_UnauthenticatedCallsNeverRefresh(t *testing.T) {
	adapter := transport.NewFakeAdapter(
		transport.Respond(http.StatusUnauthorized, map[string]any{"error": "denied"}),
	)
	var calls int32
	c := New(WithNetworkAdapter(adapter))
	c.SetTokenCallback(countingProvider(&calls))

	_, err := c.Delete(context.Background(), "https://vault.example/records/r1", false)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	assert.EqualValues(t, 0, atomic.LoadInt32(&calls))
	require.Equal(t, 1, adapter.CallCount())

	headers := adapter.Calls()[0].Headers
	assert.Equal(t, core.ContentTypeJSON, headers[core.HeaderContentType])
	assert.NotContains(t, headers, core.HeaderAuthorization)
	assert.NotContains(t, headers, core.HeaderAccept)
}

func TestCommunicator_LazyTokenOnFirstAuthenticatedCall(t *testing.T) {
	adapter := transport.NewFakeAdapter(transport.Respond(http.StatusOK, map[string]any{}))
	var calls int32
	c := New(WithNetworkAdapter(adapter), WithTokenProvider(countingProvider(&calls, "lazy")))
	require.False(t, c.HasToken())

	_, err := c.Get(context.Background(), "https://vault.example/records", true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	headers := adapter.Calls()[0].Headers
	assert.Equal(t, "*/*", headers[core.HeaderAccept])
	assert.Equal(t, "Bearer lazy", headers[core.HeaderAuthorization])
}

func TestCommunicator_AuthenticatedCallWithoutProviderFailsLoudly(t *testing.T) {
	adapter := transport.NewFakeAdapter()
	c := New(WithNetworkAdapter(adapter))

	_, err := c.Get(context.Background(), "https://vault.example/records", true)
	assert.ErrorIs(t, err, core.ErrMissingToken)
	assert.Equal(t, 0, adapter.CallCount())
}

func TestCommunicator_TransportFailureWithoutResponse(t *testing.T) {
	boom := errors.New("dial tcp: no such host")
	adapter := transport.NewFakeAdapter(transport.Fail(boom))
	c := New(WithNetworkAdapter(adapter))

	_, err := c.Put(context.Background(), "https://vault.example/records/r1", false, "x")
	var transportErr *core.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, http.MethodPut, transportErr.Method)
}

func TestCommunicator_ZeroResponseIsNoNetworkResponse(t *testing.T) {
	adapter := transport.NewFakeAdapter(transport.Script{})
	c := New(WithNetworkAdapter(adapter))

	_, err := c.Get(context.Background(), "https://vault.example/records", false)
	assert.ErrorIs(t, err, core.ErrTransport)
	assert.ErrorIs(t, err, core.ErrNoNetworkResponse)
}

func TestCommunicator_HTTPErrorKeepsTransportCause(t *testing.T) {
	adapter := transport.NewFakeAdapter(
		transport.Respond(http.StatusNotFound, map[string]any{"error": "missing"}),
	)
	var calls int32
	c := newSeeded(t, adapter, &calls)

	_, err := c.Get(context.Background(), "https://vault.example/records/none", true)
	var httpErr *core.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	var responseErr *transport.ResponseError
	assert.ErrorAs(t, err, &responseErr)
	assert.EqualValues(t, 0, atomic.LoadInt32(&calls))
}

func TestCommunicator_RefreshFailurePropagates(t *testing.T) {
	adapter := transport.NewFakeAdapter(
		transport.Respond(http.StatusUnauthorized, map[string]any{}),
	)
	c := New(WithNetworkAdapter(adapter))
	c.SetTokenCallback(func(context.Context) (string, error) { return "seed", nil })
	_, _, err := c.RefreshToken(context.Background())
	require.NoError(t, err)

	negotiationErr := &core.UnauthorizedError{Message: "negotiation failed"}
	c.SetTokenCallback(func(context.Context) (string, error) { return "", negotiationErr })

	_, err = c.Get(context.Background(), "https://vault.example/records", true)
	assert.ErrorIs(t, err, negotiationErr)
	assert.Equal(t, 1, adapter.CallCount())
	assert.Equal(t, "seed", c.Token())
}

func TestCommunicator_RefreshTokenWithoutProvider(t *testing.T) {
	c := New(WithNetworkAdapter(transport.NewFakeAdapter()))
	token, ok, err := c.RefreshToken(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestCommunicator_SetNetworkAdapterNilReinstallsDefault(t *testing.T) {
	fake := transport.NewFakeAdapter()
	c := New(WithNetworkAdapter(fake))
	require.Same(t, fake, c.NetworkAdapter())

	installed := c.SetNetworkAdapter(nil)
	_, isREST := installed.(*transport.RESTAdapter)
	assert.True(t, isREST)
	assert.Same(t, installed, c.NetworkAdapter())

	custom := transport.NewFakeAdapter()
	assert.Same(t, custom, c.SetNetworkAdapter(custom))
}

func TestCommunicator_RejectsInvalidRequests(t *testing.T) {
	c := New(WithNetworkAdapter(transport.NewFakeAdapter()))
	_, err := c.Do(context.Background(), Request{Method: "PATCH", URL: "https://vault.example"})
	assert.Error(t, err)
	_, err = c.Get(context.Background(), " ", false)
	assert.Error(t, err)
}
