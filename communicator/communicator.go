// Package communicator owns the bearer token and places authenticated calls
// against the vault service, replaying a call once after a 401.
package communicator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vault/core"
	"github.com/goliatone/go-vault/transport"
)

// Request describes one logical call. Data is ignored for GET and DELETE.
type Request struct {
	Method   string
	URL      string
	UsesAuth bool
	Data     any
}

// Communicator is safe for concurrent use. Two calls that both receive a 401
// each refresh the token on their own; the later refresh wins.
type Communicator struct {
	mu             sync.RWMutex
	adapter        core.NetworkAdapter
	provider       core.TokenProvider
	token          string
	logger         core.Logger
	defaultAdapter func() core.NetworkAdapter
}

type Option func(*Communicator)

func WithLogger(logger core.Logger) Option {
	return func(c *Communicator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithNetworkAdapter(adapter core.NetworkAdapter) Option {
	return func(c *Communicator) {
		if adapter != nil {
			c.adapter = adapter
		}
	}
}

// WithDefaultAdapter overrides the adapter installed by SetNetworkAdapter(nil).
func WithDefaultAdapter(factory func() core.NetworkAdapter) Option {
	return func(c *Communicator) {
		if factory != nil {
			c.defaultAdapter = factory
		}
	}
}

func WithTokenProvider(provider core.TokenProvider) Option {
	return func(c *Communicator) {
		c.provider = provider
	}
}

func New(opts ...Option) *Communicator {
	c := &Communicator{
		logger: glog.Nop(),
		defaultAdapter: func() core.NetworkAdapter {
			return transport.NewRESTAdapter(nil)
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.adapter == nil {
		c.adapter = c.defaultAdapter()
	}
	return c
}

func (c *Communicator) Get(ctx context.Context, url string, usesAuth bool) (core.NetworkResponse, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: url, UsesAuth: usesAuth})
}

func (c *Communicator) Post(ctx context.Context, url string, usesAuth bool, data any) (core.NetworkResponse, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: url, UsesAuth: usesAuth, Data: data})
}

func (c *Communicator) Put(ctx context.Context, url string, usesAuth bool, data any) (core.NetworkResponse, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, URL: url, UsesAuth: usesAuth, Data: data})
}

func (c *Communicator) Delete(ctx context.Context, url string, usesAuth bool) (core.NetworkResponse, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, URL: url, UsesAuth: usesAuth})
}

func (c *Communicator) Do(ctx context.Context, req Request) (core.NetworkResponse, error) {
	if c == nil {
		return core.NetworkResponse{}, fmt.Errorf("communicator: communicator is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	req.URL = strings.TrimSpace(req.URL)
	switch req.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return core.NetworkResponse{}, fmt.Errorf("communicator: unsupported method %q", req.Method)
	}
	if req.URL == "" {
		return core.NetworkResponse{}, fmt.Errorf("communicator: request url is required")
	}
	return c.placeNetworkCall(ctx, req, 0)
}

// SetTokenCallback registers the token provider. A nil provider means the
// service needs no authentication.
func (c *Communicator) SetTokenCallback(provider core.TokenProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = provider
}

// RefreshToken mints a new token through the provider and stores it. ok is
// false when no provider is registered.
func (c *Communicator) RefreshToken(ctx context.Context) (string, bool, error) {
	c.mu.RLock()
	provider := c.provider
	c.mu.RUnlock()
	if provider == nil {
		return "", false, nil
	}

	token, err := provider(ctx)
	if err != nil {
		core.LogEvent(ctx, c.logger, core.LogLevelWarn, "communicator token refresh failed", map[string]any{
			"error": err.Error(),
		})
		return "", true, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", true, &core.UnauthorizedError{Message: "token provider returned an empty token"}
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	core.LogEvent(ctx, c.logger, core.LogLevelDebug, "communicator token refreshed", nil)
	return token, true, nil
}

func (c *Communicator) HasToken() bool {
	return c.Token() != ""
}

func (c *Communicator) Token() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ClearToken drops the current token so the next authenticated call
// negotiates a new one.
func (c *Communicator) ClearToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// SetNetworkAdapter installs adapter and returns it. A nil adapter always
// reinstalls the default transport, discarding any custom one.
func (c *Communicator) SetNetworkAdapter(adapter core.NetworkAdapter) core.NetworkAdapter {
	if adapter == nil {
		adapter = c.defaultAdapter()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adapter = adapter
	return adapter
}

func (c *Communicator) NetworkAdapter() core.NetworkAdapter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.adapter
}

func (c *Communicator) placeNetworkCall(ctx context.Context, req Request, attempt int) (core.NetworkResponse, error) {
	if req.UsesAuth && !c.HasToken() {
		if _, _, err := c.RefreshToken(ctx); err != nil {
			return core.NetworkResponse{}, err
		}
	}
	headers, err := c.headers(req.UsesAuth)
	if err != nil {
		return core.NetworkResponse{}, err
	}

	res, callErr := c.execute(ctx, req, headers)
	hasResponse := callErr == nil && res.StatusCode > 0
	if callErr != nil {
		var carrier core.ResponseCarrier
		if errors.As(callErr, &carrier) {
			if carried, ok := carrier.NetworkResponse(); ok && carried.StatusCode > 0 {
				res = carried
				hasResponse = true
			}
		}
	}
	if !hasResponse {
		cause := callErr
		if cause == nil {
			cause = core.ErrNoNetworkResponse
		}
		core.LogEvent(ctx, c.logger, core.LogLevelError, "communicator request failed without response", map[string]any{
			"method": req.Method,
			"url":    req.URL,
			"error":  cause.Error(),
		})
		return core.NetworkResponse{}, &core.TransportError{Method: req.Method, URL: req.URL, Cause: cause}
	}

	if req.UsesAuth && attempt == 0 && res.StatusCode == http.StatusUnauthorized && c.hasProvider() {
		core.LogEvent(ctx, c.logger, core.LogLevelInfo, "communicator retrying after unauthorized response", map[string]any{
			"method": req.Method,
			"url":    req.URL,
		})
		if _, _, err := c.RefreshToken(ctx); err != nil {
			return core.NetworkResponse{}, err
		}
		return c.placeNetworkCall(ctx, req, attempt+1)
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized:
		return res, &core.UnauthorizedError{
			StatusCode: res.StatusCode,
			Message:    fmt.Sprintf("%s %s rejected", req.Method, req.URL),
			Cause:      callErr,
		}
	case res.StatusCode >= http.StatusBadRequest:
		return res, &core.HTTPError{StatusCode: res.StatusCode, Response: res, Cause: callErr}
	default:
		return res, nil
	}
}

func (c *Communicator) execute(
	ctx context.Context,
	req Request,
	headers map[string]string,
) (core.NetworkResponse, error) {
	adapter := c.NetworkAdapter()
	if adapter == nil {
		return core.NetworkResponse{}, fmt.Errorf("communicator: network adapter is not configured")
	}
	switch req.Method {
	case http.MethodPost:
		return adapter.Post(ctx, req.URL, req.Data, headers)
	case http.MethodPut:
		return adapter.Put(ctx, req.URL, req.Data, headers)
	case http.MethodDelete:
		return adapter.Delete(ctx, req.URL, headers)
	default:
		return adapter.Get(ctx, req.URL, headers)
	}
}

// headers builds the header set for a call. Authenticated headers without a
// token return core.ErrMissingToken instead of dropping Authorization.
func (c *Communicator) headers(usesAuth bool) (map[string]string, error) {
	headers := map[string]string{core.HeaderContentType: core.ContentTypeJSON}
	if !usesAuth {
		return headers, nil
	}
	token := c.Token()
	if token == "" {
		return nil, core.ErrMissingToken
	}
	headers[core.HeaderAccept] = "*/*"
	headers[core.HeaderAuthorization] = "Bearer " + token
	return headers, nil
}

func (c *Communicator) hasProvider() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.provider != nil
}

var _ core.TokenHolder = (*Communicator)(nil)
