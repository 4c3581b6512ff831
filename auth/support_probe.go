package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-vault/core"
)

// SupportProbe verifies a token by calling the service support endpoint
// with it. Any status below 400 counts as authenticated.
type SupportProbe struct {
	url     string
	mu      sync.RWMutex
	adapter core.NetworkAdapter
}

func NewSupportProbe(supportURL string, adapter core.NetworkAdapter) *SupportProbe {
	return &SupportProbe{url: strings.TrimSpace(supportURL), adapter: adapter}
}

func (p *SupportProbe) SetNetworkAdapter(adapter core.NetworkAdapter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adapter = adapter
}

func (p *SupportProbe) VerifyToken(ctx context.Context, token string) (bool, error) {
	if p == nil || p.url == "" {
		return false, fmt.Errorf("auth: support url is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}
	p.mu.RLock()
	adapter := p.adapter
	p.mu.RUnlock()
	if adapter == nil {
		return false, fmt.Errorf("auth: support probe has no network adapter")
	}

	res, err := adapter.Get(ctx, p.url, map[string]string{
		core.HeaderContentType:   core.ContentTypeJSON,
		core.HeaderAccept:        "*/*",
		core.HeaderAuthorization: "Bearer " + token,
	})
	if err != nil {
		var carrier core.ResponseCarrier
		if !errors.As(err, &carrier) {
			return false, err
		}
		carried, ok := carrier.NetworkResponse()
		if !ok || carried.StatusCode == 0 {
			return false, err
		}
		res = carried
	}
	return res.StatusCode > 0 && res.StatusCode < http.StatusBadRequest, nil
}

var _ core.TokenVerifier = (*SupportProbe)(nil)
