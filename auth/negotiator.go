package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-vault/core"
	"github.com/goliatone/go-vault/transport"
)

const (
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeAuthorizationCode = "authorization_code"

	FlowReuseToken        = "reuse_token"
	FlowPKCEExchange      = "pkce_exchange"
	FlowSignIn            = "oidc_sign_in"
	FlowClientCredentials = "client_credentials"
	FlowStoredCredentials = "stored_client_credentials"
)

type NegotiatorConfig struct {
	TokenURL     string
	SignInURL    string
	AuthorizeURL string
}

// NegotiatorConfigFromConfig resolves endpoint defaults from the service
// configuration.
func NegotiatorConfigFromConfig(cfg core.Config) NegotiatorConfig {
	return NegotiatorConfig{
		TokenURL:     cfg.TokenEndpoint(),
		SignInURL:    cfg.SignInEndpoint(),
		AuthorizeURL: strings.TrimSpace(cfg.Auth.AuthorizeURL),
	}
}

// Negotiator turns the available credential into a bearer token. It tries
// one flow per call in a fixed priority and reports every failure as a
// core.UnauthorizedError wrapping the cause, except a missing credential,
// which is a core.CredentialError raised before any network call.
type Negotiator struct {
	config   NegotiatorConfig
	mu       sync.RWMutex
	adapter  core.NetworkAdapter
	store    core.CredentialStore
	holder   core.TokenHolder
	verifier core.TokenVerifier
	logger   core.Logger
}

type NegotiatorOption func(*Negotiator)

func WithNetworkAdapter(adapter core.NetworkAdapter) NegotiatorOption {
	return func(n *Negotiator) {
		if adapter != nil {
			n.adapter = adapter
		}
	}
}

func WithCredentialStore(store core.CredentialStore) NegotiatorOption {
	return func(n *Negotiator) {
		n.store = store
	}
}

// WithTokenHolder lets the authorization-code flow reuse a token that is
// already held, subject to the TokenVerifier.
func WithTokenHolder(holder core.TokenHolder) NegotiatorOption {
	return func(n *Negotiator) {
		n.holder = holder
	}
}

func WithTokenVerifier(verifier core.TokenVerifier) NegotiatorOption {
	return func(n *Negotiator) {
		n.verifier = verifier
	}
}

func WithLogger(logger core.Logger) NegotiatorOption {
	return func(n *Negotiator) {
		if logger != nil {
			n.logger = logger
		}
	}
}

func NewNegotiator(cfg NegotiatorConfig, opts ...NegotiatorOption) *Negotiator {
	n := &Negotiator{
		config: NegotiatorConfig{
			TokenURL:     strings.TrimSpace(cfg.TokenURL),
			SignInURL:    strings.TrimSpace(cfg.SignInURL),
			AuthorizeURL: strings.TrimSpace(cfg.AuthorizeURL),
		},
		logger: glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	if n.adapter == nil {
		n.adapter = transport.NewRESTAdapter(nil)
	}
	return n
}

func (n *Negotiator) SetNetworkAdapter(adapter core.NetworkAdapter) {
	if adapter == nil {
		adapter = transport.NewRESTAdapter(nil)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.adapter = adapter
}

func (n *Negotiator) NetworkAdapter() core.NetworkAdapter {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.adapter
}

// TokenProvider binds cred to Authorize so it can be registered as a
// communicator token callback.
func (n *Negotiator) TokenProvider(cred core.Credential) core.TokenProvider {
	return func(ctx context.Context) (string, error) {
		return n.Authorize(ctx, cred)
	}
}

// Authorize selects a flow from the credential shape:
//  1. authorization code: reuse a verified token, else PKCE exchange, else
//     OIDC sign-in;
//  2. client credentials with key and secret;
//  3. anything else: stored client credentials, or core.CredentialError.
func (n *Negotiator) Authorize(ctx context.Context, cred core.Credential) (string, error) {
	if n == nil {
		return "", &core.UnauthorizedError{Message: "negotiator is not configured"}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	switch typed := cred.(type) {
	case core.AuthorizationCodeCredentials:
		if code := typed.Normalize(); code.AuthorizationCode != "" {
			return n.authorizationCodeFlow(ctx, code)
		}
	case *core.AuthorizationCodeCredentials:
		if typed != nil {
			if code := typed.Normalize(); code.AuthorizationCode != "" {
				return n.authorizationCodeFlow(ctx, code)
			}
		}
	case core.ClientCredentials:
		if typed.Complete() {
			return n.clientCredentialsFlow(ctx, typed.Normalize(), FlowClientCredentials)
		}
	case *core.ClientCredentials:
		if typed != nil && typed.Complete() {
			return n.clientCredentialsFlow(ctx, typed.Normalize(), FlowClientCredentials)
		}
	case nil:
	default:
		return "", &core.UnauthorizedError{Message: fmt.Sprintf("unsupported credential kind %q", cred.Kind())}
	}
	return n.storedCredentialsFlow(ctx)
}

func (n *Negotiator) authorizationCodeFlow(ctx context.Context, cred core.AuthorizationCodeCredentials) (string, error) {
	if token, ok := n.reusableToken(ctx); ok {
		n.logFlow(ctx, FlowReuseToken, nil)
		return token, nil
	}
	if n.store == nil {
		return "", &core.UnauthorizedError{Message: "authorization code flow requires a credential store"}
	}

	if expected, ok, err := n.store.Pop(ctx, core.StoreKeyOAuthState); err != nil {
		return "", unauthorized("read oauth state", err)
	} else if ok && expected != "" && cred.State != "" && expected != cred.State {
		return "", &core.UnauthorizedError{Message: "oauth state mismatch"}
	}

	verifier, hasVerifier, err := n.store.Pop(ctx, core.StoreKeyPKCEVerifier)
	if err != nil {
		return "", unauthorized("read pkce verifier", err)
	}
	redirectURL, hasRedirect, err := n.store.Pop(ctx, core.StoreKeyRedirectURL)
	if err != nil {
		return "", unauthorized("read redirect url", err)
	}
	verifier, redirectURL = strings.TrimSpace(verifier), strings.TrimSpace(redirectURL)
	hasVerifier = hasVerifier && verifier != ""
	hasRedirect = hasRedirect && redirectURL != ""

	if hasVerifier && hasRedirect {
		n.logFlow(ctx, FlowPKCEExchange, map[string]any{"client_id": cred.ClientID, "redirect_uri": redirectURL})
		return n.exchange(ctx, FlowPKCEExchange, map[string]any{
			"code":          cred.AuthorizationCode,
			"client_id":     cred.ClientID,
			"code_verifier": verifier,
			"grant_type":    GrantTypeAuthorizationCode,
			"redirect_uri":  redirectURL,
		})
	}

	applicationID, hasApplicationID, err := n.store.Get(ctx, core.StoreKeyApplicationID)
	if err != nil {
		return "", unauthorized("read application id", err)
	}
	applicationID = strings.TrimSpace(applicationID)
	if hasRedirect && cred.State != "" && hasApplicationID && applicationID != "" {
		signInURL, err := buildSignInURL(n.config.SignInURL, cred, redirectURL, applicationID)
		if err != nil {
			return "", unauthorized("build sign-in url", err)
		}
		n.logFlow(ctx, FlowSignIn, map[string]any{"application_id": applicationID, "redirect_uri": redirectURL})
		res, err := n.NetworkAdapter().Get(ctx, signInURL, jsonHeaders())
		if err != nil {
			return "", unauthorized("oidc sign-in failed", err)
		}
		return n.extractToken(ctx, FlowSignIn, res)
	}

	return "", &core.UnauthorizedError{
		Message: "authorization code flow requires a persisted redirect state",
		Cause:   errMissingRedirectState,
	}
}

var errMissingRedirectState = errors.New("auth: no pkce verifier or sign-in redirect state available")

func (n *Negotiator) clientCredentialsFlow(ctx context.Context, cred core.ClientCredentials, flow string) (string, error) {
	n.logFlow(ctx, flow, map[string]any{"client_id": cred.AppKey, "scope": cred.Scope})
	body := map[string]any{
		"client_id":     cred.AppKey,
		"client_secret": cred.AppSecret,
		"grant_type":    GrantTypeClientCredentials,
	}
	if cred.Scope != "" {
		body["scope"] = cred.Scope
	}
	token, err := n.exchange(ctx, flow, body)
	if err != nil {
		return "", err
	}

	if n.store != nil {
		if err := n.store.Set(ctx, core.StoreKeyClientCredentials, core.NewStoredClientCredentials(cred)); err != nil {
			return "", unauthorized("persist client credentials", err)
		}
		core.LogEvent(ctx, n.logger, core.LogLevelDebug, "auth client credentials persisted", map[string]any{
			"client_id": cred.AppKey,
		})
	}
	return token, nil
}

func (n *Negotiator) storedCredentialsFlow(ctx context.Context) (string, error) {
	if n.store == nil {
		return "", &core.CredentialError{Message: "no credential supplied and no credential store configured"}
	}
	raw, ok, err := n.store.Get(ctx, core.StoreKeyClientCredentials)
	if err != nil {
		return "", unauthorized("read stored client credentials", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return "", &core.CredentialError{Message: "no stored client credentials"}
	}
	cred, err := core.DecodeStoredClientCredentials([]byte(raw))
	if err != nil {
		return "", unauthorized("stored client credentials are malformed", err)
	}
	return n.clientCredentialsFlow(ctx, cred, FlowStoredCredentials)
}

func (n *Negotiator) reusableToken(ctx context.Context) (string, bool) {
	if n.holder == nil || n.verifier == nil || !n.holder.HasToken() {
		return "", false
	}
	token := n.holder.Token()
	ok, err := n.verifier.VerifyToken(ctx, token)
	if err != nil {
		core.LogEvent(ctx, n.logger, core.LogLevelWarn, "auth token verification failed", map[string]any{
			"error": err.Error(),
		})
		return "", false
	}
	return token, ok
}

func (n *Negotiator) exchange(ctx context.Context, flow string, body map[string]any) (string, error) {
	if n.config.TokenURL == "" {
		return "", &core.UnauthorizedError{Message: "token url is not configured"}
	}
	res, err := n.NetworkAdapter().Post(ctx, n.config.TokenURL, body, jsonHeaders())
	if err != nil {
		core.LogEvent(ctx, n.logger, core.LogLevelWarn, "auth token exchange failed", map[string]any{
			"flow":  flow,
			"error": err.Error(),
		})
		return "", unauthorized(flow+" token exchange failed", err)
	}
	return n.extractToken(ctx, flow, res)
}

func (n *Negotiator) extractToken(ctx context.Context, flow string, res core.NetworkResponse) (string, error) {
	data, ok := res.DataMap()
	if !ok {
		return "", &core.UnauthorizedError{StatusCode: res.StatusCode, Message: "token response is not a json object"}
	}
	token, _ := data["access_token"].(string)
	token = strings.TrimSpace(token)
	if token == "" {
		return "", &core.UnauthorizedError{StatusCode: res.StatusCode, Message: "token response has no access_token"}
	}
	core.LogEvent(ctx, n.logger, core.LogLevelInfo, "auth token issued", map[string]any{"flow": flow})
	return token, nil
}

func (n *Negotiator) logFlow(ctx context.Context, flow string, fields map[string]any) {
	merged := cloneMetadata(fields)
	merged["flow"] = flow
	core.LogEvent(ctx, n.logger, core.LogLevelDebug, "auth flow selected", merged)
}

func buildSignInURL(base string, cred core.AuthorizationCodeCredentials, redirectURL string, applicationID string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", fmt.Errorf("auth: sign-in url is not configured")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("auth: invalid sign-in url: %w", err)
	}
	query := parsed.Query()
	query.Set("code", cred.AuthorizationCode)
	query.Set("state", cred.State)
	query.Set("redirect_uri", redirectURL)
	query.Set("application_id", applicationID)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func jsonHeaders() map[string]string {
	return map[string]string{core.HeaderContentType: core.ContentTypeJSON}
}

func unauthorized(message string, cause error) error {
	err := &core.UnauthorizedError{Message: message, Cause: cause}
	var carrier core.ResponseCarrier
	if errors.As(cause, &carrier) {
		if res, ok := carrier.NetworkResponse(); ok {
			err.StatusCode = res.StatusCode
		}
	}
	return err
}
