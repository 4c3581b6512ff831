package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/goliatone/go-vault/core"
)

const CodeChallengeMethodS256 = "S256"

type AuthorizationRequest struct {
	ClientID      string
	RedirectURL   string
	ApplicationID string
	Scope         string
	State         string
}

type AuthorizationStart struct {
	URL           string
	State         string
	CodeChallenge string
}

// BeginAuthorization prepares a PKCE authorization-code redirect. The
// verifier, redirect URL, application id and state are persisted so a later
// Authorize call with the returned code can complete the exchange.
func (n *Negotiator) BeginAuthorization(ctx context.Context, req AuthorizationRequest) (AuthorizationStart, error) {
	return n.beginAuthorization(ctx, req, rand.Reader)
}

func (n *Negotiator) beginAuthorization(ctx context.Context, req AuthorizationRequest, random io.Reader) (AuthorizationStart, error) {
	if n == nil || n.store == nil {
		return AuthorizationStart{}, fmt.Errorf("auth: authorization begin requires a credential store")
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.RedirectURL = strings.TrimSpace(req.RedirectURL)
	req.ApplicationID = strings.TrimSpace(req.ApplicationID)
	req.Scope = strings.TrimSpace(req.Scope)
	req.State = strings.TrimSpace(req.State)
	if req.ClientID == "" {
		return AuthorizationStart{}, fmt.Errorf("auth: client id is required")
	}
	if req.RedirectURL == "" {
		return AuthorizationStart{}, fmt.Errorf("auth: redirect url is required")
	}
	if n.config.AuthorizeURL == "" {
		return AuthorizationStart{}, fmt.Errorf("auth: authorize url is not configured")
	}
	authorizeURL, err := url.Parse(n.config.AuthorizeURL)
	if err != nil {
		return AuthorizationStart{}, fmt.Errorf("auth: invalid authorize url: %w", err)
	}

	verifier, err := randomToken(random, 32)
	if err != nil {
		return AuthorizationStart{}, err
	}
	state := req.State
	if state == "" {
		if state, err = randomToken(random, 16); err != nil {
			return AuthorizationStart{}, err
		}
	}
	challenge := CodeChallenge(verifier)

	values := map[string]string{
		core.StoreKeyPKCEVerifier: verifier,
		core.StoreKeyRedirectURL:  req.RedirectURL,
		core.StoreKeyOAuthState:   state,
	}
	if req.ApplicationID != "" {
		values[core.StoreKeyApplicationID] = req.ApplicationID
	}
	for key, value := range values {
		if err := n.store.Set(ctx, key, value); err != nil {
			return AuthorizationStart{}, fmt.Errorf("auth: persist %s: %w", key, err)
		}
	}

	query := authorizeURL.Query()
	query.Set("response_type", "code")
	query.Set("client_id", req.ClientID)
	query.Set("redirect_uri", req.RedirectURL)
	query.Set("code_challenge", challenge)
	query.Set("code_challenge_method", CodeChallengeMethodS256)
	query.Set("state", state)
	if req.Scope != "" {
		query.Set("scope", req.Scope)
	}
	authorizeURL.RawQuery = query.Encode()

	core.LogEvent(ctx, n.logger, core.LogLevelDebug, "auth authorization started", map[string]any{
		"client_id":      req.ClientID,
		"redirect_uri":   req.RedirectURL,
		"application_id": req.ApplicationID,
	})
	return AuthorizationStart{URL: authorizeURL.String(), State: state, CodeChallenge: challenge}, nil
}

// CodeChallenge returns the S256 challenge for verifier.
func CodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomToken(random io.Reader, size int) (string, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", fmt.Errorf("auth: generate random value: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
