package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	glog "github.com/goliatone/go-logger/glog"
)

const (
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderAuthorization = "Authorization"

	ContentTypeJSON = "application/json"
)

// NetworkResponse is the minimal result shape every transport returns.
// Data holds the JSON-decoded body when it parses and the raw body string
// otherwise.
type NetworkResponse struct {
	StatusCode int
	Data       any
	Body       []byte
	Headers    map[string]string
	Request    any
}

func (r NetworkResponse) IsError() bool {
	return r.StatusCode >= http.StatusBadRequest
}

// DataMap returns Data as a JSON object when it is one.
func (r NetworkResponse) DataMap() (map[string]any, bool) {
	typed, ok := r.Data.(map[string]any)
	return typed, ok
}

// DecodeData re-decodes the response body into target.
func (r NetworkResponse) DecodeData(target any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("core: response body is empty")
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("core: decode response body: %w", err)
	}
	return nil
}

// NetworkAdapter performs the actual HTTP verbs. Implementations must return
// an error implementing ResponseCarrier for non-2xx statuses so callers can
// still inspect the status code.
type NetworkAdapter interface {
	Get(ctx context.Context, url string, headers map[string]string) (NetworkResponse, error)
	Post(ctx context.Context, url string, data any, headers map[string]string) (NetworkResponse, error)
	Put(ctx context.Context, url string, data any, headers map[string]string) (NetworkResponse, error)
	Delete(ctx context.Context, url string, headers map[string]string) (NetworkResponse, error)
}

// ResponseCarrier is implemented by adapter errors that still carry the
// server response.
type ResponseCarrier interface {
	error
	NetworkResponse() (NetworkResponse, bool)
}

// CredentialStore is string-keyed persistence scoped to one session.
// Non-primitive values are JSON-serialized by Set.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any) error
	Pop(ctx context.Context, key string) (string, bool, error)
	Remove(ctx context.Context, key string) error
}

// GetObject reads key from store and JSON-decodes it into T.
func GetObject[T any](ctx context.Context, store CredentialStore, key string) (T, bool, error) {
	var out T
	if store == nil {
		return out, false, fmt.Errorf("core: credential store is not configured")
	}
	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return out, false, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, false, fmt.Errorf("core: decode stored object %q: %w", key, err)
	}
	return out, true, nil
}

// TokenProvider mints a fresh bearer token.
type TokenProvider func(ctx context.Context) (string, error)

// TokenHolder exposes the token currently cached by a communicator.
type TokenHolder interface {
	HasToken() bool
	Token() string
}

// TokenVerifier confirms that an already held token is still accepted.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (bool, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
