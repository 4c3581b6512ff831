package transport

import (
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-vault/core"
)

// ResponseError is returned for non-2xx responses. It still carries the
// response so callers can inspect the status code.
type ResponseError struct {
	Response core.NetworkResponse
	Err      *goerrors.Error
}

func newResponseError(method string, url string, res core.NetworkResponse) *ResponseError {
	category := statusCategory(res.StatusCode)
	err := goerrors.New(
		fmt.Sprintf("transport: %s %s returned status %d", method, url, res.StatusCode),
		category,
	).
		WithCode(res.StatusCode).
		WithTextCode(transportTextCode(category))
	err.WithMetadata(map[string]any{
		"adapter":     KindREST,
		"method":      method,
		"url":         url,
		"status_code": res.StatusCode,
	})
	return &ResponseError{Response: res, Err: err}
}

func (e *ResponseError) Error() string {
	if e == nil || e.Err == nil {
		return "transport: response error"
	}
	return e.Err.Error()
}

func (e *ResponseError) Unwrap() error {
	if e == nil || e.Err == nil {
		return nil
	}
	return e.Err
}

func (e *ResponseError) NetworkResponse() (core.NetworkResponse, bool) {
	if e == nil {
		return core.NetworkResponse{}, false
	}
	return e.Response, true
}

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func statusCategory(status int) goerrors.Category {
	switch {
	case status == http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	case status >= http.StatusInternalServerError:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryBadInput
	}
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ServiceErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return core.ServiceErrorUnauthorized
	case goerrors.CategoryNotFound:
		return core.ServiceErrorNotFound
	case goerrors.CategoryExternal:
		return core.ServiceErrorTransport
	default:
		return core.ServiceErrorInternal
	}
}

var _ core.ResponseCarrier = (*ResponseError)(nil)
