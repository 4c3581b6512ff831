package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ServiceErrorBadInput        = "VAULT_BAD_INPUT"
	ServiceErrorUnauthorized    = "VAULT_UNAUTHORIZED"
	ServiceErrorNoCredentials   = "VAULT_NO_CREDENTIALS"
	ServiceErrorTransport       = "VAULT_TRANSPORT_FAILURE"
	ServiceErrorHTTP            = "VAULT_HTTP_ERROR"
	ServiceErrorNotFound        = "VAULT_NOT_FOUND"
	ServiceErrorVersionMismatch = "VAULT_CRYPTO_VERSION_MISMATCH"
	ServiceErrorDecryption      = "VAULT_DECRYPTION_FAILED"
	ServiceErrorInternal        = "VAULT_INTERNAL_ERROR"
)

var (
	ErrUnauthorized      = errors.New("core: unauthorized")
	ErrNoCredentials     = errors.New("core: no valid credentials provided")
	ErrTransport         = errors.New("core: transport failure")
	ErrNoNetworkResponse = errors.New("core: no network response")
	ErrHTTP              = errors.New("core: http request failed")
	ErrVersionMismatch   = errors.New("core: crypto version mismatch")
	ErrDecryption        = errors.New("core: decryption failed")
	ErrMissingToken      = errors.New("core: authenticated request built without a token")
)

// UnauthorizedError is the single error kind surfaced for failed
// negotiations and for 401 responses after the permitted retry. Cause keeps
// the underlying failure for diagnostics.
type UnauthorizedError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *UnauthorizedError) Error() string {
	if e == nil {
		return ErrUnauthorized.Error()
	}
	base := ErrUnauthorized.Error()
	if msg := strings.TrimSpace(e.Message); msg != "" {
		base += ": " + msg
	}
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (status=%d)", e.StatusCode)
	}
	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}
	return base
}

func (e *UnauthorizedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// CredentialError is raised before any network attempt when no usable
// credential can be found. It also matches ErrUnauthorized.
type CredentialError struct {
	Message string
	Cause   error
}

func (e *CredentialError) Error() string {
	if e == nil {
		return ErrNoCredentials.Error()
	}
	base := ErrNoCredentials.Error()
	if msg := strings.TrimSpace(e.Message); msg != "" {
		base += ": " + msg
	}
	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}
	return base
}

func (e *CredentialError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *CredentialError) Is(target error) bool {
	return target == ErrNoCredentials || target == ErrUnauthorized
}

// TransportError means no response was received at all.
type TransportError struct {
	Method string
	URL    string
	Cause  error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ErrTransport.Error()
	}
	base := ErrTransport.Error()
	if e.Method != "" || e.URL != "" {
		base += fmt.Sprintf(": %s %s", e.Method, e.URL)
	}
	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}
	return base
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// HTTPError reports a response with status >= 400 other than 401.
type HTTPError struct {
	StatusCode int
	Response   NetworkResponse
	Cause      error
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ErrHTTP.Error()
	}
	base := fmt.Sprintf("%s (status=%d)", ErrHTTP.Error(), e.StatusCode)
	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}
	return base
}

func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrHTTP
}

func (e *HTTPError) NetworkResponse() (NetworkResponse, bool) {
	if e == nil {
		return NetworkResponse{}, false
	}
	return e.Response, true
}

type VersionMismatchError struct {
	Got  string
	Want string
}

func (e *VersionMismatchError) Error() string {
	if e == nil {
		return ErrVersionMismatch.Error()
	}
	return fmt.Sprintf("%s: got %q, supported %q", ErrVersionMismatch.Error(), e.Got, e.Want)
}

func (e *VersionMismatchError) Is(target error) bool {
	return target == ErrVersionMismatch
}

type DecryptionError struct {
	Message string
	Cause   error
}

func (e *DecryptionError) Error() string {
	if e == nil {
		return ErrDecryption.Error()
	}
	base := ErrDecryption.Error()
	if msg := strings.TrimSpace(e.Message); msg != "" {
		base += ": " + msg
	}
	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}
	return base
}

func (e *DecryptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *DecryptionError) Is(target error) bool {
	return target == ErrDecryption
}

// ToServiceError maps any error onto a go-errors envelope with a stable text
// code and HTTP status.
func ToServiceError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}

	var (
		credErr    *CredentialError
		unauthErr  *UnauthorizedError
		transErr   *TransportError
		httpErr    *HTTPError
		versionErr *VersionMismatchError
		decryptErr *DecryptionError
	)
	switch {
	case errors.As(err, &credErr):
		return newServiceError(err, goerrors.CategoryAuth, http.StatusUnauthorized, ServiceErrorNoCredentials)
	case errors.As(err, &unauthErr):
		return newServiceError(err, goerrors.CategoryAuth, http.StatusUnauthorized, ServiceErrorUnauthorized)
	case errors.As(err, &versionErr):
		return newServiceError(err, goerrors.CategoryBadInput, http.StatusBadRequest, ServiceErrorVersionMismatch)
	case errors.As(err, &decryptErr):
		return newServiceError(err, goerrors.CategoryOperation, http.StatusUnprocessableEntity, ServiceErrorDecryption)
	case errors.As(err, &httpErr):
		category, textCode := httpStatusCategory(httpErr.StatusCode)
		return newServiceError(err, category, httpErr.StatusCode, textCode)
	case errors.As(err, &transErr):
		return newServiceError(err, goerrors.CategoryExternal, http.StatusBadGateway, ServiceErrorTransport)
	case errors.Is(err, ErrMissingToken):
		return newServiceError(err, goerrors.CategoryInternal, http.StatusInternalServerError, ServiceErrorInternal)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func newServiceError(source error, category goerrors.Category, code int, textCode string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.Wrap(source, category, source.Error()).
			WithCode(code).
			WithTextCode(textCode),
	)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func httpStatusCategory(status int) (goerrors.Category, string) {
	switch {
	case status == http.StatusNotFound:
		return goerrors.CategoryNotFound, ServiceErrorNotFound
	case status == http.StatusForbidden:
		return goerrors.CategoryAuthz, ServiceErrorHTTP
	case status == http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit, ServiceErrorHTTP
	case status >= http.StatusInternalServerError:
		return goerrors.CategoryExternal, ServiceErrorHTTP
	default:
		return goerrors.CategoryBadInput, ServiceErrorHTTP
	}
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorBadInput
	case goerrors.CategoryNotFound:
		return ServiceErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ServiceErrorUnauthorized
	case goerrors.CategoryExternal:
		return ServiceErrorTransport
	default:
		return ServiceErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
