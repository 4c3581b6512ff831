package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-vault/core"
)

const KindREST = "rest"

const defaultRESTClientTimeout = 30 * time.Second
const defaultRESTResponseBodyLimit int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTAdapter is the default NetworkAdapter. Request data is JSON-encoded
// unless it is already a string or byte slice; non-2xx responses are
// returned together with a ResponseError.
type RESTAdapter struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewRESTAdapter(client HTTPDoer) *RESTAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultRESTClientTimeout}
	}
	return &RESTAdapter{
		Client:               client,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultRESTResponseBodyLimit,
	}
}

// NewDefaultAdapter builds the REST adapter from transport configuration.
func NewDefaultAdapter(cfg core.TransportConfig) *RESTAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRESTClientTimeout
	}
	adapter := NewRESTAdapter(&http.Client{Timeout: timeout})
	if cfg.MaxResponseBodyBytes > 0 {
		adapter.MaxResponseBodyBytes = cfg.MaxResponseBodyBytes
	}
	return adapter
}

func (*RESTAdapter) Kind() string {
	return KindREST
}

func (a *RESTAdapter) Get(ctx context.Context, rawURL string, headers map[string]string) (core.NetworkResponse, error) {
	return a.do(ctx, http.MethodGet, rawURL, nil, headers)
}

func (a *RESTAdapter) Post(ctx context.Context, rawURL string, data any, headers map[string]string) (core.NetworkResponse, error) {
	return a.do(ctx, http.MethodPost, rawURL, data, headers)
}

func (a *RESTAdapter) Put(ctx context.Context, rawURL string, data any, headers map[string]string) (core.NetworkResponse, error) {
	return a.do(ctx, http.MethodPut, rawURL, data, headers)
}

func (a *RESTAdapter) Delete(ctx context.Context, rawURL string, headers map[string]string) (core.NetworkResponse, error) {
	return a.do(ctx, http.MethodDelete, rawURL, nil, headers)
}

func (a *RESTAdapter) do(
	ctx context.Context,
	method string,
	rawURL string,
	data any,
	headers map[string]string,
) (core.NetworkResponse, error) {
	if a == nil || a.Client == nil {
		return core.NetworkResponse{}, transportError(
			"transport: rest adapter requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindREST},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return core.NetworkResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "url": strings.TrimSpace(rawURL)},
		)
	}
	if parsedURL.String() == "" {
		return core.NetworkResponse{}, transportError(
			"transport: request url is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST},
		)
	}

	body, err := encodeBody(data)
	if err != nil {
		return core.NetworkResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: encode request body",
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "method": method},
		)
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, parsedURL.String(), reader)
	if err != nil {
		return core.NetworkResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "method": method, "url": parsedURL.String()},
		)
	}
	for key, value := range a.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for key, value := range headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if body != nil && httpReq.Header.Get(core.HeaderContentType) == "" {
		httpReq.Header.Set(core.HeaderContentType, core.ContentTypeJSON)
	}

	startedAt := time.Now().UTC()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return core.NetworkResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: execute http request",
			http.StatusBadGateway,
			map[string]any{"adapter": KindREST, "method": method, "url": parsedURL.String()},
		)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := a.MaxResponseBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultRESTResponseBodyLimit
	}
	resBody, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return core.NetworkResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"adapter": KindREST, "status_code": httpRes.StatusCode},
		)
	}
	if int64(len(resBody)) > maxBodyBytes {
		return core.NetworkResponse{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"adapter":          KindREST,
				"status_code":      httpRes.StatusCode,
				"response_limit_b": maxBodyBytes,
			},
		)
	}

	res := core.NetworkResponse{
		StatusCode: httpRes.StatusCode,
		Data:       core.ParseJSONOrRaw(resBody),
		Body:       resBody,
		Headers:    flattenHeaders(httpRes.Header),
		Request: map[string]any{
			"method":      method,
			"url":         parsedURL.String(),
			"duration_ms": time.Since(startedAt).Milliseconds(),
		},
	}
	if httpRes.StatusCode < http.StatusOK || httpRes.StatusCode >= http.StatusMultipleChoices {
		return res, newResponseError(method, parsedURL.String(), res)
	}
	return res, nil
}

func encodeBody(data any) ([]byte, error) {
	switch typed := data.(type) {
	case nil:
		return nil, nil
	case []byte:
		return typed, nil
	case string:
		return []byte(typed), nil
	case json.RawMessage:
		return typed, nil
	default:
		return json.Marshal(typed)
	}
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ core.NetworkAdapter = (*RESTAdapter)(nil)
