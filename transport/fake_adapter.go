package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/goliatone/go-vault/core"
)

const KindFake = "fake"

// Script is one scripted reply of a FakeAdapter. A script with Err and an
// empty response simulates a transport failure; an empty script returns no
// response and no error.
type Script struct {
	Response core.NetworkResponse
	Err      error
}

// Respond scripts a response with status and data. Non-2xx statuses are
// returned with a ResponseError like the REST adapter does.
func Respond(status int, data any) Script {
	body, _ := json.Marshal(data)
	return Script{Response: core.NetworkResponse{
		StatusCode: status,
		Data:       core.ParseJSONOrRaw(body),
		Body:       body,
		Headers:    map[string]string{core.HeaderContentType: core.ContentTypeJSON},
	}}
}

// Fail scripts a transport failure without a response.
func Fail(err error) Script {
	return Script{Err: err}
}

// Call records one request observed by a FakeAdapter.
type Call struct {
	Method  string
	URL     string
	Data    any
	Headers map[string]string
}

// FakeAdapter replays scripts in order, repeating the last one once
// exhausted, and records every call.
type FakeAdapter struct {
	mu      sync.Mutex
	scripts []Script
	calls   []Call
}

func NewFakeAdapter(scripts ...Script) *FakeAdapter {
	return &FakeAdapter{scripts: append([]Script(nil), scripts...)}
}

func (*FakeAdapter) Kind() string {
	return KindFake
}

func (a *FakeAdapter) Enqueue(scripts ...Script) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scripts = append(a.scripts, scripts...)
}

func (a *FakeAdapter) Get(ctx context.Context, url string, headers map[string]string) (core.NetworkResponse, error) {
	return a.do(ctx, http.MethodGet, url, nil, headers)
}

func (a *FakeAdapter) Post(ctx context.Context, url string, data any, headers map[string]string) (core.NetworkResponse, error) {
	return a.do(ctx, http.MethodPost, url, data, headers)
}

func (a *FakeAdapter) Put(ctx context.Context, url string, data any, headers map[string]string) (core.NetworkResponse, error) {
	return a.do(ctx, http.MethodPut, url, data, headers)
}

func (a *FakeAdapter) Delete(ctx context.Context, url string, headers map[string]string) (core.NetworkResponse, error) {
	return a.do(ctx, http.MethodDelete, url, nil, headers)
}

func (a *FakeAdapter) do(
	_ context.Context,
	method string,
	url string,
	data any,
	headers map[string]string,
) (core.NetworkResponse, error) {
	if a == nil {
		return core.NetworkResponse{}, fmt.Errorf("transport: fake adapter is nil")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls = append(a.calls, Call{
		Method:  method,
		URL:     url,
		Data:    data,
		Headers: cloneHeaders(headers),
	})
	index := len(a.calls) - 1

	var script Script
	switch {
	case index < len(a.scripts):
		script = a.scripts[index]
	case len(a.scripts) > 0:
		script = a.scripts[len(a.scripts)-1]
	default:
		script = Respond(http.StatusOK, map[string]any{})
	}

	res := script.Response
	res.Headers = cloneHeaders(res.Headers)
	res.Request = map[string]any{"method": method, "url": url}
	if script.Err != nil {
		if res.StatusCode == 0 {
			return core.NetworkResponse{}, script.Err
		}
		return res, script.Err
	}
	if res.StatusCode == 0 {
		return core.NetworkResponse{}, nil
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return res, newResponseError(method, url, res)
	}
	return res, nil
}

func (a *FakeAdapter) Calls() []Call {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Call, 0, len(a.calls))
	for _, call := range a.calls {
		call.Headers = cloneHeaders(call.Headers)
		out = append(out, call)
	}
	return out
}

func (a *FakeAdapter) CallCount() int {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func cloneHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var _ core.NetworkAdapter = (*FakeAdapter)(nil)
