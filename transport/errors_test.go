package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-vault/core"
)

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Get(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatalf("expected response body limit error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.ServiceErrorTransport {
		t.Fatalf("expected %q text code, got %q", core.ServiceErrorTransport, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTAdapter_NilClientReturnsRichError(t *testing.T) {
	adapter := &RESTAdapter{}
	_, err := adapter.Get(context.Background(), "http://localhost", nil)
	if err == nil {
		t.Fatalf("expected nil client error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.ServiceErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.ServiceErrorInternal, rich.TextCode)
	}
}

func TestResponseError_MapsStatusToCategory(t *testing.T) {
	cases := []struct {
		status   int
		category goerrors.Category
		textCode string
	}{
		{status: http.StatusUnauthorized, category: goerrors.CategoryAuth, textCode: core.ServiceErrorUnauthorized},
		{status: http.StatusForbidden, category: goerrors.CategoryAuthz, textCode: core.ServiceErrorUnauthorized},
		{status: http.StatusNotFound, category: goerrors.CategoryNotFound, textCode: core.ServiceErrorNotFound},
		{status: http.StatusBadGateway, category: goerrors.CategoryExternal, textCode: core.ServiceErrorTransport},
		{status: http.StatusConflict, category: goerrors.CategoryBadInput, textCode: core.ServiceErrorBadInput},
	}
	for _, tc := range cases {
		err := newResponseError(http.MethodGet, "http://api/records", core.NetworkResponse{StatusCode: tc.status})
		if err.Err.Category != tc.category {
			t.Fatalf("status %d: expected category %q, got %q", tc.status, tc.category, err.Err.Category)
		}
		if err.Err.TextCode != tc.textCode {
			t.Fatalf("status %d: expected text code %q, got %q", tc.status, tc.textCode, err.Err.TextCode)
		}
		if err.Err.Code != tc.status {
			t.Fatalf("status %d: expected code to match status, got %d", tc.status, err.Err.Code)
		}
	}
}

func TestFakeAdapter_ReplaysScriptsAndRecordsCalls(t *testing.T) {
	boom := errors.New("connection reset")
	adapter := NewFakeAdapter(
		Respond(http.StatusUnauthorized, map[string]any{"error": "expired"}),
		Fail(boom),
		Respond(http.StatusOK, map[string]any{"ok": true}),
	)
	ctx := context.Background()

	res, err := adapter.Get(ctx, "http://api/a", map[string]string{"X": "1"})
	var carrier core.ResponseCarrier
	if !errors.As(err, &carrier) || res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected scripted 401 carrier, got %v (%d)", err, res.StatusCode)
	}
	if _, err := adapter.Post(ctx, "http://api/b", "body", nil); !errors.Is(err, boom) {
		t.Fatalf("expected scripted transport failure, got %v", err)
	}
	for i := 0; i < 2; i++ {
		res, err := adapter.Put(ctx, "http://api/c", nil, nil)
		if err != nil || res.StatusCode != http.StatusOK {
			t.Fatalf("expected last script to repeat, got %v (%d)", err, res.StatusCode)
		}
	}

	calls := adapter.Calls()
	if len(calls) != 4 || adapter.CallCount() != 4 {
		t.Fatalf("expected 4 recorded calls, got %d", len(calls))
	}
	if calls[0].Method != http.MethodGet || calls[0].Headers["X"] != "1" {
		t.Fatalf("unexpected first call %#v", calls[0])
	}
	if calls[1].Method != http.MethodPost || calls[1].Data != "body" {
		t.Fatalf("unexpected second call %#v", calls[1])
	}
	calls[0].Headers["X"] = "mutated"
	if adapter.Calls()[0].Headers["X"] != "1" {
		t.Fatalf("expected calls to be cloned")
	}
}
