package core

import (
	"context"
	"strings"
	"testing"
)

func TestStoredClientCredentials_WireShape(t *testing.T) {
	encoded, err := EncodeStoredClientCredentials(ClientCredentials{AppKey: " k ", AppSecret: "s"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(encoded) != `{"appKey":"k","appSecret":"s"}` {
		t.Fatalf("unexpected stored shape %s", encoded)
	}

	decoded, err := DecodeStoredClientCredentials([]byte(`{"appKey":"k","appSecret":"s","scope":"records"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.AppKey != "k" || decoded.AppSecret != "s" || decoded.Scope != "records" {
		t.Fatalf("unexpected decoded credentials %#v", decoded)
	}
}

func TestDecodeStoredClientCredentials_RejectsIncompletePayloads(t *testing.T) {
	for _, payload := range []string{"", "not-json", `{"appKey":"k"}`} {
		if _, err := DecodeStoredClientCredentials([]byte(payload)); err == nil {
			t.Fatalf("expected error for payload %q", payload)
		}
	}
}

type mapCredentialStore map[string]string

func (m mapCredentialStore) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := m[key]
	return value, ok, nil
}

func (m mapCredentialStore) Set(_ context.Context, key string, value any) error {
	m[key] = value.(string)
	return nil
}

func (m mapCredentialStore) Pop(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := m.Get(ctx, key)
	delete(m, key)
	return value, ok, err
}

func (m mapCredentialStore) Remove(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func TestGetObject(t *testing.T) {
	store := mapCredentialStore{
		StoreKeyClientCredentials: `{"appKey":"k","appSecret":"s"}`,
		"broken":                  `{"appKey":`,
	}
	ctx := context.Background()

	stored, ok, err := GetObject[StoredClientCredentials](ctx, store, StoreKeyClientCredentials)
	if err != nil || !ok {
		t.Fatalf("expected stored object, ok=%v err=%v", ok, err)
	}
	if stored.AppKey != "k" || stored.AppSecret != "s" {
		t.Fatalf("unexpected stored object %#v", stored)
	}

	if _, ok, err := GetObject[StoredClientCredentials](ctx, store, "missing"); ok || err != nil {
		t.Fatalf("expected missing key to report not found, ok=%v err=%v", ok, err)
	}

	if _, _, err := GetObject[StoredClientCredentials](ctx, store, "broken"); err == nil || !strings.Contains(err.Error(), "decode stored object") {
		t.Fatalf("expected decode error, got %v", err)
	}
}
