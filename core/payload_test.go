package core

import "testing"

func TestParseJSONOrRaw(t *testing.T) {
	if got := ParseJSONOrRaw(nil); got != nil {
		t.Fatalf("expected nil for empty body, got %#v", got)
	}
	decoded, ok := ParseJSONOrRaw([]byte(`{"access_token":"tok"}`)).(map[string]any)
	if !ok || decoded["access_token"] != "tok" {
		t.Fatalf("expected decoded json object, got %#v", decoded)
	}
	if got := ParseJSONOrRaw([]byte("plain text")); got != "plain text" {
		t.Fatalf("expected raw string fallback, got %#v", got)
	}
	if got := ParseJSONOrRaw([]byte(`"quoted"`)); got != "quoted" {
		t.Fatalf("expected json string, got %#v", got)
	}
}
