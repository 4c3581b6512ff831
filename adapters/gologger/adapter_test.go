package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
)

func TestResolveDeterministicFallback(t *testing.T) {
	loggerOnly := &capturingLogger{id: "logger"}
	provider := &capturingProvider{loggers: map[string]*capturingLogger{
		DefaultName: {id: "provider"},
	}}

	_, resolved := Resolve("", provider, loggerOnly)
	if got := resolved.(*capturingLogger); got.id != "provider" {
		t.Fatalf("expected provider logger precedence, got %q", got.id)
	}

	resolvedProvider, resolved := Resolve(DefaultName, nil, loggerOnly)
	if got := resolved.(*capturingLogger); got.id != "logger" {
		t.Fatalf("expected direct logger when provider is nil, got %q", got.id)
	}
	if resolvedProvider == nil {
		t.Fatalf("expected provider wrapper from logger")
	}

	_, resolved = Resolve(DefaultName, nil, nil)
	if resolved == nil {
		t.Fatalf("expected nop logger fallback")
	}
}

func TestComponentUsesNamedLogger(t *testing.T) {
	base := &capturingLogger{id: "base"}
	provider := &capturingProvider{loggers: map[string]*capturingLogger{
		"vault.communicator": {id: "communicator"},
	}}

	got := Component(provider, base, "communicator").(*capturingLogger)
	if got.id != "communicator" {
		t.Fatalf("expected component logger, got %q", got.id)
	}
	got = Component(provider, base, "records").(*capturingLogger)
	if got.id != "base" {
		t.Fatalf("expected base fallback, got %q", got.id)
	}
	got = Component(nil, base, "auth").(*capturingLogger)
	if got.id != "base" {
		t.Fatalf("expected base without provider, got %q", got.id)
	}
}

var (
	_ glog.Logger         = (*capturingLogger)(nil)
	_ glog.LoggerProvider = (*capturingProvider)(nil)
)

type capturingProvider struct {
	loggers map[string]*capturingLogger
}

func (p *capturingProvider) GetLogger(name string) glog.Logger {
	if p == nil {
		return nil
	}
	if logger, ok := p.loggers[name]; ok {
		return logger
	}
	return nil
}

type capturingLogger struct {
	id string
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Info(string, ...any)  {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}
