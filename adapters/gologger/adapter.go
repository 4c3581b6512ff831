// Package gologger resolves the vault logger from go-logger providers.
package gologger

import (
	glog "github.com/goliatone/go-logger/glog"
)

// DefaultName is the logger name used for vault components.
const DefaultName = "vault"

// Resolve uses deterministic precedence provider > logger > nop and prefers
// the provider's named logger when one is available.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	if name == "" {
		name = DefaultName
	}
	resolvedProvider, resolved := glog.Resolve(name, provider, logger)
	resolved = glog.Ensure(resolved)
	if resolvedProvider != nil {
		if named := resolvedProvider.GetLogger(name); named != nil {
			resolved = glog.Ensure(named)
		}
	}
	return resolvedProvider, resolved
}

// Component returns the logger for a named vault component, falling back to
// base when the provider has none.
func Component(provider glog.LoggerProvider, base glog.Logger, component string) glog.Logger {
	if provider != nil && component != "" {
		if named := provider.GetLogger(DefaultName + "." + component); named != nil {
			return glog.Ensure(named)
		}
	}
	return glog.Ensure(base)
}
