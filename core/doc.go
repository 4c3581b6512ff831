// Package core contains the canonical vault client contracts: credential
// shapes, network responses, the capability interfaces implemented by
// transports and credential stores, typed error kinds and configuration.
// Lower-level adapters depend on this package; core must not depend on any
// concrete transport, store or negotiator.
package core
