package vault

import (
	"github.com/goliatone/go-vault/core"
	"github.com/goliatone/go-vault/security"
)

type Option func(*builder)

type builder struct {
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
	store           core.CredentialStore
	adapter         core.NetworkAdapter
	verifier        core.TokenVerifier
	credential      core.Credential
	cipher          *security.CipherObject
}

func WithLogger(logger core.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *builder) {
		b.loggerProvider = provider
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *builder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *builder) {
		b.optionsResolver = resolver
	}
}

// WithCredentialStore replaces the store selected by store.driver.
func WithCredentialStore(store core.CredentialStore) Option {
	return func(b *builder) {
		b.store = store
	}
}

func WithNetworkAdapter(adapter core.NetworkAdapter) Option {
	return func(b *builder) {
		b.adapter = adapter
	}
}

// WithTokenVerifier replaces the support probe built from auth.support_url.
func WithTokenVerifier(verifier core.TokenVerifier) Option {
	return func(b *builder) {
		b.verifier = verifier
	}
}

// WithCredential sets the credential the token callback negotiates with.
// Without one the negotiator falls back to stored client credentials.
func WithCredential(cred core.Credential) Option {
	return func(b *builder) {
		b.credential = cred
	}
}

// WithCipher lets record reads open sealed values.
func WithCipher(cipher security.CipherObject) Option {
	return func(b *builder) {
		copied := cipher
		b.cipher = &copied
	}
}
