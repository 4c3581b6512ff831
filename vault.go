// Package vault wires configuration, credential storage, transport, the
// authorization negotiator and the communicator into a single Client for
// working with vault records.
package vault

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-vault/adapters/gocommand"
	"github.com/goliatone/go-vault/adapters/gologger"
	"github.com/goliatone/go-vault/auth"
	vaultcommand "github.com/goliatone/go-vault/command"
	"github.com/goliatone/go-vault/communicator"
	"github.com/goliatone/go-vault/core"
	vaultquery "github.com/goliatone/go-vault/query"
	"github.com/goliatone/go-vault/records"
	"github.com/goliatone/go-vault/security"
	memorystore "github.com/goliatone/go-vault/store/memory"
	sqlstore "github.com/goliatone/go-vault/store/sql"
	"github.com/goliatone/go-vault/transport"
)

type Config = core.Config

func DefaultConfig() Config {
	return core.DefaultConfig()
}

type Commands struct {
	PutRecord    *vaultcommand.PutRecordCommand
	DeleteRecord *vaultcommand.DeleteRecordCommand
}

type Queries struct {
	GetRecord   *vaultquery.GetRecordQuery
	ListRecords *vaultquery.ListRecordsQuery
}

type Client struct {
	config         Config
	logger         core.Logger
	loggerProvider core.LoggerProvider

	mu         sync.Mutex
	credential core.Credential

	store        core.CredentialStore
	persistence  *persistence.Client
	communicator *communicator.Communicator
	negotiator   *auth.Negotiator
	probe        *auth.SupportProbe
	records      *records.Service
	commands     Commands
	queries      Queries
}

// New resolves configuration as defaults < loaded < runtime and builds the
// client. A SQL-backed store is opened and migrated here; Close releases it.
func New(runtime Config, opts ...Option) (*Client, error) {
	b := builder{}
	for _, opt := range opts {
		if opt != nil {
			opt(&b)
		}
	}

	provider, logger := gologger.Resolve(gologger.DefaultName, b.loggerProvider, b.logger)
	if b.configProvider == nil {
		b.configProvider = core.NewCfgxConfigProvider(nil)
	}
	if b.optionsResolver == nil {
		b.optionsResolver = core.GoOptionsResolver{}
	}

	ctx := context.Background()
	defaults := DefaultConfig()
	loaded, err := b.configProvider.Load(ctx, defaults)
	if err != nil {
		return nil, configError(err)
	}
	cfg, err := b.optionsResolver.Resolve(defaults, loaded, runtime)
	if err != nil {
		return nil, configError(err)
	}

	c := &Client{
		config:         cfg,
		logger:         logger,
		loggerProvider: provider,
		credential:     b.credential,
		store:          b.store,
	}
	if c.store == nil {
		if err := c.openStore(ctx); err != nil {
			return nil, err
		}
	}

	adapter := b.adapter
	if adapter == nil {
		adapter = transport.NewDefaultAdapter(cfg.Transport)
	}
	c.communicator = communicator.New(
		communicator.WithLogger(gologger.Component(provider, logger, "communicator")),
		communicator.WithNetworkAdapter(adapter),
		communicator.WithDefaultAdapter(func() core.NetworkAdapter {
			return transport.NewDefaultAdapter(cfg.Transport)
		}),
	)

	verifier := b.verifier
	if verifier == nil && strings.TrimSpace(cfg.Auth.SupportURL) != "" {
		c.probe = auth.NewSupportProbe(cfg.Auth.SupportURL, adapter)
		verifier = c.probe
	}
	c.negotiator = auth.NewNegotiator(auth.NegotiatorConfigFromConfig(cfg),
		auth.WithNetworkAdapter(adapter),
		auth.WithCredentialStore(c.store),
		auth.WithTokenHolder(c.communicator),
		auth.WithTokenVerifier(verifier),
		auth.WithLogger(gologger.Component(provider, logger, "auth")),
	)
	c.communicator.SetTokenCallback(c.negotiator.TokenProvider(c.credential))

	if strings.TrimSpace(cfg.BaseURL) != "" {
		recordOpts := []records.Option{
			records.WithEnvelope(security.NewEnvelope(cfg.Crypto.SharedSecret)),
			records.WithRecipientPublicKey(cfg.Crypto.RecipientPublicKey),
			records.WithLogger(gologger.Component(provider, logger, "records")),
		}
		if b.cipher != nil {
			recordOpts = append(recordOpts, records.WithCipher(*b.cipher))
		}
		c.records, err = records.New(c.communicator, cfg.BaseURL, recordOpts...)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
	}

	var writer vaultcommand.RecordWriter
	var reader vaultquery.RecordReader
	if c.records != nil {
		writer, reader = c.records, c.records
	}
	c.commands = Commands{
		PutRecord:    vaultcommand.NewPutRecordCommand(writer),
		DeleteRecord: vaultcommand.NewDeleteRecordCommand(writer),
	}
	c.queries = Queries{
		GetRecord:   vaultquery.NewGetRecordQuery(reader),
		ListRecords: vaultquery.NewListRecordsQuery(reader),
	}

	core.LogEvent(ctx, c.logger, core.LogLevelInfo, "vault client ready", map[string]any{
		"service_name": cfg.ServiceName,
		"store_driver": cfg.Store.Driver,
		"records":      c.records != nil,
		"support":      c.probe != nil,
	})
	return c, nil
}

func (c *Client) openStore(ctx context.Context) error {
	switch strings.ToLower(strings.TrimSpace(c.config.Store.Driver)) {
	case "", core.StoreDriverMemory:
		c.store = memorystore.New(memorystore.WithKeyPrefix(c.config.Store.KeyPrefix))
		return nil
	default:
		store, client, err := sqlstore.OpenCredentialStore(ctx, c.config.Store)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "vault: open credential store").
				WithCode(http.StatusInternalServerError).
				WithTextCode(core.ServiceErrorInternal)
		}
		c.store, c.persistence = store, client
		return nil
	}
}

// Authorize negotiates a fresh token for the current credential and installs
// it on the communicator.
func (c *Client) Authorize(ctx context.Context) (string, error) {
	token, ok, err := c.communicator.RefreshToken(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &core.UnauthorizedError{Message: "no token provider registered"}
	}
	return token, nil
}

// SetCredential swaps the negotiated credential and drops the held token so
// the next authenticated call negotiates again.
func (c *Client) SetCredential(cred core.Credential) {
	c.mu.Lock()
	c.credential = cred
	c.mu.Unlock()
	c.communicator.SetTokenCallback(c.negotiator.TokenProvider(cred))
	c.communicator.ClearToken()
}

func (c *Client) Credential() core.Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential
}

// SetNetworkAdapter installs adapter on every component that talks to the
// network. nil restores the default REST adapter.
func (c *Client) SetNetworkAdapter(adapter core.NetworkAdapter) core.NetworkAdapter {
	installed := c.communicator.SetNetworkAdapter(adapter)
	c.negotiator.SetNetworkAdapter(installed)
	if c.probe != nil {
		c.probe.SetNetworkAdapter(installed)
	}
	return installed
}

func (c *Client) BeginAuthorization(ctx context.Context, req auth.AuthorizationRequest) (auth.AuthorizationStart, error) {
	return c.negotiator.BeginAuthorization(ctx, req)
}

// Register subscribes the record commands and queries with go-command.
func (c *Client) Register(adapter *gocommand.RegistryAdapter) (*gocommand.Registration, error) {
	if c.records == nil {
		return nil, fmt.Errorf("vault: records require base_url")
	}
	return gocommand.Register(adapter, gocommand.RecordHandlers{
		PutRecord:    c.commands.PutRecord,
		DeleteRecord: c.commands.DeleteRecord,
		GetRecord:    c.queries.GetRecord,
		ListRecords:  c.queries.ListRecords,
	})
}

func (c *Client) Config() Config {
	return c.config
}

func (c *Client) Logger() core.Logger {
	return c.logger
}

func (c *Client) Store() core.CredentialStore {
	return c.store
}

func (c *Client) Communicator() *communicator.Communicator {
	return c.communicator
}

func (c *Client) Negotiator() *auth.Negotiator {
	return c.negotiator
}

func (c *Client) Records() *records.Service {
	return c.records
}

func (c *Client) Commands() Commands {
	return c.commands
}

func (c *Client) Queries() Queries {
	return c.queries
}

// Close releases the SQL persistence client when the client opened one.
func (c *Client) Close() error {
	if c == nil || c.persistence == nil {
		return nil
	}
	err := c.persistence.Close()
	c.persistence = nil
	return err
}

func configError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "vault: configuration resolution failed").
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ServiceErrorBadInput)
}
