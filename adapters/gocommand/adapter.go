// Package gocommand registers the vault record handlers with go-command and
// dispatches record messages through its global dispatcher.
package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	vaultcommand "github.com/goliatone/go-vault/command"
	vaultquery "github.com/goliatone/go-vault/query"
	"github.com/goliatone/go-vault/records"
)

// ValidateMessageContract requires a non-empty Type() and runs Validate()
// when the message has one.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	typed, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(typed.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) register(handler any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(handler)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

// RecordHandlers are the record commands and queries a vault client builds.
type RecordHandlers struct {
	PutRecord    command.Commander[vaultcommand.PutRecordMessage]
	DeleteRecord command.Commander[vaultcommand.DeleteRecordMessage]
	GetRecord    command.Querier[vaultquery.GetRecordMessage, records.Record]
	ListRecords  command.Querier[vaultquery.ListRecordsMessage, []records.Record]
}

// Registration holds the dispatcher subscriptions made by Register.
type Registration struct {
	subscriptions []commanddispatcher.Subscription
}

func (r *Registration) Len() int {
	if r == nil {
		return 0
	}
	return len(r.subscriptions)
}

func (r *Registration) Unsubscribe() {
	if r == nil {
		return
	}
	for _, subscription := range r.subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	r.subscriptions = nil
}

// Register subscribes every non-nil handler with the dispatcher and records
// it in the registry. On failure all subscriptions made so far are undone.
func Register(adapter *RegistryAdapter, handlers RecordHandlers, runnerOpts ...runner.Option) (*Registration, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	reg := &Registration{}
	track := func(subscription commanddispatcher.Subscription, handler any) error {
		reg.subscriptions = append(reg.subscriptions, subscription)
		return adapter.register(handler)
	}

	var err error
	if handlers.PutRecord != nil && err == nil {
		err = track(commanddispatcher.SubscribeCommand(handlers.PutRecord, runnerOpts...), handlers.PutRecord)
	}
	if handlers.DeleteRecord != nil && err == nil {
		err = track(commanddispatcher.SubscribeCommand(handlers.DeleteRecord, runnerOpts...), handlers.DeleteRecord)
	}
	if handlers.GetRecord != nil && err == nil {
		err = track(commanddispatcher.SubscribeQuery(handlers.GetRecord, runnerOpts...), handlers.GetRecord)
	}
	if handlers.ListRecords != nil && err == nil {
		err = track(commanddispatcher.SubscribeQuery(handlers.ListRecords, runnerOpts...), handlers.ListRecords)
	}
	if err != nil {
		reg.Unsubscribe()
		return nil, err
	}
	return reg, nil
}

func Dispatch[T any](ctx context.Context, msg T) error {
	if err := ValidateMessageContract(msg); err != nil {
		return err
	}
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	if err := ValidateMessageContract(msg); err != nil {
		var zero R
		return zero, err
	}
	return commanddispatcher.Query[T, R](ctx, msg)
}

// PutRecord dispatches a put and returns the written record collected from
// the command result.
func PutRecord(ctx context.Context, record records.Record) (records.Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	collector := command.NewResult[records.Record]()
	ctx = command.ContextWithResult(ctx, collector)
	if err := Dispatch(ctx, vaultcommand.PutRecordMessage{Record: record}); err != nil {
		return records.Record{}, err
	}
	written, ok := collector.Load()
	if !ok {
		return record, nil
	}
	return written, nil
}
