package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vault/records"
)

type RecordWriter interface {
	Put(ctx context.Context, record records.Record) (records.Record, error)
	Delete(ctx context.Context, id string) error
}

type PutRecordCommand struct {
	writer RecordWriter
}

func NewPutRecordCommand(writer RecordWriter) *PutRecordCommand {
	return &PutRecordCommand{writer: writer}
}

// Execute stores the written record in the context result collector when
// one is attached.
func (c *PutRecordCommand) Execute(ctx context.Context, msg PutRecordMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: record writer is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.writer.Put(ctx, msg.Record)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteRecordCommand struct {
	writer RecordWriter
}

func NewDeleteRecordCommand(writer RecordWriter) *DeleteRecordCommand {
	return &DeleteRecordCommand{writer: writer}
}

func (c *DeleteRecordCommand) Execute(ctx context.Context, msg DeleteRecordMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: record writer is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.writer.Delete(ctx, msg.ID)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
