package command

import (
	"context"
	"errors"
	"net/http"
	"testing"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-vault/core"
	"github.com/goliatone/go-vault/records"
)

type stubRecordWriter struct {
	putFn    func(context.Context, records.Record) (records.Record, error)
	deleteFn func(context.Context, string) error
}

func (s stubRecordWriter) Put(ctx context.Context, record records.Record) (records.Record, error) {
	if s.putFn == nil {
		return record, nil
	}
	return s.putFn(ctx, record)
}

func (s stubRecordWriter) Delete(ctx context.Context, id string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}

func TestPutRecordCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	called := false
	writer := stubRecordWriter{
		putFn: func(_ context.Context, record records.Record) (records.Record, error) {
			called = true
			if record.Key != "db" {
				t.Fatalf("expected key db, got %q", record.Key)
			}
			record.ID = "rec_1"
			return record, nil
		},
	}

	collector := gocmd.NewResult[records.Record]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err := NewPutRecordCommand(writer).Execute(ctx, PutRecordMessage{Record: records.Record{Key: "db", Value: "secret"}})
	if err != nil {
		t.Fatalf("execute put: %v", err)
	}
	if !called {
		t.Fatalf("expected writer invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.ID != "rec_1" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestPutRecordCommand_PropagatesWriterError(t *testing.T) {
	writer := stubRecordWriter{
		putFn: func(context.Context, records.Record) (records.Record, error) {
			return records.Record{}, &core.UnauthorizedError{StatusCode: http.StatusUnauthorized}
		},
	}
	err := NewPutRecordCommand(writer).Execute(context.Background(), PutRecordMessage{Record: records.Record{Value: 1}})
	if !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestDeleteRecordCommand_ExecuteDelegates(t *testing.T) {
	var deleted string
	writer := stubRecordWriter{
		deleteFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	if err := NewDeleteRecordCommand(writer).Execute(context.Background(), DeleteRecordMessage{ID: "rec_2"}); err != nil {
		t.Fatalf("execute delete: %v", err)
	}
	if deleted != "rec_2" {
		t.Fatalf("expected rec_2 deleted, got %q", deleted)
	}
}

func TestMessages_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		field   string
		wantErr bool
	}{
		{name: "put ok", msg: PutRecordMessage{Record: records.Record{Value: "v"}}},
		{name: "put missing value", msg: PutRecordMessage{}, field: "value", wantErr: true},
		{name: "put blank id", msg: PutRecordMessage{Record: records.Record{ID: "  ", Value: "v"}}, field: "id", wantErr: true},
		{name: "delete ok", msg: DeleteRecordMessage{ID: "rec"}},
		{name: "delete missing id", msg: DeleteRecordMessage{}, field: "id", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var rich *goerrors.Error
			if !goerrors.As(err, &rich) {
				t.Fatalf("expected go-errors envelope, got %T", err)
			}
			if rich.Category != goerrors.CategoryValidation || rich.TextCode != core.ServiceErrorBadInput {
				t.Fatalf("unexpected envelope %q/%q", rich.Category, rich.TextCode)
			}
			if fields := rich.AllValidationErrors(); len(fields) == 0 || fields[0].Field != tt.field {
				t.Fatalf("expected validation field %q, got %#v", tt.field, fields)
			}
		})
	}
}

func TestCommands_InvalidMessageSkipsWriter(t *testing.T) {
	writer := stubRecordWriter{
		deleteFn: func(context.Context, string) error {
			t.Fatalf("writer must not be called for invalid input")
			return nil
		},
	}
	if err := NewDeleteRecordCommand(writer).Execute(context.Background(), DeleteRecordMessage{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestCommands_NilWriterReturnsRichError(t *testing.T) {
	var cmd *PutRecordCommand
	err := cmd.Execute(context.Background(), PutRecordMessage{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
