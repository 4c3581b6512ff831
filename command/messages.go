package command

import (
	"strings"

	"github.com/goliatone/go-vault/records"
)

const (
	TypePutRecord    = "vault.command.record.put"
	TypeDeleteRecord = "vault.command.record.delete"
)

type PutRecordMessage struct {
	Record records.Record
}

func (PutRecordMessage) Type() string { return TypePutRecord }

func (m PutRecordMessage) Validate() error {
	if m.Record.Value == nil {
		return commandValidationError("value", "value is required")
	}
	if m.Record.ID != "" && strings.TrimSpace(m.Record.ID) == "" {
		return commandValidationError("id", "id must not be blank")
	}
	return nil
}

type DeleteRecordMessage struct {
	ID string
}

func (DeleteRecordMessage) Type() string { return TypeDeleteRecord }

func (m DeleteRecordMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return commandValidationError("id", "id is required")
	}
	return nil
}
