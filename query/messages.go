package query

import (
	"strings"

	"github.com/goliatone/go-vault/records"
)

const (
	TypeGetRecord   = "vault.query.record.get"
	TypeListRecords = "vault.query.record.list"
)

type GetRecordMessage struct {
	ID string
}

func (GetRecordMessage) Type() string { return TypeGetRecord }

func (m GetRecordMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return queryValidationError("id", "id is required")
	}
	return nil
}

type ListRecordsMessage struct {
	Filter records.ListFilter
}

func (ListRecordsMessage) Type() string { return TypeListRecords }

func (m ListRecordsMessage) Validate() error {
	if m.Filter.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}
