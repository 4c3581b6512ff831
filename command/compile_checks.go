package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vault/records"
)

var (
	_ gocmd.Commander[PutRecordMessage]    = (*PutRecordCommand)(nil)
	_ gocmd.Commander[DeleteRecordMessage] = (*DeleteRecordCommand)(nil)

	_ RecordWriter = (*records.Service)(nil)
)
