package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vault/records"
)

var (
	_ gocmd.Querier[GetRecordMessage, records.Record]     = (*GetRecordQuery)(nil)
	_ gocmd.Querier[ListRecordsMessage, []records.Record] = (*ListRecordsQuery)(nil)

	_ RecordReader = (*records.Service)(nil)
)
