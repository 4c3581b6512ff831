package query

import (
	"context"

	"github.com/goliatone/go-vault/records"
)

type RecordReader interface {
	Get(ctx context.Context, id string) (records.Record, error)
	List(ctx context.Context, filter records.ListFilter) ([]records.Record, error)
}

type GetRecordQuery struct {
	reader RecordReader
}

func NewGetRecordQuery(reader RecordReader) *GetRecordQuery {
	return &GetRecordQuery{reader: reader}
}

func (q *GetRecordQuery) Query(ctx context.Context, msg GetRecordMessage) (records.Record, error) {
	if q == nil || q.reader == nil {
		return records.Record{}, queryDependencyError("query: record reader is required")
	}
	if err := msg.Validate(); err != nil {
		return records.Record{}, err
	}
	return q.reader.Get(ctx, msg.ID)
}

type ListRecordsQuery struct {
	reader RecordReader
}

func NewListRecordsQuery(reader RecordReader) *ListRecordsQuery {
	return &ListRecordsQuery{reader: reader}
}

func (q *ListRecordsQuery) Query(ctx context.Context, msg ListRecordsMessage) ([]records.Record, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: record reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.List(ctx, msg.Filter)
}
