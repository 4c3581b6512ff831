package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func credentialEntryHandlers() repository.ModelHandlers[*credentialEntryRecord] {
	return repository.ModelHandlers[*credentialEntryRecord]{
		NewRecord: func() *credentialEntryRecord {
			return &credentialEntryRecord{}
		},
		GetID: func(record *credentialEntryRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *credentialEntryRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "store_key"
		},
		GetIdentifierValue: func(record *credentialEntryRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.StoreKey)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
