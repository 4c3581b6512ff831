package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StoredClientCredentials is the persisted shape of a client credentials pair.
type StoredClientCredentials struct {
	AppKey    string `json:"appKey"`
	AppSecret string `json:"appSecret"`
	Scope     string `json:"scope,omitempty"`
}

func (s StoredClientCredentials) ToCredential() ClientCredentials {
	return ClientCredentials{
		AppKey:    s.AppKey,
		AppSecret: s.AppSecret,
		Scope:     s.Scope,
	}.Normalize()
}

func NewStoredClientCredentials(cred ClientCredentials) StoredClientCredentials {
	cred = cred.Normalize()
	return StoredClientCredentials{
		AppKey:    cred.AppKey,
		AppSecret: cred.AppSecret,
		Scope:     cred.Scope,
	}
}

func EncodeStoredClientCredentials(cred ClientCredentials) ([]byte, error) {
	encoded, err := json.Marshal(NewStoredClientCredentials(cred))
	if err != nil {
		return nil, fmt.Errorf("core: encode stored credentials: %w", err)
	}
	return encoded, nil
}

func DecodeStoredClientCredentials(payload []byte) (ClientCredentials, error) {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return ClientCredentials{}, fmt.Errorf("core: stored credentials payload is empty")
	}
	decoded := StoredClientCredentials{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return ClientCredentials{}, fmt.Errorf("core: decode stored credentials: %w", err)
	}
	cred := decoded.ToCredential()
	if !cred.Complete() {
		return ClientCredentials{}, fmt.Errorf("core: stored credentials require appKey and appSecret")
	}
	return cred, nil
}
