package core

import "strings"

const (
	CredentialKindClientCredentials = "client_credentials"
	CredentialKindAuthorizationCode = "authorization_code"
)

// Credential is the sealed set of credential shapes the negotiator accepts.
// A nil Credential means nothing was supplied and the stored client
// credentials, if any, are used instead.
type Credential interface {
	Kind() string
	credential()
}

type ClientCredentials struct {
	AppKey    string
	AppSecret string
	Scope     string
}

func (ClientCredentials) Kind() string { return CredentialKindClientCredentials }

func (ClientCredentials) credential() {}

// Complete reports whether both the application key and secret are set.
func (c ClientCredentials) Complete() bool {
	return strings.TrimSpace(c.AppKey) != "" && strings.TrimSpace(c.AppSecret) != ""
}

func (c ClientCredentials) Normalize() ClientCredentials {
	return ClientCredentials{
		AppKey:    strings.TrimSpace(c.AppKey),
		AppSecret: strings.TrimSpace(c.AppSecret),
		Scope:     strings.TrimSpace(c.Scope),
	}
}

// AuthorizationCodeCredentials are single use and are never persisted.
type AuthorizationCodeCredentials struct {
	ClientID          string
	AuthorizationCode string
	State             string
}

func (AuthorizationCodeCredentials) Kind() string { return CredentialKindAuthorizationCode }

func (AuthorizationCodeCredentials) credential() {}

func (c AuthorizationCodeCredentials) Normalize() AuthorizationCodeCredentials {
	return AuthorizationCodeCredentials{
		ClientID:          strings.TrimSpace(c.ClientID),
		AuthorizationCode: strings.TrimSpace(c.AuthorizationCode),
		State:             strings.TrimSpace(c.State),
	}
}

var (
	_ Credential = ClientCredentials{}
	_ Credential = AuthorizationCodeCredentials{}
)
