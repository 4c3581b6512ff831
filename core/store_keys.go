package core

const (
	StoreKeyClientCredentials = "vault.client_credentials"
	StoreKeyPKCEVerifier      = "vault.pkce_code_verifier"
	StoreKeyRedirectURL       = "vault.oauth_redirect_url"
	StoreKeyApplicationID     = "vault.application_id"
	StoreKeyOAuthState        = "vault.oauth_state"
)
