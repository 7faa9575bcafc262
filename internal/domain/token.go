package domain

import "time"

// Purpose tags for ephemeral access tokens. A user owns at most one live
// token per purpose; the slot is replaced, never appended to.
const (
	PurposeEmailConfirm  = "email_confirm"
	PurposePasswordReset = "password_reset"
	PurposeEmailUpdate   = "email_update"
	PurposeAccountDelete = "account_delete"
)

// EmailUpdateSeparator joins the random token string with the pending new
// email address inside an email_update token value.
const EmailUpdateSeparator = "~"

// AccessToken is a single-purpose, single-use server-stored token.
// PK: user_id, SK: purpose. The token string itself is resolvable through
// the token-index GSI. There is no stored expiry: staleness is computed
// lazily from CreatedAt against the purpose's window.
type AccessToken struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Purpose   string    `json:"purpose" dynamodbav:"purpose"`
	Token     string    `json:"token" dynamodbav:"token"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}
