// internal/model/account.go
package model

import "time"

// Account connection statuses.
const (
	AccountConnected = "connected"
	AccountExpired   = "expired"
	AccountRevoked   = "revoked"
)

// Account is the sending identity a campaign delivers through. Auth and
// token refresh live in the accounts subsystem; the engine only checks that
// the account is usable before a run.
type Account struct {
	ID               int       `db:"id" json:"id"`
	Username         string    `db:"username" json:"username"`
	DisplayName      string    `db:"display_name" json:"display_name,omitempty"`
	ConnectionStatus string    `db:"connection_status" json:"connection_status"`
	AuthToken        string    `db:"auth_token" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Sendable reports whether the account can be used for a delivery run.
func (a *Account) Sendable() bool {
	return a != nil && a.ConnectionStatus == AccountConnected && a.AuthToken != ""
}
