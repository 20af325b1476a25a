package core

import (
	"time"
)

// AccountType represents the type of account.
type AccountType string

const (
	AccountTypeMSA     AccountType = "msa"
	AccountTypeOffline AccountType = "offline"
)

// Account represents a Minecraft account, keyed by the profile UUID.
type Account struct {
	ID   string      `json:"id"`   // Minecraft profile UUID
	Name string      `json:"name"` // Username
	Type AccountType `json:"type"` // msa or offline

	// Microsoft account fields; empty for offline accounts.
	MSAAccessToken  string    `json:"msaAccessToken,omitempty"`
	MSARefreshToken string    `json:"msaRefreshToken,omitempty"`
	MCAccessToken   string    `json:"mcAccessToken,omitempty"`
	MCTokenExpiry   time.Time `json:"mcTokenExpiry,omitempty"`
}

// IsExpired checks whether the Minecraft access token is expired, with a
// 5-minute buffer so a launch doesn't race a token that dies mid-flight.
func (a *Account) IsExpired() bool {
	if a.Type == AccountTypeOffline {
		return false
	}
	return time.Now().Add(5 * time.Minute).After(a.MCTokenExpiry)
}
