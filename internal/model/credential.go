package model

import "time"

// CredentialVersion tags the on-disk record layout. Records with another
// version are discarded and replaced on startup.
const CredentialVersion = 1

// CredentialRecord is the durable part of a credential.
type CredentialRecord struct {
	Token     string    `db:"token" json:"token"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	Version   int       `db:"version" json:"version"`
}

// Credential is an active access token plus its in-memory binding state.
// BoundIP is set once on first successful association and never cleared
// while the credential stays active.
type Credential struct {
	Token            string
	CreatedAt        time.Time
	Version          int
	BoundIP          string
	LiveConnectionID string
	Client           string
	LastActivity     time.Time
}

func (c *Credential) Record() CredentialRecord {
	return CredentialRecord{
		Token:     c.Token,
		CreatedAt: c.CreatedAt,
		Version:   c.Version,
	}
}

func (c *Credential) InUse() bool {
	return c.LiveConnectionID != ""
}

// TokenStatus is what the admin room sees about the shared credential.
type TokenStatus struct {
	Token string          `json:"token"`
	InUse bool            `json:"inUse"`
	Info  TokenStatusInfo `json:"info"`
}

type TokenStatusInfo struct {
	BoundIP      string     `json:"boundIp,omitempty"`
	ConnectionID string     `json:"connectionId,omitempty"`
	Client       string     `json:"client,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
}
