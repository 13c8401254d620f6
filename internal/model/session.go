package model

import "time"

// Session is one live client connection. Whether it holds a bound
// credential is tracked by the session binder, not here.
type Session struct {
	ID            string    `json:"id"`
	IP            string    `json:"ip"`
	Client        string    `json:"client"`
	UserAgent     string    `json:"-"`
	IsAdmin       bool      `json:"isAdmin"`
	AdminFailures int       `json:"-"`
	ConnectedAt   time.Time `json:"connectedAt"`
	LastSeenAt    time.Time `json:"lastSeenAt"`
}

// SessionInfo is a read-only view of a session for status reporting.
type SessionInfo struct {
	Session
	Bound bool     `json:"bound"`
	Live  bool     `json:"live"`
	Rooms []string `json:"rooms"`
}
