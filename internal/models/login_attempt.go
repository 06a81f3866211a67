package models

import "time"

// LoginAttempt is an audit record of one guard decision. The records feed
// operational review only; lockout state lives in the browser session.
type LoginAttempt struct {
	ID          string     `db:"id"`
	Username    string     `db:"username"`
	IPAddress   string     `db:"ip_address"`
	UserAgent   string     `db:"user_agent"`
	AttemptTime time.Time  `db:"attempt_time"`
	Success     bool       `db:"success"`
	RejectKind  *string    `db:"reject_kind"`
	ExpiresAt   time.Time  `db:"expires_at"`
}
