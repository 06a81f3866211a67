package models

import (
	"time"
)

// Account is a row in the credential store. PasswordHash is a bcrypt hash;
// the plaintext secret is never stored or logged.
type Account struct {
	ID                string
	Username          string
	PasswordHash      string
	DisplayName       string
	Role              Role
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
