package models

import "time"

// ContactMessage is a message submitted through the contact form by an
// authenticated account.
type ContactMessage struct {
	ID        string    `db:"id"`
	AccountID string    `db:"account_id"`
	Username  string    `db:"username"`
	Subject   string    `db:"subject"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}
