// Package models defines client-side data models used by the GophMail CLI.
package models

import "time"

// Message is a received message as kept in the local inbox. Ciphertext is
// still sealed with the shared key; it is opened only for display.
type Message struct {
	// ID is the server-assigned message id; saving it twice is a no-op.
	ID string

	// Owner is the local user the message was delivered to.
	Owner string

	Sender     string
	SentAt     time.Time
	ReceivedAt time.Time
	Ciphertext []byte
}
