package models

import "time"

// Message is a stored ciphertext addressed to one recipient.
//
// SenderName is filled by reads that join the sender's account; it is not
// persisted. Delivered flips to true exactly once, when a GET hands the
// message to its recipient.
type Message struct {
	ID          string
	SenderID    string
	SenderName  string
	RecipientID string
	Ciphertext  []byte
	SentAt      time.Time
	Delivered   bool
	DeliveredAt *time.Time
}
