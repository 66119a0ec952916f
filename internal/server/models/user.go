package models

import "time"

// User is a registered account. Only Active ever changes after creation.
type User struct {
	ID           string
	UserName     string
	PasswordSalt []byte
	PasswordHash []byte
	Active       bool
	CreatedAt    time.Time
}
