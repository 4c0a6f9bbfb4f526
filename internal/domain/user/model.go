package user

import "time"

// User represents a registered borrower.
type User struct {
	ID               int64     `json:"id" db:"id"`
	Login            string    `json:"login" db:"login"`
	PasswordHash     string    `json:"-" db:"password"`
	RegistrationDate time.Time `json:"registration_date" db:"registration_date"`
}

// Filter narrows user listings.
type Filter struct {
	Skip           int
	Limit          int
	RegisteredFrom time.Time
	RegisteredTo   time.Time
}
