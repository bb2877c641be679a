package models

import (
	"time"
)

// User is the demo session record created on login. There is no account behind it:
// any syntactically valid email produces one.
type User struct {
	Token       string    `json:"token"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`        // local part of the email
	DisplayName string    `json:"displayName"` // title-cased Name
	Points      int       `json:"points"`
	LoginTime   time.Time `json:"loginTime"`

	// Scope namespaces the user's badge record and feed.
	Scope string `json:"scope"`
}
