// Package model defines the data structures used throughout the application.
package model

import "time"

// Role names a user's authorization level. There are exactly two levels;
// anything else in a token or a request body is rejected.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether r is one of the known role names.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered account.
//
// The document is keyed by our own xid string stored as Mongo's _id, so the
// primary key is stable and sortable regardless of the storage backend.
// Email carries the unique index — two accounts can never share an address.
//
// WHY *string / *time.Time FOR THE RESET FIELDS?
// ResetToken and ResetTokenExpiration are either both set (a reset is
// pending) or both nil (no reset in flight). Pointers make the "absent"
// state explicit in Go and map to missing fields in BSON via omitempty,
// which keeps the stored documents clean.
//
// PasswordHash is excluded from JSON (`json:"-"`) so a User can be returned
// from /me or the admin listing without ever leaking credential material.
type User struct {
	ID                   string     `json:"id"        bson:"_id"`
	Email                string     `json:"email"     bson:"email"`
	PasswordHash         string     `json:"-"         bson:"password_hash"`
	Role                 string     `json:"role"      bson:"role"`
	ResetToken           *string    `json:"-"         bson:"reset_token,omitempty"`
	ResetTokenExpiration *time.Time `json:"-"         bson:"reset_token_expiration,omitempty"`
	CreatedAt            time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt            time.Time  `json:"updatedAt" bson:"updated_at"`
}
