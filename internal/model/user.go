package model

import "time"

// Role is the closed set of authorization roles a user can hold.  The
// values are stored verbatim in the `users.role` column and embedded in
// token payloads, so they must never be renamed once issued.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleUser      Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// User represents an identity record as stored in the `users` table.
// Each field corresponds to a column in the database.  The json tags are
// omitted here because these structs are used internally by the
// repository and session layers; handlers define separate response types
// with appropriate JSON tags so that PasswordHash and RefreshTokenHash
// never leak into an outward representation.
//
// Fields:
//
//	ID               – UUIDv7 primary key; time-ordered so rows sort by creation.
//	Email            – unique email address, stored lower-cased and trimmed.
//	Name / LastName  – profile names; LastName may be empty.
//	AvatarURL        – optional profile picture, backfilled by external sign-in.
//	PasswordHash     – argon2id hash of the current password.
//	RefreshTokenHash – argon2id hash of the outstanding refresh token, or
//	                   empty when the user has no active session.
//	Role             – authorization role (ADMIN, MODERATOR or USER).
//	IsActive         – whether the account may authenticate.
//	LastLoginAt      – time of the most recent successful sign-in (nullable).
//	CreatedAt        – timestamp of creation.
//	UpdatedAt        – timestamp of last update.
type User struct {
	ID               string     // users.id
	Email            string     // users.email
	Name             string     // users.name
	LastName         string     // users.last_name
	AvatarURL        string     // users.avatar_url
	PasswordHash     string     // users.password_hash
	RefreshTokenHash string     // users.refresh_token_hash (empty = no session)
	Role             Role       // users.role
	IsActive         bool       // users.is_active
	LastLoginAt      *time.Time // users.last_login_at (nullable)
	CreatedAt        time.Time  // users.created_at
	UpdatedAt        time.Time  // users.updated_at
}
