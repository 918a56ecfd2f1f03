package model

import "time"

// Role names stored in users.role.  The booking engine only ever
// distinguishes admins from everyone else.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a row in the `users` table.  The password hash never
// leaves the repository/handler boundary; response types project the
// fields they need.
//
// Fields:
//  ID             - primary key identifier of the user.
//  Name           - display name.
//  Email          - unique email address (stored lower-cased).
//  PasswordHash   - bcrypt hashed password.
//  Role           - role name ("user" or "admin").
//  ProfilePicture - blob-store URL of the avatar (nullable).
//  IsActive       - whether the account may authenticate.
//  CreatedAt      - timestamp of creation.
//  UpdatedAt      - timestamp of last update.
type User struct {
	ID             uint64
	Name           string
	Email          string
	PasswordHash   string
	Role           string
	ProfilePicture *string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
