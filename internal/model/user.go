package model

import "time"

// Roles stored in users.role.  ADMIN can only be granted out of band.
const (
	RoleAttendee   = "ATTENDEE"
	RolePlanner    = "PLANNER"
	RoleSupplier   = "SUPPLIER"
	RoleVenueOwner = "VENUE_OWNER"
	RoleAdmin      = "ADMIN"
)

// SelfAssignableRole reports whether a user may pick role at registration.
func SelfAssignableRole(role string) bool {
	switch role {
	case RoleAttendee, RolePlanner, RoleSupplier, RoleVenueOwner:
		return true
	}
	return false
}

// User represents a row of the `users` table.  PasswordHash never leaves
// the server.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the public face of a user (`profiles` table).  AvatarPath is
// the object path inside the avatars bucket and is kept so the previous
// avatar can be removed on replacement.
type Profile struct {
	UserID      uint64    `json:"user_id"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
	CompanyName string    `json:"company_name"`
	Bio         string    `json:"bio"`
	Website     string    `json:"website"`
	AvatarURL   string    `json:"avatar_url"`
	AvatarPath  string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Planner is a directory entry for users with the PLANNER role.
type Planner struct {
	UserID      uint64 `json:"user_id"`
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name"`
	Bio         string `json:"bio"`
	Website     string `json:"website"`
	AvatarURL   string `json:"avatar_url"`
}
