// Package model defines the user records and the payloads used by the API.
// It keeps persistence and transport-level types in one place for reuse.
package model

import (
	"math"
	"time"
)

// Role is the access level assigned to a user.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
)

// User is a stored user row, including fields that must never leave the process.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Password     string     `json:"-"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLoginAt  *time.Time `json:"-"`
	RefreshToken *string    `json:"-"`
	TokenExpiry  *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// PublicUser is the sanitized view of a User returned to API clients.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public strips the password, refresh token, token expiry and last login.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// PublicUsers sanitizes a slice of users, preserving order.
func PublicUsers(in []User) []PublicUser {
	out := make([]PublicUser, 0, len(in))
	for _, u := range in {
		out = append(out, u.Public())
	}
	return out
}

// UserPatch holds the optional fields of an update. Nil means "leave unchanged".
type UserPatch struct {
	FirstName *string
	LastName  *string
	Role      *Role
	IsActive  *bool
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Role == nil && p.IsActive == nil
}

// Apply copies the set fields of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}

// SortOrder is the direction of a list query.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// UserFilter narrows a list query. Zero values mean "no filter".
type UserFilter struct {
	Search   string
	Role     *Role
	IsActive *bool
}

// Page selects a window of a sorted list.
type Page struct {
	Number    int
	Size      int
	SortBy    string
	SortOrder SortOrder
}

// Offset returns the number of rows to skip. It saturates at math.MaxInt
// instead of overflowing.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}
