package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the canonical account record. Every store adapter must return
// users in this shape; identifier fallbacks across legacy schemas are
// resolved at the adapter boundary, never here.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email_address,unique" json:"email_address,omitempty"`
	DisplayName   string     `bun:"display_name" json:"display_name,omitempty"`
	PasswordHash  string     `bun:"password_hashed" json:"password_hashed,omitempty"`
	IsAdmin       bool       `bun:"is_admin" json:"is_admin"`
	Locked        bool       `bun:"locked" json:"locked"`
	Activated     bool       `bun:"activated" json:"activated"`
	TokenID       string     `bun:"token_id,notnull" json:"token_id,omitempty"`
	LastLoginAt   *time.Time `bun:"last_login,nullzero" json:"last_login,omitempty"`
	CreatedAt     *time.Time `bun:"creation_date,nullzero,default:current_timestamp" json:"creation_date,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`

	// FromCache marks a record served from the session cache rather than
	// read fresh from the store. Callers use it to reason about staleness.
	FromCache bool `bun:"-" json:"cached"`
}

// GetID returns the user's ID as a string.
func (u *User) GetID() string {
	if u == nil {
		return ""
	}
	return u.ID.String()
}

// GetTokenID returns the revocation marker currently stored on the user.
func (u *User) GetTokenID() string {
	if u == nil {
		return ""
	}
	return u.TokenID
}

// CanManage reports whether the user may modify the account identified by
// id. Users manage themselves; admins manage everyone.
func (u *User) CanManage(id string) bool {
	if u == nil {
		return false
	}
	if u.IsAdmin {
		return true
	}
	target, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return u.ID == target
}

// Sanitized returns a copy safe for API responses, with the password hash
// stripped.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// Clone returns a deep-enough copy for cache storage; timestamps are
// value-copied so cache mutations never leak into live records.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		clone.LastLoginAt = &t
	}
	if u.CreatedAt != nil {
		t := *u.CreatedAt
		clone.CreatedAt = &t
	}
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		clone.UpdatedAt = &t
	}
	return &clone
}

// UserPatch lists the mutable account properties. Nil fields are left
// untouched by UserStore.Update.
type UserPatch struct {
	Username    *string `json:"username,omitempty"`
	Email       *string `json:"email_address,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	IsAdmin     *bool   `json:"is_admin,omitempty"`
	Locked      *bool   `json:"locked,omitempty"`
	Activated   *bool   `json:"activated,omitempty"`
}

// IsZero reports whether the patch carries no changes.
func (p UserPatch) IsZero() bool {
	return p.Username == nil &&
		p.Email == nil &&
		p.DisplayName == nil &&
		p.IsAdmin == nil &&
		p.Locked == nil &&
		p.Activated == nil
}

// ListQuery selects and batches users for UserStore.List.
type ListQuery struct {
	Search string
	IDs    []string
	Skip   int
	Limit  int
}

// UserPage is one batch of a user listing.
type UserPage struct {
	Count int     `json:"count"`
	Skip  int     `json:"skip"`
	Limit int     `json:"limit"`
	Users []*User `json:"users"`
}
