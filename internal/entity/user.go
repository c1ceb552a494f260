package entity

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	GroupRegular = 1
	GroupAdmin   = 2
)

// User is a staff account. Salt keeps the bcrypt salt prefix of Password.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64     `bun:"id,pk,autoincrement"`
	Username string    `bun:"username" validate:"required,max=64"`
	Password string    `bun:"password"`
	Salt     string    `bun:"salt"`
	Name     string    `bun:"name" validate:"required,max=128"`
	Group    int       `bun:"group"`
	Joined   time.Time `bun:"joined"`
}

// IsAdmin reports whether the user belongs to the admin group.
func (u User) IsAdmin() bool {
	return u.Group == GroupAdmin
}

// UserSession stores the digest of a user's single live remember token.
type UserSession struct {
	bun.BaseModel `bun:"table:users_session,alias:us"`

	ID     int64  `bun:"id,pk,autoincrement"`
	UserID int64  `bun:"user_id"`
	Hash   string `bun:"hash"`
}

// UserDetail holds optional contact data, keyed by the user id.
type UserDetail struct {
	bun.BaseModel `bun:"table:users_detail,alias:ud"`

	ID    int64  `bun:"id,pk"`
	Email string `bun:"email"`
	Phone string `bun:"phone"`
}

// UserSettings holds per-user preferences, keyed by the user id.
type UserSettings struct {
	bun.BaseModel `bun:"table:users_settings,alias:ust"`

	ID             int64 `bun:"id,pk"`
	FirstTimeLogin bool  `bun:"first_time_login"`
}

// UserProfile is a user joined with its detail row.
type UserProfile struct {
	User `bun:",extend"`

	Email          string `bun:"email"`
	Phone          string `bun:"phone"`
	FirstTimeLogin bool   `bun:"first_time_login"`
}
