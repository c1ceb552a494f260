package dto

import (
	"time"

	"github.com/Additional-Code/backorder/internal/entity"
	"github.com/Additional-Code/backorder/internal/service/auth"
)

// LoginRequest carries credentials and the remember-me choice.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// RegisterRequest is the self-service sign-up payload.
type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Name            string `json:"name"`
}

// Registration converts the payload for the auth service.
func (r RegisterRequest) Registration() auth.Registration {
	return auth.Registration{
		Username:        r.Username,
		Password:        r.Password,
		PasswordConfirm: r.PasswordConfirm,
		Name:            r.Name,
	}
}

// PasswordChangeRequest replaces the caller's password.
type PasswordChangeRequest struct {
	Current string `json:"current"`
	New     string `json:"new"`
}

// SessionResponse is returned after a successful login.
type SessionResponse struct {
	Token      string        `json:"token"`
	ExpiresAt  time.Time     `json:"expires_at"`
	User       auth.Identity `json:"user"`
	FirstLogin bool          `json:"first_login"`
}

// UserResponse exposes a user profile.
type UserResponse struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Admin    bool      `json:"admin"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Joined   time.Time `json:"joined"`
}

// FromProfile maps a joined user profile.
func FromProfile(p *entity.UserProfile) UserResponse {
	return UserResponse{
		ID:       p.ID,
		Username: p.Username,
		Name:     p.Name,
		Admin:    p.IsAdmin(),
		Email:    p.Email,
		Phone:    p.Phone,
		Joined:   p.Joined,
	}
}

// FromProfiles maps a user listing.
func FromProfiles(ps []entity.UserProfile) []UserResponse {
	out := make([]UserResponse, 0, len(ps))
	for i := range ps {
		out = append(out, FromProfile(&ps[i]))
	}
	return out
}

// FromUser maps a user without its satellite rows.
func FromUser(u *entity.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Admin:    u.IsAdmin(),
		Joined:   u.Joined,
	}
}
