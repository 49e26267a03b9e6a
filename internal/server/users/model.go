package users

import "time"

type User struct {
	ID             string
	Email          string
	FullName       string
	Mobile         string
	PasswordHash   []byte
	Avatar         string
	IsPublic       bool
	RoleID         string
	SocialCode     string
	MobileVerified bool
	EmailVerified  bool
	Archived       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SocialAccount is what a social provider told us about a person who has
// not registered yet.
type SocialAccount struct {
	Email    string
	FullName string
}
