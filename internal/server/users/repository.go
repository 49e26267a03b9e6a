package users

import (
	"context"
)

// Repository stores accounts. Lookups return common.ErrorNotFound when
// nothing matches; Create returns common.ErrorAlreadyExists for a taken
// email or mobile.
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByMobile(ctx context.Context, mobile string) (*User, error)
	GetBySocialCode(ctx context.Context, code string) (*User, error)
}
