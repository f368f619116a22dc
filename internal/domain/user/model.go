package user

import "context"

// User is the minimal principal the identity provider deals in. Profile
// management lives outside this service.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
}

type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}
