package auth

import "context"

// UserRepository defines persistence operations for auth users. The store is
// responsible for enforcing email uniqueness; Create must report a conflict
// as ErrEmailExists even under concurrent inserts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
