package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/account-service/internal/domain"
)

// UserStore is the narrow persistence contract the engine runs against.
// Find/Delete return (nil, nil) when no document matches. Create and Update
// return ErrDuplicateEmail when the unique email index rejects the write.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}
