package service

import (
	"context"
	"time"

	"github.com/iliyamo/equipment-rental/internal/media"
	"github.com/iliyamo/equipment-rental/internal/model"
	"github.com/iliyamo/equipment-rental/internal/queue"
)

// UserStore is the subset of repository.UserRepo the services need.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint64) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error)
	UpdateProfile(ctx context.Context, u *model.User) error
	SetOTP(ctx context.Context, id uint64, otp string) error
	Activate(ctx context.Context, id uint64) error
	ResetPassword(ctx context.Context, id uint64, hash string) error
	Delete(ctx context.Context, id uint64) error
}

// TokenStore persists bearer token hashes.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, name, tokenHash string, exp time.Time) error
	Validate(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// EquipmentStore is implemented by repository.EquipmentRepo.
type EquipmentStore interface {
	List(ctx context.Context) ([]*model.Equipment, error)
	GetByID(ctx context.Context, id uint64) (*model.Equipment, error)
	Create(ctx context.Context, e *model.Equipment) error
	Update(ctx context.Context, e *model.Equipment) error
	Delete(ctx context.Context, id uint64) error
}

// OrderStore is implemented by repository.OrderRepo.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	ListByUser(ctx context.Context, userID uint64) ([]*model.Order, error)
}

// MediaStore is implemented by media.LocalStorage.
type MediaStore interface {
	Validate(u media.Upload) error
	Store(ctx context.Context, dir string, u media.Upload) (string, error)
	Delete(ctx context.Context, ref string) error
	URL(ref string) string
}

// OrderEvents receives order.placed notifications.
type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, ev queue.OrderPlacedEvent) error
}
