package carts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/pkg/db/models"
	"github.com/deepstorefront/storefront/pkg/pagination"
)

// Repository defines persistence for carts and their items. Every item query
// is scoped by the owning cart id.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCart(ctx context.Context, cart *models.Cart) error
	FindCart(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	CartExists(ctx context.Context, id uuid.UUID) (bool, error)
	ListCarts(ctx context.Context, params pagination.Params) ([]models.Cart, int64, error)
	DeleteCart(ctx context.Context, id uuid.UUID) error

	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	FindItem(ctx context.Context, cartID uuid.UUID, id int64) (*models.CartItem, error)
	FindItemByProduct(ctx context.Context, cartID uuid.UUID, productID int64) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	IncrementItem(ctx context.Context, cartID uuid.UUID, id int64, by int) error
	SetItemQuantity(ctx context.Context, cartID uuid.UUID, id int64, quantity int) error
	DeleteItem(ctx context.Context, cartID uuid.UUID, id int64) error

	ProductExists(ctx context.Context, productID int64) (bool, error)
}

// Service exposes cart operations to the HTTP layer.
type Service interface {
	CreateCart(ctx context.Context) (*CartDTO, error)
	GetCart(ctx context.Context, id uuid.UUID) (*CartDTO, error)
	ListCarts(ctx context.Context, params pagination.Params) ([]CartDTO, int64, error)
	DeleteCart(ctx context.Context, id uuid.UUID) error

	ListItems(ctx context.Context, cartID uuid.UUID) ([]CartItemDTO, error)
	GetItem(ctx context.Context, cartID uuid.UUID, id int64) (*CartItemDTO, error)
	AddItem(ctx context.Context, cartID uuid.UUID, input AddItemInput) (*CartItemDTO, error)
	UpdateItem(ctx context.Context, cartID uuid.UUID, id int64, quantity int) (*CartItemDTO, error)
	DeleteItem(ctx context.Context, cartID uuid.UUID, id int64) error
}
