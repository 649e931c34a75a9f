package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/pkg/db/models"
	"github.com/deepstorefront/storefront/pkg/enums"
	"github.com/deepstorefront/storefront/pkg/pagination"
)

// Repository defines persistence for orders and the cart reads needed to
// place them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	List(ctx context.Context, params pagination.Params, filter Filter) ([]models.Order, int64, error)
	Find(ctx context.Context, id int64) (*models.Order, error)
	FindWithCustomer(ctx context.Context, id int64) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	UpdatePaymentStatus(ctx context.Context, id int64, status enums.PaymentStatus) error
	Delete(ctx context.Context, id int64) error

	FindCartForCheckout(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
	CustomerExists(ctx context.Context, customerID int64) (bool, error)
}

// TaskPublisher enqueues background work.
type TaskPublisher interface {
	Publish(ctx context.Context, task string, payload any) (string, error)
}

// Service exposes order operations to the HTTP layer.
type Service interface {
	List(ctx context.Context, params pagination.Params, filter Filter) ([]OrderDTO, int64, error)
	Get(ctx context.Context, id int64) (*OrderDTO, error)
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status enums.PaymentStatus) (*OrderDTO, error)
	Delete(ctx context.Context, id int64) error
}
