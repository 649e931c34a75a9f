package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/internal/tasks"
	"github.com/deepstorefront/storefront/pkg/db"
	"github.com/deepstorefront/storefront/pkg/db/models"
	"github.com/deepstorefront/storefront/pkg/enums"
	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/pagination"
)

type service struct {
	repo      Repository
	dbClient  *db.Client
	publisher TaskPublisher
	logg      *logger.Logger
}

// NewService constructs the order service.
func NewService(repo Repository, dbClient *db.Client, publisher TaskPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("task publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, dbClient: dbClient, publisher: publisher, logg: logg}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filter Filter) ([]OrderDTO, int64, error) {
	orders, total, err := s.repo.List(ctx, params, filter)
	if err != nil {
		return nil, 0, db.MapError(err, "orders", "")
	}
	out := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderDTO(&orders[i]))
	}
	return out, total, nil
}

func (s *service) Get(ctx context.Context, id int64) (*OrderDTO, error) {
	order, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "order", id)
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

// PlaceOrder converts the cart into an order at current prices and removes
// the cart. The confirmation task is published only after the commit.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error) {
	if input.CartID == uuid.Nil {
		return nil, fieldError("cart_id", "is required")
	}
	if input.CustomerID <= 0 {
		return nil, fieldError("customer_id", "is required")
	}

	var created *models.Order
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		exists, err := repo.CustomerExists(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		if !exists {
			return fieldError("customer_id", fmt.Sprintf("customer %d does not exist", input.CustomerID))
		}

		cart, err := repo.FindCartForCheckout(ctx, input.CartID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fieldError("cart_id", fmt.Sprintf("cart %s does not exist", input.CartID))
		}
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return fieldError("cart_id", "the cart is empty")
		}

		order := &models.Order{
			CustomerID:    input.CustomerID,
			PaymentStatus: enums.PaymentStatusPending,
			Items:         make([]models.OrderItem, 0, len(cart.Items)),
		}
		for _, item := range cart.Items {
			if item.Product == nil {
				return fmt.Errorf("cart item %d has no product loaded", item.ID)
			}
			order.Items = append(order.Items, models.OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.Product.UnitPrice,
			})
		}
		if err := repo.Create(ctx, order); err != nil {
			return err
		}
		err = repo.DeleteCart(ctx, input.CartID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("cart %s was already checked out", input.CartID))
		}
		if err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, db.MapError(err, "order", "")
	}

	orderCtx := s.logg.WithCartID(s.logg.WithCustomerID(ctx, input.CustomerID), input.CartID.String())
	orderCtx = s.logg.WithField(orderCtx, "order_id", created.ID)
	s.logg.Info(orderCtx, "order.placed")

	if _, err := s.publisher.Publish(ctx, tasks.OrderConfirmation, ConfirmationPayload{OrderID: created.ID}); err != nil {
		s.logg.Error(orderCtx, "failed to enqueue order confirmation", err)
	}

	dto := NewOrderDTO(created)
	return &dto, nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, id int64, status enums.PaymentStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, fieldError("payment_status", "must be one of P, C, F")
	}
	if err := s.repo.UpdatePaymentStatus(ctx, id, status); err != nil {
		return nil, db.MapError(err, "order", id)
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, id)
	})
	return db.MapError(err, "order", id)
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{field: msg})
}
