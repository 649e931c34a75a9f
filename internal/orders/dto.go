package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/deepstorefront/storefront/pkg/db/models"
	"github.com/deepstorefront/storefront/pkg/enums"
)

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID            int64           `json:"id"`
	Customer      int64           `json:"customer"`
	PlacedAt      time.Time       `json:"placed_at"`
	PaymentStatus string          `json:"payment_status"`
	Items         []OrderItemDTO  `json:"items"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

// OrderItemDTO is a single order line.
type OrderItemDTO struct {
	ID        int64           `json:"id"`
	Product   int64           `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PlaceOrderInput converts a cart into an order for a customer.
type PlaceOrderInput struct {
	CartID     uuid.UUID
	CustomerID int64
}

// Filter narrows order lists.
type Filter struct {
	CustomerID    *int64
	PaymentStatus *enums.PaymentStatus
}

// ConfirmationPayload is the body of the orders.confirmation task.
type ConfirmationPayload struct {
	OrderID int64 `json:"order_id"`
}

func NewOrderDTO(o *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ID:        item.ID,
			Product:   item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return OrderDTO{
		ID:            o.ID,
		Customer:      o.CustomerID,
		PlacedAt:      o.PlacedAt,
		PaymentStatus: o.PaymentStatus.String(),
		Items:         items,
		TotalPrice:    o.Total(),
	}
}
