package carts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/deepstorefront/storefront/pkg/db/models"
)

// MaxItemQuantity bounds a single line's quantity.
const MaxItemQuantity = 32767

// CartDTO is the cart payload with its items and running total.
type CartDTO struct {
	ID         uuid.UUID       `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Items      []CartItemDTO   `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CartProductDTO is the product summary embedded in cart items.
type CartProductDTO struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CartItemDTO is one line of a cart.
type CartItemDTO struct {
	ID         int64           `json:"id"`
	Product    CartProductDTO  `json:"product"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// AddItemInput adds quantity of a product to a cart.
type AddItemInput struct {
	ProductID int64
	Quantity  int
}

func NewCartItemDTO(item *models.CartItem) CartItemDTO {
	dto := CartItemDTO{ID: item.ID, Quantity: item.Quantity, TotalPrice: decimal.Zero}
	if item.Product != nil {
		dto.Product = CartProductDTO{
			ID:        item.Product.ID,
			Title:     item.Product.Title,
			UnitPrice: item.Product.UnitPrice,
		}
		dto.TotalPrice = item.Product.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	} else {
		dto.Product.ID = item.ProductID
	}
	return dto
}

func NewCartDTO(cart *models.Cart) CartDTO {
	dto := CartDTO{
		ID:         cart.ID,
		CreatedAt:  cart.CreatedAt,
		Items:      make([]CartItemDTO, 0, len(cart.Items)),
		TotalPrice: decimal.Zero,
	}
	for i := range cart.Items {
		item := NewCartItemDTO(&cart.Items[i])
		dto.TotalPrice = dto.TotalPrice.Add(item.TotalPrice)
		dto.Items = append(dto.Items, item)
	}
	return dto
}
