package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/deepstorefront/storefront/pkg/enums"
)

// Order is placed by a customer, usually from a cart at checkout.
type Order struct {
	ID            int64               `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID    int64               `gorm:"column:customer_id;not null;index"`
	Customer      *Customer           `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	PlacedAt      time.Time           `gorm:"column:placed_at;autoCreateTime"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;size:1;not null;default:'P'"`
	Items         []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem snapshots the product price at the time the order was placed.
type OrderItem struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"column:order_id;not null;index"`
	ProductID int64           `gorm:"column:product_id;not null;index"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(8,2);not null"`
}

// Total sums quantity * unit price over the loaded items.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
