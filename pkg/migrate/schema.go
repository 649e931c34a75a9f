package migrate

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Table snapshots as of step 1. They are frozen here so the step keeps
// producing the same schema when pkg/db/models evolves.

type collectionV1 struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	Title             string `gorm:"size:255;not null"`
	FeaturedProductID *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (collectionV1) TableName() string { return "collections" }

type productV1 struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	Title        string          `gorm:"size:255;not null"`
	Slug         string          `gorm:"size:255;not null;index:idx_products_slug"`
	Description  *string         `gorm:"type:text"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	CollectionID int64           `gorm:"not null;index:idx_products_collection"`
	Collection   *collectionV1   `gorm:"foreignKey:CollectionID;constraint:OnDelete:RESTRICT"`
	CreatedAt    time.Time
	LastUpdate   time.Time
}

func (productV1) TableName() string { return "products" }

type reviewV1 struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	ProductID   int64      `gorm:"not null;index:idx_reviews_product"`
	Product     *productV1 `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Name        string     `gorm:"size:255;not null"`
	Description string     `gorm:"type:text;not null"`
	Date        time.Time
}

func (reviewV1) TableName() string { return "reviews" }

type customerV1 struct {
	ID         int64      `gorm:"primaryKey;autoIncrement"`
	FirstName  string     `gorm:"size:255;not null"`
	LastName   string     `gorm:"size:255;not null"`
	Email      string     `gorm:"size:255;not null;uniqueIndex:idx_customers_email"`
	Phone      string     `gorm:"size:255;not null;default:''"`
	BirthDate  *time.Time `gorm:"type:date"`
	Membership string     `gorm:"size:1;not null;default:'B'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (customerV1) TableName() string { return "customers" }

type orderV1 struct {
	ID            int64       `gorm:"primaryKey;autoIncrement"`
	CustomerID    int64       `gorm:"not null;index:idx_orders_customer"`
	Customer      *customerV1 `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	PlacedAt      time.Time
	PaymentStatus string `gorm:"size:1;not null;default:'P'"`
}

func (orderV1) TableName() string { return "orders" }

type orderItemV1 struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"not null;index:idx_order_items_order"`
	Order     *orderV1        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ProductID int64           `gorm:"not null;index:idx_order_items_product"`
	Product   *productV1      `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(8,2);not null"`
}

func (orderItemV1) TableName() string { return "order_items" }

// cartV1 is the original integer-keyed cart. Step 2 replaces it.
type cartV1 struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time
}

func (cartV1) TableName() string { return "carts" }

type cartItemV1 struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	CartID    int64      `gorm:"not null"`
	Cart      *cartV1    `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	ProductID int64      `gorm:"not null"`
	Product   *productV1 `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Quantity  int        `gorm:"not null"`
}

func (cartItemV1) TableName() string { return "cart_items" }

// Creation order follows foreign keys; drops run in reverse.
var storeSchemaV1 = []any{
	&collectionV1{},
	&productV1{},
	&reviewV1{},
	&customerV1{},
	&orderV1{},
	&orderItemV1{},
	&cartV1{},
	&cartItemV1{},
}

func createStoreSchema(ctx context.Context, tx *gorm.DB) error {
	for _, table := range storeSchemaV1 {
		if err := tx.WithContext(ctx).Migrator().CreateTable(table); err != nil {
			return err
		}
	}
	return nil
}

func dropStoreSchema(ctx context.Context, tx *gorm.DB) error {
	tables := []string{"cart_items", "carts", "order_items", "orders", "customers", "reviews", "products", "collections"}
	for _, table := range tables {
		if err := tx.WithContext(ctx).Migrator().DropTable(table); err != nil {
			return err
		}
	}
	return nil
}
