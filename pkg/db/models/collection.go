package models

import "time"

// Collection groups products for browsing.
type Collection struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Title             string    `gorm:"column:title;size:255;not null"`
	FeaturedProductID *int64    `gorm:"column:featured_product_id"`
	ProductsCount     int64     `gorm:"column:products_count;->;-:migration"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
