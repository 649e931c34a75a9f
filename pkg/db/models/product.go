package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog listing.
type Product struct {
	ID           int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Title        string          `gorm:"column:title;size:255;not null"`
	Slug         string          `gorm:"column:slug;size:255;not null;index"`
	Description  *string         `gorm:"column:description"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(8,2);not null"`
	CollectionID int64           `gorm:"column:collection_id;not null;index"`
	Collection   *Collection     `gorm:"foreignKey:CollectionID;constraint:OnDelete:RESTRICT"`
	Reviews      []Review        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	LastUpdate   time.Time       `gorm:"column:last_update;autoUpdateTime"`
}
