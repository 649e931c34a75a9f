package models

import "time"

// Review belongs to exactly one product.
type Review struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID   int64     `gorm:"column:product_id;not null;index"`
	Name        string    `gorm:"column:name;size:255;not null"`
	Description string    `gorm:"column:description;not null"`
	Date        time.Time `gorm:"column:date;autoCreateTime"`
}
