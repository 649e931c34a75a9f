package models

import (
	"time"

	"github.com/deepstorefront/storefront/pkg/enums"
)

type Customer struct {
	ID         int64            `gorm:"column:id;primaryKey;autoIncrement"`
	FirstName  string           `gorm:"column:first_name;size:255;not null"`
	LastName   string           `gorm:"column:last_name;size:255;not null"`
	Email      string           `gorm:"column:email;size:255;not null;uniqueIndex"`
	Phone      string           `gorm:"column:phone;size:255;not null;default:''"`
	BirthDate  *time.Time       `gorm:"column:birth_date;type:date"`
	Membership enums.Membership `gorm:"column:membership;size:1;not null;default:'B'"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// FullName joins first and last name for display and email greetings.
func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
