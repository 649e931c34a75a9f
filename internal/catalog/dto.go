package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/deepstorefront/storefront/pkg/db/models"
)

// CollectionDTO is the collection payload returned to clients.
type CollectionDTO struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	FeaturedProductID *int64 `json:"featured_product"`
	ProductsCount     int64  `json:"products_count"`
}

func NewCollectionDTO(c *models.Collection) CollectionDTO {
	return CollectionDTO{
		ID:                c.ID,
		Title:             c.Title,
		FeaturedProductID: c.FeaturedProductID,
		ProductsCount:     c.ProductsCount,
	}
}

// ProductDTO is the product payload returned to clients.
type ProductDTO struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Description  *string         `json:"description"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	CollectionID int64           `json:"collection"`
	LastUpdate   time.Time       `json:"last_update"`
}

func NewProductDTO(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:           p.ID,
		Title:        p.Title,
		Slug:         p.Slug,
		Description:  p.Description,
		UnitPrice:    p.UnitPrice,
		CollectionID: p.CollectionID,
		LastUpdate:   p.LastUpdate,
	}
}

// ReviewDTO is the review payload returned to clients.
type ReviewDTO struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

func NewReviewDTO(r *models.Review) ReviewDTO {
	return ReviewDTO{
		ID:          r.ID,
		ProductID:   r.ProductID,
		Name:        r.Name,
		Description: r.Description,
		Date:        r.Date,
	}
}

// CollectionInput carries writable collection fields. Nil fields are left
// unchanged on partial updates.
type CollectionInput struct {
	Title             *string
	FeaturedProductID *int64
}

// ProductInput carries writable product fields.
type ProductInput struct {
	Title        *string
	Slug         *string
	Description  *string
	UnitPrice    *decimal.Decimal
	CollectionID *int64
}

// ReviewInput carries writable review fields.
type ReviewInput struct {
	Name        *string
	Description *string
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CollectionID *int64
	Search       string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Ordering     string
}

// productOrderings whitelists the ordering query values.
var productOrderings = map[string]string{
	"unit_price":   "unit_price ASC, id ASC",
	"-unit_price":  "unit_price DESC, id ASC",
	"last_update":  "last_update ASC, id ASC",
	"-last_update": "last_update DESC, id ASC",
	"title":        "title ASC, id ASC",
	"-title":       "title DESC, id ASC",
}

// ValidOrdering reports whether value is an accepted ordering key.
func ValidOrdering(value string) bool {
	if value == "" {
		return true
	}
	_, ok := productOrderings[value]
	return ok
}
