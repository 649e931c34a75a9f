package catalog

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/pkg/db/models"
	"github.com/deepstorefront/storefront/pkg/pagination"
)

// Repository defines persistence operations for collections, products and
// product reviews.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListCollections(ctx context.Context) ([]models.Collection, error)
	FindCollection(ctx context.Context, id int64) (*models.Collection, error)
	CreateCollection(ctx context.Context, collection *models.Collection) error
	UpdateCollection(ctx context.Context, collection *models.Collection) error
	DeleteCollection(ctx context.Context, id int64) error
	CountProductsInCollection(ctx context.Context, id int64) (int64, error)

	ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) ([]models.Product, int64, error)
	FindProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	CountOrderItemsForProduct(ctx context.Context, id int64) (int64, error)

	ListReviews(ctx context.Context, productID int64) ([]models.Review, error)
	FindReview(ctx context.Context, productID, id int64) (*models.Review, error)
	CreateReview(ctx context.Context, review *models.Review) error
	UpdateReview(ctx context.Context, review *models.Review) error
	DeleteReview(ctx context.Context, productID, id int64) error
}

// Cache is the JSON read-through cache used for hot catalog reads.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

// Service exposes catalog operations to the HTTP layer.
type Service interface {
	ListCollections(ctx context.Context) ([]CollectionDTO, error)
	GetCollection(ctx context.Context, id int64) (*CollectionDTO, error)
	CreateCollection(ctx context.Context, input CollectionInput) (*CollectionDTO, error)
	UpdateCollection(ctx context.Context, id int64, input CollectionInput, partial bool) (*CollectionDTO, error)
	DeleteCollection(ctx context.Context, id int64) error

	ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) ([]ProductDTO, int64, error)
	GetProduct(ctx context.Context, id int64) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id int64, input ProductInput, partial bool) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListReviews(ctx context.Context, productID int64) ([]ReviewDTO, error)
	GetReview(ctx context.Context, productID, id int64) (*ReviewDTO, error)
	CreateReview(ctx context.Context, productID int64, input ReviewInput) (*ReviewDTO, error)
	UpdateReview(ctx context.Context, productID, id int64, input ReviewInput, partial bool) (*ReviewDTO, error)
	DeleteReview(ctx context.Context, productID, id int64) error
}
