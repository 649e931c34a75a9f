package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/pkg/db"
	"github.com/deepstorefront/storefront/pkg/db/models"
	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/pagination"
	"github.com/deepstorefront/storefront/pkg/redis"
)

const (
	collectionsCacheKey = "collections"
	productCacheKey     = "product"
)

// maxUnitPrice is the largest value numeric(8,2) can hold.
var maxUnitPrice = decimal.RequireFromString("999999.99")

type service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	logg  *logger.Logger
}

// NewService constructs the catalog service. cache may be nil, in which case
// every read goes to the database.
func NewService(repo Repository, cache Cache, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo, cache: cache, ttl: ttl, logg: logg}, nil
}

func (s *service) ListCollections(ctx context.Context) ([]CollectionDTO, error) {
	var cached []CollectionDTO
	if s.cacheGet(ctx, &cached, collectionsCacheKey) {
		return cached, nil
	}

	collections, err := s.repo.ListCollections(ctx)
	if err != nil {
		return nil, db.MapError(err, "collections", "")
	}
	out := make([]CollectionDTO, 0, len(collections))
	for i := range collections {
		out = append(out, NewCollectionDTO(&collections[i]))
	}
	s.cacheSet(ctx, out, collectionsCacheKey)
	return out, nil
}

func (s *service) GetCollection(ctx context.Context, id int64) (*CollectionDTO, error) {
	collection, err := s.repo.FindCollection(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "collection", id)
	}
	dto := NewCollectionDTO(collection)
	return &dto, nil
}

func (s *service) CreateCollection(ctx context.Context, input CollectionInput) (*CollectionDTO, error) {
	collection := &models.Collection{}
	if err := s.applyCollectionInput(ctx, collection, input, false); err != nil {
		return nil, err
	}
	if err := s.repo.CreateCollection(ctx, collection); err != nil {
		return nil, db.MapError(err, "collection", "")
	}
	s.invalidate(ctx)
	return s.GetCollection(ctx, collection.ID)
}

func (s *service) UpdateCollection(ctx context.Context, id int64, input CollectionInput, partial bool) (*CollectionDTO, error) {
	collection, err := s.repo.FindCollection(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "collection", id)
	}
	if err := s.applyCollectionInput(ctx, collection, input, partial); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCollection(ctx, collection); err != nil {
		return nil, db.MapError(err, "collection", id)
	}
	s.invalidate(ctx)
	return s.GetCollection(ctx, id)
}

// DeleteCollection refuses to remove a collection that still holds products.
func (s *service) DeleteCollection(ctx context.Context, id int64) error {
	if _, err := s.repo.FindCollection(ctx, id); err != nil {
		return db.MapError(err, "collection", id)
	}
	count, err := s.repo.CountProductsInCollection(ctx, id)
	if err != nil {
		return db.MapError(err, "collection", id)
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "collection cannot be deleted because it includes one or more products").
			WithDetails(map[string]any{"products_count": count})
	}
	if err := s.repo.DeleteCollection(ctx, id); err != nil {
		return db.MapError(err, "collection", id)
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) applyCollectionInput(ctx context.Context, c *models.Collection, input CollectionInput, partial bool) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return fieldError("title", "may not be blank")
		}
		c.Title = title
	} else if !partial {
		return fieldError("title", "is required")
	}

	if input.FeaturedProductID != nil {
		if _, err := s.repo.FindProduct(ctx, *input.FeaturedProductID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fieldError("featured_product", "does not exist")
			}
			return db.MapError(err, "product", *input.FeaturedProductID)
		}
		c.FeaturedProductID = input.FeaturedProductID
	} else if !partial {
		c.FeaturedProductID = nil
	}
	return nil
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) ([]ProductDTO, int64, error) {
	if !ValidOrdering(filter.Ordering) {
		return nil, 0, fieldError("ordering", "is not a supported ordering")
	}
	products, total, err := s.repo.ListProducts(ctx, filter, params)
	if err != nil {
		return nil, 0, db.MapError(err, "products", "")
	}
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, NewProductDTO(&products[i]))
	}
	return out, total, nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*ProductDTO, error) {
	key := strconv.FormatInt(id, 10)
	var cached ProductDTO
	if s.cacheGet(ctx, &cached, productCacheKey, key) {
		return &cached, nil
	}

	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "product", id)
	}
	dto := NewProductDTO(product)
	s.cacheSet(ctx, dto, productCacheKey, key)
	return &dto, nil
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	product := &models.Product{}
	if err := s.applyProductInput(ctx, product, input, false); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, db.MapError(err, "product", "")
	}
	s.invalidate(ctx)
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id int64, input ProductInput, partial bool) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "product", id)
	}
	if err := s.applyProductInput(ctx, product, input, partial); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, db.MapError(err, "product", id)
	}
	s.invalidate(ctx, id)
	dto := NewProductDTO(product)
	return &dto, nil
}

// DeleteProduct refuses to remove a product that appears on an order.
func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.repo.FindProduct(ctx, id); err != nil {
		return db.MapError(err, "product", id)
	}
	count, err := s.repo.CountOrderItemsForProduct(ctx, id)
	if err != nil {
		return db.MapError(err, "product", id)
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product cannot be deleted because it is associated with an order item")
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return db.MapError(err, "product", id)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *service) applyProductInput(ctx context.Context, p *models.Product, input ProductInput, partial bool) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return fieldError("title", "may not be blank")
		}
		p.Title = title
	} else if !partial {
		return fieldError("title", "is required")
	}

	switch {
	case input.Slug != nil && strings.TrimSpace(*input.Slug) != "":
		slug := Slugify(*input.Slug)
		if slug == "" {
			return fieldError("slug", "must contain letters or digits")
		}
		p.Slug = slug
	case p.Slug == "" || (!partial && input.Slug == nil):
		p.Slug = Slugify(p.Title)
	}

	if input.Description != nil {
		desc := strings.TrimSpace(*input.Description)
		if desc == "" {
			p.Description = nil
		} else {
			p.Description = &desc
		}
	} else if !partial {
		p.Description = nil
	}

	if input.UnitPrice != nil {
		price := *input.UnitPrice
		if price.IsNegative() || price.GreaterThan(maxUnitPrice) {
			return fieldError("unit_price", "must be between 0 and 999999.99")
		}
		if !price.Equal(price.Round(2)) {
			return fieldError("unit_price", "must have at most 2 decimal places")
		}
		p.UnitPrice = price
	} else if !partial {
		return fieldError("unit_price", "is required")
	}

	if input.CollectionID != nil {
		if _, err := s.repo.FindCollection(ctx, *input.CollectionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fieldError("collection", "does not exist")
			}
			return db.MapError(err, "collection", *input.CollectionID)
		}
		p.CollectionID = *input.CollectionID
	} else if !partial {
		return fieldError("collection", "is required")
	}
	return nil
}

func (s *service) ListReviews(ctx context.Context, productID int64) ([]ReviewDTO, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	reviews, err := s.repo.ListReviews(ctx, productID)
	if err != nil {
		return nil, db.MapError(err, "reviews", productID)
	}
	out := make([]ReviewDTO, 0, len(reviews))
	for i := range reviews {
		out = append(out, NewReviewDTO(&reviews[i]))
	}
	return out, nil
}

func (s *service) GetReview(ctx context.Context, productID, id int64) (*ReviewDTO, error) {
	review, err := s.repo.FindReview(ctx, productID, id)
	if err != nil {
		return nil, db.MapError(err, "review", id)
	}
	dto := NewReviewDTO(review)
	return &dto, nil
}

func (s *service) CreateReview(ctx context.Context, productID int64, input ReviewInput) (*ReviewDTO, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	review := &models.Review{ProductID: productID}
	if err := applyReviewInput(review, input, false); err != nil {
		return nil, err
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		return nil, db.MapError(err, "review", "")
	}
	dto := NewReviewDTO(review)
	return &dto, nil
}

func (s *service) UpdateReview(ctx context.Context, productID, id int64, input ReviewInput, partial bool) (*ReviewDTO, error) {
	review, err := s.repo.FindReview(ctx, productID, id)
	if err != nil {
		return nil, db.MapError(err, "review", id)
	}
	if err := applyReviewInput(review, input, partial); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateReview(ctx, review); err != nil {
		return nil, db.MapError(err, "review", id)
	}
	dto := NewReviewDTO(review)
	return &dto, nil
}

func (s *service) DeleteReview(ctx context.Context, productID, id int64) error {
	return db.MapError(s.repo.DeleteReview(ctx, productID, id), "review", id)
}

func applyReviewInput(r *models.Review, input ReviewInput, partial bool) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return fieldError("name", "may not be blank")
		}
		r.Name = name
	} else if !partial {
		return fieldError("name", "is required")
	}
	if input.Description != nil {
		desc := strings.TrimSpace(*input.Description)
		if desc == "" {
			return fieldError("description", "may not be blank")
		}
		r.Description = desc
	} else if !partial {
		return fieldError("description", "is required")
	}
	return nil
}

// requireProduct resolves the parent product of a nested review request.
func (s *service) requireProduct(ctx context.Context, productID int64) error {
	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		return db.MapError(err, "product", productID)
	}
	return nil
}

func (s *service) cacheGet(ctx context.Context, dest any, parts ...string) bool {
	if s.cache == nil {
		return false
	}
	key := s.cache.CacheKey(parts...)
	err := s.cache.GetJSON(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, redis.ErrCacheMiss) && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": err.Error()}), "catalog.cache_read_failed")
	}
	return false
}

func (s *service) cacheSet(ctx context.Context, value any, parts ...string) {
	if s.cache == nil {
		return
	}
	key := s.cache.CacheKey(parts...)
	if err := s.cache.SetJSON(ctx, key, value, s.ttl); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": err.Error()}), "catalog.cache_write_failed")
	}
}

// invalidate drops the collection list, whose product counts change with
// every catalog write, plus the given product entries.
func (s *service) invalidate(ctx context.Context, productIDs ...int64) {
	if s.cache == nil {
		return
	}
	keys := []string{s.cache.CacheKey(collectionsCacheKey)}
	for _, id := range productIDs {
		keys = append(keys, s.cache.CacheKey(productCacheKey, strconv.FormatInt(id, 10)))
	}
	if err := s.cache.Del(ctx, keys...); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error": err.Error()}), "catalog.cache_invalidate_failed")
	}
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases value and joins its alphanumeric runs with hyphens.
func Slugify(value string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(value), "-"), "-")
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{field: msg})
}
