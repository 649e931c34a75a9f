package catalog

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/pkg/db/models"
	"github.com/deepstorefront/storefront/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) collectionsWithCounts(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Collection{}).
		Select("collections.*, COUNT(products.id) AS products_count").
		Joins("LEFT JOIN products ON products.collection_id = collections.id").
		Group("collections.id")
}

func (r *repository) ListCollections(ctx context.Context) ([]models.Collection, error) {
	var collections []models.Collection
	err := r.collectionsWithCounts(ctx).
		Order("collections.id ASC").
		Find(&collections).Error
	if err != nil {
		return nil, err
	}
	return collections, nil
}

func (r *repository) FindCollection(ctx context.Context, id int64) (*models.Collection, error) {
	var collection models.Collection
	err := r.collectionsWithCounts(ctx).
		Where("collections.id = ?", id).
		Take(&collection).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

func (r *repository) CreateCollection(ctx context.Context, collection *models.Collection) error {
	return r.db.WithContext(ctx).Create(collection).Error
}

func (r *repository) UpdateCollection(ctx context.Context, collection *models.Collection) error {
	return r.db.WithContext(ctx).
		Model(collection).
		Select("title", "featured_product_id", "updated_at").
		Updates(collection).Error
}

func (r *repository) DeleteCollection(ctx context.Context, id int64) error {
	return deleteOne(r.db.WithContext(ctx).Where("id = ?", id), &models.Collection{})
}

func (r *repository) CountProductsInCollection(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("collection_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *repository) ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.CollectionID != nil {
		query = query.Where("collection_id = ?", *filter.CollectionID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)", like, like)
	}
	if filter.MinPrice != nil {
		query = query.Where("unit_price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("unit_price <= ?", *filter.MaxPrice)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := productOrderings[filter.Ordering]
	if !ok {
		order = "id ASC"
	}
	params = params.Normalize()

	var products []models.Product
	err := query.
		Order(order).
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *repository) FindProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Collection", "Reviews").Create(product).Error
}

func (r *repository) UpdateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(product).
		Select("title", "slug", "description", "unit_price", "collection_id", "last_update").
		Updates(product).Error
}

func (r *repository) DeleteProduct(ctx context.Context, id int64) error {
	return deleteOne(r.db.WithContext(ctx).Where("id = ?", id), &models.Product{})
}

func (r *repository) CountOrderItemsForProduct(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("product_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *repository) ListReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *repository) FindReview(ctx context.Context, productID, id int64) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND id = ?", productID, id).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) CreateReview(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repository) UpdateReview(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).
		Model(review).
		Select("name", "description").
		Updates(review).Error
}

func (r *repository) DeleteReview(ctx context.Context, productID, id int64) error {
	return deleteOne(r.db.WithContext(ctx).Where("product_id = ? AND id = ?", productID, id), &models.Review{})
}

// deleteOne runs the scoped delete and reports gorm.ErrRecordNotFound when
// nothing matched.
func deleteOne(scoped *gorm.DB, model any) error {
	res := scoped.Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
