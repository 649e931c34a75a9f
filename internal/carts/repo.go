package carts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/pkg/db/models"
	"github.com/deepstorefront/storefront/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCart(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Omit("Items").Create(cart).Error
}

func (r *repository) FindCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id ASC") }).
		Preload("Items.Product").
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) CartExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Cart{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ListCarts pages by creation time. Cart ids are random and carry no order;
// id only breaks ties so page boundaries are stable.
func (r *repository) ListCarts(ctx context.Context, params pagination.Params) ([]models.Cart, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Cart{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	params = params.Normalize()

	var carts []models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id ASC") }).
		Preload("Items.Product").
		Order("created_at ASC, id ASC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&carts).Error
	if err != nil {
		return nil, 0, err
	}
	return carts, total, nil
}

// DeleteCart removes the cart; its items go with it through the cascading
// foreign key, and are deleted explicitly for connections without FK
// enforcement.
func (r *repository) DeleteCart(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("cart_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Cart{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ?", cartID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindItem(ctx context.Context, cartID uuid.UUID, id int64) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ? AND id = ?", cartID, id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemByProduct(ctx context.Context, cartID uuid.UUID, productID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Omit("Product").Create(item).Error
}

func (r *repository) IncrementItem(ctx context.Context, cartID uuid.UUID, id int64, by int) error {
	return updateOne(r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND id = ?", cartID, id),
		"quantity", gorm.Expr("quantity + ?", by))
}

func (r *repository) SetItemQuantity(ctx context.Context, cartID uuid.UUID, id int64, quantity int) error {
	return updateOne(r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND id = ?", cartID, id),
		"quantity", quantity)
}

func (r *repository) DeleteItem(ctx context.Context, cartID uuid.UUID, id int64) error {
	res := r.db.WithContext(ctx).Where("cart_id = ? AND id = ?", cartID, id).Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error
	return count > 0, err
}

func updateOne(scoped *gorm.DB, column string, value any) error {
	res := scoped.Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
