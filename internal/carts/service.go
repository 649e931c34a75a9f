package carts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/pkg/db"
	"github.com/deepstorefront/storefront/pkg/db/models"
	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/pagination"
)

type service struct {
	repo     Repository
	dbClient *db.Client
	logg     *logger.Logger
}

// NewService constructs the cart service.
func NewService(repo Repository, dbClient *db.Client, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient, logg: logg}, nil
}

// CreateCart starts an empty cart. The id is assigned on insert.
func (s *service) CreateCart(ctx context.Context) (*CartDTO, error) {
	cart := &models.Cart{}
	if err := s.repo.CreateCart(ctx, cart); err != nil {
		return nil, db.MapError(err, "cart", "")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithCartID(ctx, cart.ID.String()), "cart.created")
	}
	dto := NewCartDTO(cart)
	return &dto, nil
}

func (s *service) GetCart(ctx context.Context, id uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindCart(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "cart", id)
	}
	dto := NewCartDTO(cart)
	return &dto, nil
}

func (s *service) ListCarts(ctx context.Context, params pagination.Params) ([]CartDTO, int64, error) {
	carts, total, err := s.repo.ListCarts(ctx, params)
	if err != nil {
		return nil, 0, db.MapError(err, "carts", "")
	}
	out := make([]CartDTO, 0, len(carts))
	for i := range carts {
		out = append(out, NewCartDTO(&carts[i]))
	}
	return out, total, nil
}

func (s *service) DeleteCart(ctx context.Context, id uuid.UUID) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteCart(ctx, id)
	})
	if err != nil {
		return db.MapError(err, "cart", id)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithCartID(ctx, id.String()), "cart.deleted")
	}
	return nil
}

// ListItems resolves the parent cart first so an unknown cart is a 404
// rather than an empty list.
func (s *service) ListItems(ctx context.Context, cartID uuid.UUID) ([]CartItemDTO, error) {
	if err := s.requireCart(ctx, s.repo, cartID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, cartID)
	if err != nil {
		return nil, db.MapError(err, "cart items", cartID)
	}
	out := make([]CartItemDTO, 0, len(items))
	for i := range items {
		out = append(out, NewCartItemDTO(&items[i]))
	}
	return out, nil
}

func (s *service) GetItem(ctx context.Context, cartID uuid.UUID, id int64) (*CartItemDTO, error) {
	item, err := s.repo.FindItem(ctx, cartID, id)
	if err != nil {
		return nil, db.MapError(err, "cart item", id)
	}
	dto := NewCartItemDTO(item)
	return &dto, nil
}

// AddItem puts a product in the cart. Adding a product that is already in
// the cart increases that line's quantity instead of creating a second line.
func (s *service) AddItem(ctx context.Context, cartID uuid.UUID, input AddItemInput) (*CartItemDTO, error) {
	if err := validateQuantity(input.Quantity); err != nil {
		return nil, err
	}

	var itemID int64
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.requireCart(ctx, repo, cartID); err != nil {
			return err
		}
		exists, err := repo.ProductExists(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"product_id": "no product with the given id was found"})
		}

		existing, err := repo.FindItemByProduct(ctx, cartID, input.ProductID)
		switch {
		case err == nil:
			if existing.Quantity+input.Quantity > MaxItemQuantity {
				return quantityError()
			}
			itemID = existing.ID
			return repo.IncrementItem(ctx, cartID, existing.ID, input.Quantity)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		item := &models.CartItem{CartID: cartID, ProductID: input.ProductID, Quantity: input.Quantity}
		if err := repo.CreateItem(ctx, item); err != nil {
			return err
		}
		itemID = item.ID
		return nil
	})
	if err != nil {
		return nil, db.MapError(err, "cart item", "")
	}
	return s.GetItem(ctx, cartID, itemID)
}

func (s *service) UpdateItem(ctx context.Context, cartID uuid.UUID, id int64, quantity int) (*CartItemDTO, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := s.repo.SetItemQuantity(ctx, cartID, id, quantity); err != nil {
		return nil, db.MapError(err, "cart item", id)
	}
	return s.GetItem(ctx, cartID, id)
}

func (s *service) DeleteItem(ctx context.Context, cartID uuid.UUID, id int64) error {
	return db.MapError(s.repo.DeleteItem(ctx, cartID, id), "cart item", id)
}

func (s *service) requireCart(ctx context.Context, repo Repository, cartID uuid.UUID) error {
	exists, err := repo.CartExists(ctx, cartID)
	if err != nil {
		return db.MapError(err, "cart", cartID)
	}
	if !exists {
		return pkgerrors.NotFound("cart", cartID)
	}
	return nil
}

func validateQuantity(quantity int) error {
	if quantity < 1 || quantity > MaxItemQuantity {
		return quantityError()
	}
	return nil
}

func quantityError() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"quantity": fmt.Sprintf("must be between 1 and %d", MaxItemQuantity)})
}
