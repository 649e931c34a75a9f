// Package customers manages storefront customer records.
package customers

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/pkg/db"
	"github.com/deepstorefront/storefront/pkg/db/models"
	"github.com/deepstorefront/storefront/pkg/enums"
	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
	"github.com/deepstorefront/storefront/pkg/pagination"
)

// Repository defines persistence for customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, params pagination.Params) ([]models.Customer, int64, error)
	Find(ctx context.Context, id int64) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	Delete(ctx context.Context, id int64) error
	CountOrders(ctx context.Context, id int64) (int64, error)
}

// Service exposes customer operations to the HTTP layer.
type Service interface {
	List(ctx context.Context, params pagination.Params) ([]CustomerDTO, int64, error)
	Get(ctx context.Context, id int64) (*CustomerDTO, error)
	Create(ctx context.Context, input Input) (*CustomerDTO, error)
	Update(ctx context.Context, id int64, input Input, partial bool) (*CustomerDTO, error)
	Delete(ctx context.Context, id int64) error
}

// CustomerDTO is the customer payload returned to clients.
type CustomerDTO struct {
	ID         int64   `json:"id"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	BirthDate  *string `json:"birth_date"`
	Membership string  `json:"membership"`
}

// DateLayout is the wire format of birth_date.
const DateLayout = "2006-01-02"

func NewCustomerDTO(c *models.Customer) CustomerDTO {
	dto := CustomerDTO{
		ID:         c.ID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Email:      c.Email,
		Phone:      c.Phone,
		Membership: c.Membership.String(),
	}
	if c.BirthDate != nil {
		formatted := c.BirthDate.Format(DateLayout)
		dto.BirthDate = &formatted
	}
	return dto
}

// Input carries writable customer fields. Nil fields are left unchanged on
// partial updates.
type Input struct {
	FirstName  *string
	LastName   *string
	Email      *string
	Phone      *string
	BirthDate  *time.Time
	Membership *enums.Membership
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a customer repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Customer, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Customer{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	params = params.Normalize()
	var customers []models.Customer
	err := r.db.WithContext(ctx).
		Order("first_name ASC, last_name ASC, id ASC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&customers).Error
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (r *repository) Find(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) Update(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).
		Model(customer).
		Select("first_name", "last_name", "email", "phone", "birth_date", "membership", "updated_at").
		Updates(customer).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Customer{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountOrders(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("customer_id = ?", id).Count(&count).Error
	return count, err
}

type service struct {
	repo Repository
}

// NewService constructs the customer service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]CustomerDTO, int64, error) {
	customers, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, db.MapError(err, "customers", "")
	}
	out := make([]CustomerDTO, 0, len(customers))
	for i := range customers {
		out = append(out, NewCustomerDTO(&customers[i]))
	}
	return out, total, nil
}

func (s *service) Get(ctx context.Context, id int64) (*CustomerDTO, error) {
	customer, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "customer", id)
	}
	dto := NewCustomerDTO(customer)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input Input) (*CustomerDTO, error) {
	customer := &models.Customer{Membership: enums.MembershipBronze}
	if err := applyInput(customer, input, false); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, mapWriteError(err, "")
	}
	dto := NewCustomerDTO(customer)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id int64, input Input, partial bool) (*CustomerDTO, error) {
	customer, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, db.MapError(err, "customer", id)
	}
	if err := applyInput(customer, input, partial); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, mapWriteError(err, id)
	}
	dto := NewCustomerDTO(customer)
	return &dto, nil
}

// Delete refuses to remove a customer who has placed orders.
func (s *service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Find(ctx, id); err != nil {
		return db.MapError(err, "customer", id)
	}
	count, err := s.repo.CountOrders(ctx, id)
	if err != nil {
		return db.MapError(err, "customer", id)
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "customer cannot be deleted because they have placed orders")
	}
	return db.MapError(s.repo.Delete(ctx, id), "customer", id)
}

func mapWriteError(err error, id any) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a customer with this email already exists").
			WithDetails(map[string]string{"email": "already in use"})
	}
	return db.MapError(err, "customer", id)
}

func applyInput(c *models.Customer, input Input, partial bool) error {
	required := func(field string, value *string, dest *string) error {
		if value == nil {
			if partial {
				return nil
			}
			return fieldError(field, "is required")
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			return fieldError(field, "may not be blank")
		}
		*dest = trimmed
		return nil
	}

	if err := required("first_name", input.FirstName, &c.FirstName); err != nil {
		return err
	}
	if err := required("last_name", input.LastName, &c.LastName); err != nil {
		return err
	}
	if err := required("email", input.Email, &c.Email); err != nil {
		return err
	}
	if input.Email != nil {
		addr, err := mail.ParseAddress(c.Email)
		if err != nil || addr.Address != c.Email {
			return fieldError("email", "must be a valid email")
		}
		c.Email = strings.ToLower(c.Email)
	}

	if input.Phone != nil {
		c.Phone = strings.TrimSpace(*input.Phone)
	} else if !partial {
		c.Phone = ""
	}

	if input.BirthDate != nil {
		if input.BirthDate.After(time.Now()) {
			return fieldError("birth_date", "may not be in the future")
		}
		bd := *input.BirthDate
		c.BirthDate = &bd
	} else if !partial {
		c.BirthDate = nil
	}

	if input.Membership != nil {
		if !input.Membership.IsValid() {
			return fieldError("membership", "must be one of B, S, G")
		}
		c.Membership = *input.Membership
	} else if !partial {
		c.Membership = enums.MembershipBronze
	}
	return nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{field: msg})
}
