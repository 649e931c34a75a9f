package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "customers_email_key"}
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgErr), ""))
	assert.True(t, IsUniqueViolation(pgErr, "customers_email_key"))
	assert.False(t, IsUniqueViolation(pgErr, "other_key"))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: customers.email"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil, "product", 1))

	notFound := MapError(gorm.ErrRecordNotFound, "product", 7)
	assert.True(t, pkgerrors.IsCode(notFound, pkgerrors.CodeNotFound))

	conflict := MapError(&pgconn.PgError{Code: "23505"}, "customer", 1)
	assert.True(t, pkgerrors.IsCode(conflict, pkgerrors.CodeConflict))

	fk := MapError(&pgconn.PgError{Code: "23503"}, "cart item", 1)
	assert.True(t, pkgerrors.IsCode(fk, pkgerrors.CodeValidation))

	typed := pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	assert.Same(t, typed, MapError(typed, "order", 1))

	internal := MapError(errors.New("connection reset"), "order", 1)
	assert.True(t, pkgerrors.IsCode(internal, pkgerrors.CodeInternal))
}
