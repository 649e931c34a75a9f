package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// cartV2 keys carts by a random UUID assigned by the application at insert
// time. created_at is written once on insert.
type cartV2 struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

func (cartV2) TableName() string { return "carts" }

type cartItemV2 struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	CartID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product,priority:1"`
	Cart      *cartV2    `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	ProductID int64      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product,priority:2"`
	Product   *productV1 `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Quantity  int        `gorm:"not null;check:chk_cart_items_quantity,quantity >= 1"`
}

func (cartItemV2) TableName() string { return "cart_items" }

// ErrTableNotEmpty stops a destructive step from discarding live rows.
type ErrTableNotEmpty struct {
	Table string
	Rows  int64
}

func (e *ErrTableNotEmpty) Error() string {
	return fmt.Sprintf("refusing to drop %s: it holds %d rows (set the allow-data-loss flag after backing them up)", e.Table, e.Rows)
}

// cartIdentityUp switches carts from an integer key to a UUID key by
// dropping and recreating the table. Existing carts are discarded, which is
// only acceptable where carts are disposable; the emptiness guard enforces
// that unless opts.AllowDataLoss is set.
func cartIdentityUp(dialect Dialect, opts Options) TxFunc {
	return func(ctx context.Context, tx *gorm.DB) error {
		if err := guardEmpty(tx, "carts", opts); err != nil {
			return err
		}
		if err := dropCascade(tx, dialect, "carts"); err != nil {
			return fmt.Errorf("drop carts: %w", err)
		}
		if err := convertCartIdentities(ctx, tx); err != nil {
			return err
		}
		if err := tx.Migrator().CreateTable(&cartV2{}); err != nil {
			return fmt.Errorf("create carts: %w", err)
		}
		return nil
	}
}

// convertCartIdentities is the hook for carrying integer-keyed carts over to
// UUID keys. It has nothing to convert: the old rows are gone by the time it
// runs, and guardEmpty ensures there were none unless loss was allowed.
func convertCartIdentities(context.Context, *gorm.DB) error {
	return nil
}

// cartItemsUUIDUp rebuilds cart_items so cart_id matches the UUID cart key.
// It has to run after the cart identity step, which version order enforces.
func cartItemsUUIDUp(dialect Dialect, opts Options) TxFunc {
	return func(ctx context.Context, tx *gorm.DB) error {
		if err := guardEmpty(tx, "cart_items", opts); err != nil {
			return err
		}
		if err := dropCascade(tx, dialect, "cart_items"); err != nil {
			return fmt.Errorf("drop cart_items: %w", err)
		}
		if err := tx.Migrator().CreateTable(&cartItemV2{}); err != nil {
			return fmt.Errorf("create cart_items: %w", err)
		}
		return nil
	}
}

func guardEmpty(tx *gorm.DB, table string, opts Options) error {
	if opts.AllowDataLoss || !tx.Migrator().HasTable(table) {
		return nil
	}
	var rows int64
	if err := tx.Table(table).Count(&rows).Error; err != nil {
		return fmt.Errorf("count %s: %w", table, err)
	}
	if rows > 0 {
		return &ErrTableNotEmpty{Table: table, Rows: rows}
	}
	return nil
}

// dropCascade removes the table and, on postgres, every foreign key that
// points at it. sqlite has no CASCADE on DROP TABLE.
func dropCascade(tx *gorm.DB, dialect Dialect, table string) error {
	stmt := "DROP TABLE IF EXISTS " + table
	if dialect == DialectPostgres {
		stmt += " CASCADE"
	}
	return tx.Exec(stmt).Error
}
