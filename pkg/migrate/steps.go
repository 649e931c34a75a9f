package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Step is one named, versioned schema operation. DependsOn is the version
// that must already be applied; 0 marks the first step.
type Step struct {
	Version   int64
	Name      string
	DependsOn int64
	Up        TxFunc
	Down      TxFunc

	dialect Dialect
}

// TxFunc runs inside the transaction goose opens for the step.
type TxFunc func(ctx context.Context, tx *gorm.DB) error

// Steps returns the ordered schema history for the dialect.
func Steps(dialect Dialect, opts Options) []Step {
	steps := []Step{
		{
			Version: 1,
			Name:    "create_store_schema",
			Up:      createStoreSchema,
			Down:    dropStoreSchema,
		},
		{
			Version:   2,
			Name:      "cart_uuid_identity",
			DependsOn: 1,
			Up:        cartIdentityUp(dialect, opts),
			Down:      irreversible,
		},
		{
			Version:   3,
			Name:      "cart_items_uuid_cart",
			DependsOn: 2,
			Up:        cartItemsUUIDUp(dialect, opts),
			Down:      irreversible,
		},
	}
	for i := range steps {
		steps[i].dialect = dialect
	}
	return steps
}

func (s Step) gooseMigration() *goose.Migration {
	return goose.NewGoMigration(s.Version,
		&goose.GoFunc{RunTx: s.run(s.Up)},
		&goose.GoFunc{RunTx: s.run(s.Down)},
	)
}

func (s Step) run(fn TxFunc) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		gtx, err := openTx(tx, s.dialect)
		if err != nil {
			return fmt.Errorf("step %d: %w", s.Version, err)
		}
		if fn == nil {
			return irreversible(ctx, gtx)
		}
		return fn(ctx, gtx.WithContext(ctx))
	}
}

// irreversible is the down side of destructive steps. It touches nothing:
// dropped rows and the previous table definition are gone for good.
func irreversible(ctx context.Context, tx *gorm.DB) error {
	return tx.WithContext(ctx).Exec("SELECT 1").Error
}

// openTx wraps goose's transaction in a gorm session on the same connection.
func openTx(tx *sql.Tx, dialect Dialect) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectPostgres:
		dialector = postgres.New(postgres.Config{Conn: tx})
	case DialectSQLite:
		dialector = &sqlite.Dialector{Conn: tx}
	default:
		return nil, fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", log.LstdFlags), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
}
