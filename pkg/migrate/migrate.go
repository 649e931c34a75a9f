package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"

	"github.com/deepstorefront/storefront/pkg/config"
	"github.com/deepstorefront/storefront/pkg/logger"
)

// Dialect names the SQL dialect the migrations run against.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

// DialectFor maps the database config onto a migration dialect.
func DialectFor(cfg config.DBConfig) Dialect {
	if cfg.IsSQLite() {
		return DialectSQLite
	}
	return DialectPostgres
}

func (d Dialect) goose() (goose.Dialect, error) {
	switch d {
	case DialectPostgres:
		return goose.DialectPostgres, nil
	case DialectSQLite:
		return goose.DialectSQLite3, nil
	}
	return "", fmt.Errorf("unsupported migration dialect %q", d)
}

// Options tune how the migration steps behave.
type Options struct {
	// AllowDataLoss lets destructive steps drop tables that still hold rows.
	AllowDataLoss bool
	Logger        *logger.Logger
}

// Runner applies the registered steps through goose. goose's version table
// is the ledger of applied steps; a step is applied at most once.
type Runner struct {
	provider *goose.Provider
	steps    []Step
	logg     *logger.Logger
}

// NewRunner validates the step sequence and prepares a goose provider.
func NewRunner(db *sql.DB, dialect Dialect, opts Options) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	steps := Steps(dialect, opts)
	if err := Validate(steps); err != nil {
		return nil, err
	}
	gd, err := dialect.goose()
	if err != nil {
		return nil, err
	}

	migrations := make([]*goose.Migration, 0, len(steps))
	for _, step := range steps {
		migrations = append(migrations, step.gooseMigration())
	}

	providerOpts := []goose.ProviderOption{
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(migrations...),
	}
	if dialect == DialectPostgres {
		// Advisory lock so two deploys cannot interleave schema changes.
		locker, err := lock.NewPostgresSessionLocker()
		if err != nil {
			return nil, fmt.Errorf("create session locker: %w", err)
		}
		providerOpts = append(providerOpts, goose.WithSessionLocker(locker))
	}

	provider, err := goose.NewProvider(gd, db, nil, providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}
	return &Runner{provider: provider, steps: steps, logg: opts.Logger}, nil
}

// Up applies every pending step in version order.
func (r *Runner) Up(ctx context.Context) error {
	results, err := r.provider.Up(ctx)
	r.logResults(ctx, results)
	return r.wrapFailure(err)
}

// UpTo applies pending steps up to and including version.
func (r *Runner) UpTo(ctx context.Context, version int64) error {
	results, err := r.provider.UpTo(ctx, version)
	r.logResults(ctx, results)
	return r.wrapFailure(err)
}

// Down reverts the most recently applied step. Irreversible steps run their
// no-op down and only the ledger entry is removed.
func (r *Runner) Down(ctx context.Context) error {
	result, err := r.provider.Down(ctx)
	if result != nil {
		r.logResults(ctx, []*goose.MigrationResult{result})
	}
	return r.wrapFailure(err)
}

// Revert runs the down side of one specific applied step.
func (r *Runner) Revert(ctx context.Context, version int64) error {
	result, err := r.provider.ApplyVersion(ctx, version, false)
	if result != nil {
		r.logResults(ctx, []*goose.MigrationResult{result})
	}
	return r.wrapFailure(err)
}

// MigrateTo moves the schema up or down until version is current.
func (r *Runner) MigrateTo(ctx context.Context, version int64) error {
	current, err := r.Version(ctx)
	if err != nil {
		return err
	}
	switch {
	case current == version:
		return nil
	case current < version:
		return r.UpTo(ctx, version)
	default:
		results, err := r.provider.DownTo(ctx, version)
		r.logResults(ctx, results)
		return r.wrapFailure(err)
	}
}

// Version returns the highest applied step version (0 when none).
func (r *Runner) Version(ctx context.Context) (int64, error) {
	v, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return v, nil
}

// StepStatus pairs a step with its ledger state.
type StepStatus struct {
	Version int64
	Name    string
	Applied bool
}

// Status reports every registered step and whether it has been applied.
func (r *Runner) Status(ctx context.Context) ([]StepStatus, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	applied := make(map[int64]bool, len(statuses))
	for _, st := range statuses {
		applied[st.Source.Version] = st.State == goose.StateApplied
	}
	out := make([]StepStatus, 0, len(r.steps))
	for _, step := range r.steps {
		out = append(out, StepStatus{Version: step.Version, Name: step.Name, Applied: applied[step.Version]})
	}
	return out, nil
}

func (r *Runner) stepName(version int64) string {
	for _, step := range r.steps {
		if step.Version == version {
			return step.Name
		}
	}
	return "unknown"
}

func (r *Runner) logResults(ctx context.Context, results []*goose.MigrationResult) {
	if r.logg == nil {
		return
	}
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		fields := map[string]any{
			"version":     res.Source.Version,
			"name":        r.stepName(res.Source.Version),
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}
		entryCtx := r.logg.WithFields(ctx, fields)
		if res.Error != nil {
			r.logg.Error(entryCtx, "migration.failed", res.Error)
			continue
		}
		r.logg.Info(entryCtx, "migration.applied")
	}
}

// wrapFailure names the failed step. A failed step is never retried here:
// the deployment must stop and an operator has to inspect the schema.
func (r *Runner) wrapFailure(err error) error {
	if err == nil {
		return nil
	}
	var partial *goose.PartialError
	if errors.As(err, &partial) && partial.Failed != nil && partial.Failed.Source != nil {
		v := partial.Failed.Source.Version
		return fmt.Errorf("migration %05d_%s failed, manual intervention required: %w", v, r.stepName(v), err)
	}
	return fmt.Errorf("migrations: %w", err)
}
