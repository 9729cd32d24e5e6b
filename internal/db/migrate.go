package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-bloodbank/internal/config"
	"github.com/diewo77/go-bloodbank/internal/models"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Tables the console cannot run without.
var requiredTables = []string{"console_sessions", "stock_thresholds", "audit_entries"}

// Models migrated by AutoMigrate when SQL migrations are off.
var autoMigrated = []any{
	&models.ConsoleSession{},
	&models.StockThreshold{},
	&models.AuditEntry{},
}

var passwordRe = regexp.MustCompile(`(password=)([^\s]+)`)

// Options tune ConnectAndMigrate.
type Options struct {
	Retries    int
	RetryDelay time.Duration
}

// ConnectAndMigrate opens the console database, applies the schema and seeds
// default thresholds when asked.
func ConnectAndMigrate(ctx context.Context, cfg config.DatabaseConfig, opts Options) (*gorm.DB, error) {
	if opts.Retries <= 0 {
		opts.Retries = 10
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	dsn := cfg.DSN
	if cfg.Driver == "postgres" {
		dsn = NormalizeDSN(dsn)
	}
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is empty, check the environment")
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error
	for i := 0; i < opts.Retries; i++ {
		db, err = open(cfg.Driver, dsn, gcfg)
		if err == nil {
			break
		}
		slog.WarnContext(ctx, "retrying database connection", "attempt", i+1, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := db.WithContext(ctx).Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	slog.InfoContext(ctx, "database connected", "driver", cfg.Driver, "dsn", MaskDSN(dsn))

	if cfg.Migrations && cfg.Driver == "postgres" {
		if err := RunSQLMigrations(ToURLDSN(dsn)); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range autoMigrated {
			if err := db.AutoMigrate(m); err != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}

	for _, table := range requiredTables {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if cfg.Seed {
		if err := Seed(ctx, db); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return db, nil
}

func open(driver, dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), cfg)
	}
	return nil, fmt.Errorf("unsupported driver %q", driver)
}

// RunSQLMigrations applies the embedded SQL migrations with golang-migrate.
// dsn must be in URL form.
func RunSQLMigrations(dsn string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// MaskDSN hides the password of a key=value or URL DSN for logging.
func MaskDSN(dsn string) string {
	if strings.Contains(dsn, "password=") {
		return passwordRe.ReplaceAllString(dsn, `${1}***`)
	}
	if i := strings.Index(dsn, "://"); i >= 0 {
		if at := strings.LastIndex(dsn, "@"); at > i {
			creds := dsn[i+3 : at]
			if c := strings.Index(creds, ":"); c >= 0 {
				return dsn[:i+3] + creds[:c] + ":***" + dsn[at:]
			}
		}
	}
	return dsn
}
