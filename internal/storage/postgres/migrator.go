package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	migrationsDir   = "sql/migrations"
	migrationsTable = "schema_migrations"
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

// MigrationSource возвращает встроенный в бинарник источник миграций.
func MigrationSource() (source.Driver, error) {
	return iofs.New(migrationsFS, migrationsDir)
}

// newMigrator открывает отдельное подключение: migrate.Close закрывает и его.
func (s *Store) newMigrator() (*migrate.Migrate, error) {
	if s == nil || s.dsn == "" {
		return nil, fmt.Errorf("postgres store is not initialized")
	}

	src, err := MigrationSource()
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	db, err := sql.Open("pgx", s.dsn)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("open migration connection: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: migrationsTable})
	if err != nil {
		_ = src.Close()
		_ = db.Close()
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// runMigrator выполняет fn и останавливает миграции при отмене ctx.
func (s *Store) runMigrator(ctx context.Context, fn func(m *migrate.Migrate) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := s.newMigrator()
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	return fn(m)
}

// MigrateUp применяет up-миграции.
// steps=0 означает "применить все доступные".
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.runMigrator(ctx, func(m *migrate.Migrate) error {
		var err error
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		return nil
	})
}

// MigrateDown откатывает миграции.
// steps<=0 интерпретируется как 1 шаг для безопасного поведения.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.runMigrator(ctx, func(m *migrate.Migrate) error {
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		return nil
	})
}

// MigrationStatus возвращает текущую версию схемы и признак dirty.
// Для пустой базы возвращается версия 0.
func (s *Store) MigrationStatus(ctx context.Context) (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := s.runMigrator(ctx, func(m *migrate.Migrate) error {
		var err error
		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			version, dirty = 0, false
			return nil
		}
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("migration status: %w", err)
	}
	return version, dirty, nil
}
