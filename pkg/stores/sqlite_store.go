package stores

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/openfroyo/rendercaps/pkg/archive"
	"github.com/openfroyo/rendercaps/pkg/caps"
	"github.com/openfroyo/rendercaps/pkg/script"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store and archive.Archive on SQLite.
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string        `yaml:"path" json:"path" validate:"required"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// NewSQLiteStore creates a new SQLite store. Call Init and Migrate before use.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	// Every connection to :memory: would get its own database.
	if cfg.Path == ":memory:" {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// Init opens the database and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs the embedded schema migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveSet encodes set under name and inserts or replaces the stored profile.
func (s *SQLiteStore) SaveSet(ctx context.Context, name, source string, set *caps.Set) (*Profile, error) {
	data, err := script.Marshal(name, set)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile %s: %w", name, err)
	}

	sum := sha256.Sum256(data)
	now := time.Now().UTC()
	p := &Profile{
		Name:      name,
		Source:    source,
		Script:    string(data),
		Checksum:  hex.EncodeToString(sum[:]),
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO profiles (name, source, script, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			source = excluded.source,
			script = excluded.script,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		p.Name,
		p.Source,
		p.Script,
		p.Checksum,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	return p, nil
}

// LoadSet decodes the stored profile name.
func (s *SQLiteStore) LoadSet(ctx context.Context, name string) (*caps.Set, error) {
	p, err := s.GetProfile(ctx, name)
	if err != nil {
		return nil, err
	}

	_, set, err := script.Unmarshal([]byte(p.Script), script.WithSource("sqlite:"+name))
	if err != nil {
		return nil, fmt.Errorf("stored profile %s is corrupt: %w", name, err)
	}
	return set, nil
}

// GetProfile retrieves a profile by name.
func (s *SQLiteStore) GetProfile(ctx context.Context, name string) (*Profile, error) {
	query := `
		SELECT name, source, script, checksum, created_at, updated_at
		FROM profiles
		WHERE name = ?
	`

	p := &Profile{}
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&p.Name,
		&p.Source,
		&p.Script,
		&p.Checksum,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}

// ListProfiles lists profiles whose source starts with sourcePrefix, by
// name. A limit of zero or less means no limit.
func (s *SQLiteStore) ListProfiles(ctx context.Context, sourcePrefix string, limit, offset int) ([]*Profile, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `
		SELECT name, source, script, checksum, created_at, updated_at
		FROM profiles
		WHERE ? = '' OR instr(source, ?) = 1
		ORDER BY name
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, sourcePrefix, sourcePrefix, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []*Profile{}
	for rows.Next() {
		p := &Profile{}
		err := rows.Scan(
			&p.Name,
			&p.Source,
			&p.Script,
			&p.Checksum,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

// DeleteProfile removes a profile.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return nil
}

// RecordImport stores the outcome of an import.
func (s *SQLiteStore) RecordImport(ctx context.Context, imp *Import) error {
	query := `
		INSERT INTO imports (id, source, loaded, failed, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		imp.ID,
		imp.Source,
		imp.Loaded,
		imp.Failed,
		imp.StartedAt,
		imp.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record import: %w", err)
	}

	return nil
}

// ListImports returns imports, most recent first.
func (s *SQLiteStore) ListImports(ctx context.Context, limit, offset int) ([]*Import, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `
		SELECT id, source, loaded, failed, started_at, completed_at
		FROM imports
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	defer rows.Close()

	imports := []*Import{}
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.Source, &imp.Loaded, &imp.Failed, &imp.StartedAt, &imp.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		imports = append(imports, imp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating imports: %w", err)
	}

	return imports, nil
}

// HealthCheck verifies the database is reachable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

// Type implements archive.Archive.
func (s *SQLiteStore) Type() string { return "sqlite" }

// List implements archive.Archive. The locator is a source path prefix;
// each stored profile is one resource located by its name.
func (s *SQLiteStore) List(ctx context.Context, locator string, recursive bool) ([]archive.Resource, error) {
	prefix := strings.Trim(locator, "/")
	if prefix == "." {
		prefix = ""
	}

	profiles, err := s.ListProfiles(ctx, prefix, 0, 0)
	if err != nil {
		return nil, err
	}

	var resources []archive.Resource
	for _, p := range profiles {
		rel := strings.TrimPrefix(p.Source, prefix)
		if prefix != "" && rel != "" {
			var ok bool
			if rel, ok = strings.CutPrefix(rel, "/"); !ok {
				continue // "caps" must not match "capsule/x"
			}
		}
		if !recursive && strings.Contains(rel, "/") {
			continue
		}

		name := rel
		switch {
		case p.Source == "":
			name = p.Name
		case name == "":
			name = path.Base(p.Source)
		}

		resources = append(resources, archive.Resource{
			Name:     name,
			Location: p.Name,
			Size:     int64(len(p.Script)),
			ModTime:  p.UpdatedAt,
		})
	}

	sort.Slice(resources, func(i, j int) bool { return resources[i].Location < resources[j].Location })
	return resources, nil
}

// Open implements archive.Archive.
func (s *SQLiteStore) Open(ctx context.Context, res archive.Resource) (io.ReadCloser, error) {
	p, err := s.GetProfile(ctx, res.Location)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(p.Script)), nil
}

var (
	_ Store           = (*SQLiteStore)(nil)
	_ archive.Archive = (*SQLiteStore)(nil)
)
