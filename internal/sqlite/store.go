// Package sqlite implements the SQLite storage layer for the Facets
// custom-fields service: the field catalog, the schema registry, label
// schema bindings, and the field value store.
//
// All cross-entity references are declared in the DDL with an explicit
// per-edge policy (ON DELETE CASCADE or ON DELETE SET NULL), so removal of
// a field or schema is atomic with respect to every dependent row without
// loading dependents into memory first.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/facets/pkg/types"
)

// Store provides access to the facets database. Open it with a Config and
// close it when done; operations on a closed store return ErrStoreClosed.
type Store struct {
	mu   sync.RWMutex
	open bool
	db   *sql.DB
	path string
}

// NewStore creates an unopened Store. Call Open with a Config to initialize.
func NewStore() *Store {
	return &Store{}
}

// Open initializes the store: creates the data directory if needed, opens
// the SQLite database, enables foreign key enforcement, and applies the
// schema. Returns ErrAlreadyOpen if called while already open.
func (s *Store) Open(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return types.ErrAlreadyOpen
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	dbPath := filepath.Join(dataDir, "facets.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	// Cascade and set-null edges only work with FK enforcement on.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("applying schema: %w", err)
	}

	s.db = db
	s.path = dbPath
	s.open = true
	return nil
}

// Close releases the database connection. Idempotent: closing a closed
// store succeeds. After Close, all operations return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
		s.db = nil
	}
	s.open = false
	return nil
}

// Path returns the database file path, for diagnostics.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// conn returns the live database handle or ErrStoreClosed.
func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, types.ErrStoreClosed
	}
	return s.db, nil
}

// newID generates a UUID v7 for entity IDs, falling back to v4 if the
// clock-based generation fails.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// timeFormat is the canonical timestamp encoding in the database. The
// fixed-width fraction keeps lexicographic order equal to chronological
// order, which ORDER BY created_at relies on.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// placeholders renders n comma-separated SQL placeholders for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// isUniqueViolation reports whether the driver error is a UNIQUE constraint
// failure, the storage-level guard behind duplicate-name and lost-update
// detection.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
