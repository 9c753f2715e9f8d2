// Package sqlite implements the SQLite storage backend for the shoplist
// catalog. One database file holds the products table; the schema is created
// on first attach and the file is reused afterwards.
package sqlite

import (
	"database/sql"
	"net/url"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/shoplist/pkg/types"
)

// Compile-time interface check: Backend must implement Store.
var _ types.Store = (*Backend)(nil)

// pragmas travel in the DSN, so the driver runs them on every connection
// it opens.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

// dsn returns the driver data source name for the database file at path.
func dsn(path string) string {
	q := url.Values{"_pragma": pragmas}
	return path + "?" + q.Encode()
}

// Backend implements the Store interface on top of a single SQLite file.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	products *productsTable
	log      logrus.FieldLogger
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{
		log: logrus.StandardLogger(),
	}
}

// SetLogger replaces the logger used for lifecycle and failure messages.
func (b *Backend) SetLogger(log logrus.FieldLogger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if log != nil {
		b.log = log
	}
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, opens the database file, and creates
// the schema if absent. An existing database file is kept as is.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return &types.StorageError{Op: "create data dir", Err: err}
	}

	dbPath := config.DBPath()
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return &types.StorageError{Op: "open database", Err: err}
	}
	// Single process, single connection.
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return &types.StorageError{Op: "create schema", Err: err}
		}
	}

	b.db = db
	b.config = config
	b.products = &productsTable{backend: b}
	b.attached = true

	b.log.WithField("path", dbPath).Debug("product store attached")
	return nil
}

// Detach releases all resources held by the backend.
// Closes the SQLite connection. After Detach, all operations return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil // idempotent
	}

	b.attached = false
	b.products = nil

	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		if err != nil {
			return &types.StorageError{Op: "close database", Err: err}
		}
	}

	b.log.WithField("path", b.config.DBPath()).Debug("product store detached")
	return nil
}

// Products returns the product table.
// Returns ErrStoreDetached if the backend is not attached.
func (b *Backend) Products() (types.ProductTable, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.products, nil
}

// Path returns the database file path of the current configuration.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DBPath()
}

// opLogger returns a logger tagged with a fresh operation ID so that the
// lines of one store call can be correlated.
func (b *Backend) opLogger(op string) logrus.FieldLogger {
	return b.log.WithFields(logrus.Fields{
		"op":    op,
		"op_id": uuid.NewString(),
	})
}
