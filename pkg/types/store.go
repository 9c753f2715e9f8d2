package types

import (
	"context"
	"errors"
)

// Store defines the lifecycle of a product storage backend. Callers attach
// to a backend, use the product table, and detach when done.
type Store interface {
	// Attach opens the backend described by config. Creates the data
	// directory and the schema if they do not exist. Returns
	// ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	// After Detach, table operations return ErrStoreDetached.
	Detach() error

	// Products returns the product table.
	// Returns ErrStoreDetached if the store is not attached.
	Products() (ProductTable, error)
}

// ProductTable provides durable CRUD and substring search over products.
type ProductTable interface {
	// Insert stores a new product, assigns it a fresh ID, writes the ID back
	// into p, and returns it.
	Insert(ctx context.Context, p *Product) (int64, error)

	// Update overwrites description, quantity, and unit price of the row
	// with p.ID. Returns the number of affected rows, or ErrNotFound when
	// no row has that ID.
	Update(ctx context.Context, p *Product) (int64, error)

	// Delete removes the row with the given ID and returns the number of
	// affected rows. Deleting a missing ID succeeds and returns 0.
	Delete(ctx context.Context, id int64) (int64, error)

	// Get returns the product with the given ID or ErrNotFound.
	Get(ctx context.Context, id int64) (*Product, error)

	// ListAll returns every product ordered by ID. An empty table yields an
	// empty, non-nil slice.
	ListAll(ctx context.Context) ([]Product, error)

	// Search returns products whose description contains substring,
	// ignoring case. An empty substring matches every product.
	Search(ctx context.Context, substring string) ([]Product, error)
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Table operation errors.
var (
	ErrNotFound    = errors.New("product not found")
	ErrInvalidID   = errors.New("invalid product ID")
	ErrInvalidData = errors.New("invalid product data")
	ErrStorage     = errors.New("storage failure")
	ErrCancelled   = errors.New("operation cancelled")
)
