// This file implements the products table accessor for the SQLite backend.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	msqlite "modernc.org/sqlite"

	"github.com/mesh-intelligence/shoplist/pkg/types"
)

// Compile-time interface check: productsTable must implement ProductTable.
var _ types.ProductTable = (*productsTable)(nil)

// foldFuncName is the SQL function that case-folds text for search.
// SQLite's own lower() and LIKE only fold ASCII.
const foldFuncName = "fold"

func init() {
	if err := msqlite.RegisterDeterministicScalarFunction(foldFuncName, 1, foldSQL); err != nil {
		panic(fmt.Sprintf("registering %s: %v", foldFuncName, err))
	}
}

// foldSQL implements fold(x) for SQLite. NULL stays NULL; non-text values
// pass through unchanged.
func foldSQL(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return foldText(v), nil
	case []byte:
		return foldText(string(v)), nil
	default:
		return v, nil
	}
}

// foldText returns the Unicode case folding of s. A Caser is not safe for
// concurrent use, so one is built per call.
func foldText(s string) string {
	return cases.Fold().String(s)
}

// productsTable implements ProductTable for the products table.
// Each operation holds the backend read lock so that Detach cannot close the
// connection underneath it.
type productsTable struct {
	backend *Backend
}

// Insert stores p as a new row and writes the assigned ID back into p.
func (pt *productsTable) Insert(ctx context.Context, p *types.Product) (int64, error) {
	if p == nil {
		return 0, types.ErrInvalidData
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}

	b := pt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return 0, types.ErrStoreDetached
	}

	id, err := insertProduct(ctx, b.db, p)
	if err != nil {
		return 0, err
	}
	p.ID = id
	b.opLogger("insert").WithField("id", id).Debug("product inserted")
	return id, nil
}

// Update overwrites the mutable fields of the row with p.ID. A missing row is
// reported as ErrNotFound rather than silently ignored.
func (pt *productsTable) Update(ctx context.Context, p *types.Product) (int64, error) {
	if p == nil {
		return 0, types.ErrInvalidData
	}
	if p.ID <= 0 {
		return 0, types.ErrInvalidID
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}

	b := pt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return 0, types.ErrStoreDetached
	}

	res, err := b.db.ExecContext(ctx,
		"UPDATE products SET description = ?, quantity = ?, unit_price = ? WHERE id = ?",
		p.Description, p.Quantity, p.UnitPrice, p.ID,
	)
	if err != nil {
		return 0, storageError(ctx, "update product", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError(ctx, "update product", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("update product %d: %w", p.ID, types.ErrNotFound)
	}
	b.opLogger("update").WithField("id", p.ID).Debug("product updated")
	return n, nil
}

// Delete removes the row with the given ID. Deleting a missing row is not an
// error; the affected-row count is 0 in that case.
func (pt *productsTable) Delete(ctx context.Context, id int64) (int64, error) {
	b := pt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return 0, types.ErrStoreDetached
	}

	res, err := b.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return 0, storageError(ctx, "delete product", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError(ctx, "delete product", err)
	}
	b.opLogger("delete").WithFields(logrus.Fields{"id": id, "affected": n}).Debug("product deleted")
	return n, nil
}

// Get retrieves a product by ID.
func (pt *productsTable) Get(ctx context.Context, id int64) (*types.Product, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}

	b := pt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	row := b.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ?", id,
	)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get product %d: %w", id, types.ErrNotFound)
		}
		return nil, storageError(ctx, "get product", err)
	}
	return &p, nil
}

// ListAll returns every product ordered by ID.
func (pt *productsTable) ListAll(ctx context.Context) ([]types.Product, error) {
	b := pt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return listProducts(ctx, b.db)
}

// Search returns products whose description contains substring, comparing
// case-folded text. The substring is always a bound parameter and instr()
// has no wildcard characters, so quotes, % and _ match literally.
func (pt *productsTable) Search(ctx context.Context, substring string) ([]types.Product, error) {
	needle := foldText(substring)

	b := pt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	if needle == "" {
		return listProducts(ctx, b.db)
	}
	return queryProducts(ctx, b.db, "search products",
		"SELECT "+productColumns+" FROM products WHERE instr("+foldFuncName+"(description), ?) > 0 ORDER BY id",
		needle,
	)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertProduct inserts p through db or a transaction and returns the new ID.
func insertProduct(ctx context.Context, db execer, p *types.Product) (int64, error) {
	res, err := db.ExecContext(ctx,
		"INSERT INTO products (description, quantity, unit_price) VALUES (?, ?, ?)",
		p.Description, p.Quantity, p.UnitPrice,
	)
	if err != nil {
		return 0, storageError(ctx, "insert product", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageError(ctx, "insert product", err)
	}
	return id, nil
}

// listProducts returns all rows ordered by ID. The caller must hold the
// backend lock.
func listProducts(ctx context.Context, db *sql.DB) ([]types.Product, error) {
	return queryProducts(ctx, db, "list products",
		"SELECT "+productColumns+" FROM products ORDER BY id",
	)
}

// queryProducts runs a product SELECT and hydrates every row.
// Returns an empty slice, not nil, when nothing matches.
func queryProducts(ctx context.Context, db *sql.DB, op, query string, args ...any) ([]types.Product, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError(ctx, op, err)
	}
	defer rows.Close()

	results := []types.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, storageError(ctx, op, err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(ctx, op, err)
	}
	return results, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct converts one row into a Product. NULL columns hydrate to zero
// values.
func scanProduct(s rowScanner) (types.Product, error) {
	var (
		p        types.Product
		desc     sql.NullString
		qty, prc sql.NullFloat64
	)
	if err := s.Scan(&p.ID, &desc, &qty, &prc); err != nil {
		return types.Product{}, err
	}
	p.Description = desc.String
	p.Quantity = qty.Float64
	p.UnitPrice = prc.Float64
	return p, nil
}

// storageError classifies an engine failure. Failures caused by a cancelled
// or expired context become ErrCancelled; everything else is a StorageError.
func storageError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, types.ErrCancelled)
	}
	return &types.StorageError{Op: op, Err: err}
}
