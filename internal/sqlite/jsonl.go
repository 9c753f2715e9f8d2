// This file provides JSONL export and import of the product catalog with
// atomic persistence.
package sqlite

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/shoplist/pkg/types"
)

// productRecord is the JSONL line format for products. ID is written on
// export and ignored on import.
type productRecord struct {
	ID          int64   `json:"id,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// ExportJSONL writes every product to path, one JSON object per line, and
// returns the number of records written. The file is replaced atomically.
func (b *Backend) ExportJSONL(ctx context.Context, path string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return 0, types.ErrStoreDetached
	}

	products, err := listProducts(ctx, b.db)
	if err != nil {
		return 0, err
	}

	records := make([]json.RawMessage, 0, len(products))
	for _, p := range products {
		data, err := json.Marshal(productRecord{
			ID:          p.ID,
			Description: p.Description,
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice,
		})
		if err != nil {
			return 0, fmt.Errorf("marshaling product %d: %w", p.ID, err)
		}
		records = append(records, data)
	}

	if err := writeJSONL(path, records); err != nil {
		return 0, &types.StorageError{Op: "export products", Err: err}
	}
	b.opLogger("export").WithFields(logrus.Fields{"path": path, "count": len(records)}).Info("products exported")
	return len(records), nil
}

// ImportJSONL inserts every product found in the JSONL file at path as a new
// row, inside one transaction, and returns the number imported. Malformed
// lines and records with non-finite numbers are skipped. IDs in the file are
// ignored; the store assigns fresh ones.
func (b *Backend) ImportJSONL(ctx context.Context, path string) (int, error) {
	raw, err := readJSONL(path)
	if err != nil {
		return 0, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return 0, types.ErrStoreDetached
	}

	log := b.opLogger("import").WithField("path", path)

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageError(ctx, "begin import", err)
	}
	defer tx.Rollback()

	imported := 0
	for i, line := range raw {
		var rec productRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			log.WithField("record", i).Warn("skipping record: not a product")
			continue
		}
		p := types.Product{
			Description: rec.Description,
			Quantity:    rec.Quantity,
			UnitPrice:   rec.UnitPrice,
		}
		if err := p.Validate(); err != nil {
			log.WithField("record", i).Warn("skipping record: invalid numbers")
			continue
		}
		if _, err := insertProduct(ctx, tx, &p); err != nil {
			return 0, err
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, storageError(ctx, "commit import", err)
	}
	log.WithField("count", imported).Info("products imported")
	return imported, nil
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail(fmt.Errorf("writing record: %w", err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(fmt.Errorf("writing newline: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
