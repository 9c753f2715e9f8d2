package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shoplist/internal/paths"
	"github.com/mesh-intelligence/shoplist/internal/sqlite"
	"github.com/mesh-intelligence/shoplist/pkg/types"
)

// attachBackend resolves the data directory, creates a SQLite backend, and
// attaches it. The caller must Detach the returned backend.
func (a *app) attachBackend() (*sqlite.Backend, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.settings.DataDir)
	if err != nil {
		return nil, sysError("resolve data dir: %w", err)
	}

	backend := sqlite.NewBackend()
	backend.SetLogger(a.log)
	if err := backend.Attach(a.settings.storeConfig(dataDir)); err != nil {
		if errors.Is(err, types.ErrStorage) {
			return nil, sysError("attach store: %w", err)
		}
		return nil, userError("attach store: %w", err)
	}
	return backend, nil
}

// withProducts attaches the store, runs fn with its product table and
// detaches again.
func (a *app) withProducts(fn func(b *sqlite.Backend, t types.ProductTable) error) error {
	backend, err := a.attachBackend()
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Detach(); err != nil {
			a.log.WithError(err).Warn("detach store")
		}
	}()

	table, err := backend.Products()
	if err != nil {
		return sysError("products: %w", err)
	}
	return fn(backend, table)
}

// storeError classifies a product table error as a user or system error.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrCancelled),
		errors.Is(err, fs.ErrNotExist):
		return userError("%s: %w", op, err)
	default:
		return sysError("%s: %w", op, err)
	}
}

// parseID parses a product ID argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, userError("invalid product id %q", arg)
	}
	return id, nil
}

// formatAmount renders a money amount with two decimals.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// totalLine is the sentence printed under every product listing.
func totalLine(total float64) string {
	return "The total is " + formatAmount(total)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return sysError("encode json: %w", err)
	}
	return nil
}

// writeProducts prints products as an aligned table followed by the total.
func writeProducts(w io.Writer, products []types.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDESCRIPTION\tQTY\tPRICE\tTOTAL")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			p.ID, p.Description, formatNumber(p.Quantity), formatAmount(p.UnitPrice), formatAmount(p.Total()))
	}
	tw.Flush()
	fmt.Fprintln(w, totalLine(types.SumTotals(products)))
}

// outputProducts prints products in the mode selected by --json.
func (a *app) outputProducts(cmd *cobra.Command, products []types.Product) error {
	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), products)
	}
	writeProducts(cmd.OutOrStdout(), products)
	return nil
}

// promptConfirmer asks a yes/no question on out and reads the answer from in.
// Anything but "y" or "yes" declines, including end of input.
type promptConfirmer struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p promptConfirmer) Confirm(title, message string) bool {
	fmt.Fprintf(p.out, "%s %s [y/N] ", title, message)
	if !p.in.Scan() {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(p.in.Text())) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// syncWriter serializes writes from the UI loop and the input goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
