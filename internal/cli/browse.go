package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shoplist/internal/catalog"
	"github.com/mesh-intelligence/shoplist/internal/sqlite"
	"github.com/mesh-intelligence/shoplist/pkg/types"
)

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Search the list interactively",
		Long: `Browse reads queries from standard input, one per line, and prints the
matching products whenever the displayed list changes. A blank line shows
every product again. Lines starting with ':' are commands:

  :rm <id>   remove a displayed product (asks for confirmation)
  :total     print the total of the displayed products
  :reload    reload the list from the store
  :q         quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProducts(func(_ *sqlite.Backend, t types.ProductTable) error {
				return a.browse(cmd, t)
			})
		},
	}
}

func (a *app) browse(cmd *cobra.Command, store catalog.Store) error {
	out := &syncWriter{w: cmd.OutOrStdout()}
	in := bufio.NewScanner(cmd.InOrStdin())

	loop := catalog.NewLoop()
	defer loop.Close()

	cat := catalog.New(store, loop, catalog.Config{
		Debounce: a.settings.SearchDebounce,
		Workers:  a.settings.Workers,
		Notifier: catalog.NotifierFunc(func(title, message string) {
			fmt.Fprintf(out, "%s: %s\n", title, message)
		}),
		Logger: a.log,
	})
	defer cat.Close()

	cat.Subscribe(func(products []types.Product) { writeProducts(out, products) })
	cat.LoadAll()

	// settle makes the displayed list reflect everything typed so far.
	settle := func() {
		cat.Flush()
		loop.Sync()
	}
	confirm := promptConfirmer{in: in, out: out}

	for in.Scan() {
		line := in.Text()
		if !strings.HasPrefix(strings.TrimSpace(line), ":") {
			cat.OnQueryChanged(line)
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case ":q", ":quit":
			settle()
			return nil
		case ":total":
			settle()
			fmt.Fprintln(out, totalLine(cat.TotalOfDisplayed()))
		case ":reload":
			cat.LoadAll()
		case ":rm":
			if len(fields) != 2 {
				fmt.Fprintln(out, "usage: :rm <id>")
				continue
			}
			id, err := parseID(fields[1])
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			settle()
			p, ok := findProduct(cat.Displayed(), id)
			if !ok {
				fmt.Fprintf(out, "Product %d is not displayed\n", id)
				continue
			}
			if !cat.RequestDelete(p, confirm) {
				fmt.Fprintln(out, "Cancelled")
			}
		default:
			fmt.Fprintf(out, "unknown command %s (try :rm <id>, :total, :reload or :q)\n", fields[0])
		}
	}
	if err := in.Err(); err != nil {
		return sysError("read input: %w", err)
	}
	settle()
	return nil
}

func findProduct(products []types.Product, id int64) (types.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return types.Product{}, false
}
