package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shoplist/internal/catalog"
	"github.com/mesh-intelligence/shoplist/internal/sqlite"
	"github.com/mesh-intelligence/shoplist/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every product with the total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProducts(func(_ *sqlite.Backend, t types.ProductTable) error {
				products, err := t.ListAll(cmd.Context())
				if err != nil {
					return storeError("list products", err)
				}
				return a.outputProducts(cmd, products)
			})
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <text>",
		Short: "List products whose description contains text",
		Long: "Search matches text anywhere in the description, ignoring case and\n" +
			"surrounding whitespace. A blank text lists every product.",
		Example: `  shoplist search arroz
  shoplist search "INTEG"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := catalog.NormalizeQuery(args[0])
			return a.withProducts(func(_ *sqlite.Backend, t types.ProductTable) error {
				products, err := t.Search(cmd.Context(), query)
				if err != nil {
					return storeError("search products", err)
				}
				return a.outputProducts(cmd, products)
			})
		},
	}
}

func newTotalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "total [text]",
		Short: "Print what the list, or the products matching text, will cost",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = catalog.NormalizeQuery(args[0])
			}
			return a.withProducts(func(_ *sqlite.Backend, t types.ProductTable) error {
				products, err := t.Search(cmd.Context(), query)
				if err != nil {
					return storeError("total", err)
				}
				total := types.SumTotals(products)
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), map[string]any{
						"query":    query,
						"products": len(products),
						"total":    total,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), totalLine(total))
				return nil
			})
		},
	}
}
