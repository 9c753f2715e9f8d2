package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shoplist/internal/sqlite"
	"github.com/mesh-intelligence/shoplist/pkg/types"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write every product to a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProducts(func(b *sqlite.Backend, _ types.ProductTable) error {
				n, err := b.ExportJSONL(cmd.Context(), args[0])
				if err != nil {
					return storeError("export", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d products to %s\n", n, args[0])
				return nil
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add the products of a JSONL file to the list",
		Long: "Import adds every record of the file as a new product. IDs in the file\n" +
			"are ignored; malformed lines are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProducts(func(b *sqlite.Backend, _ types.ProductTable) error {
				n, err := b.ImportJSONL(cmd.Context(), args[0])
				if err != nil {
					return storeError("import", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d products from %s\n", n, args[0])
				return nil
			})
		},
	}
}
