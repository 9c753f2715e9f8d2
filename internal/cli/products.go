package cli

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shoplist/internal/catalog"
	"github.com/mesh-intelligence/shoplist/internal/sqlite"
	"github.com/mesh-intelligence/shoplist/pkg/types"
)

func newAddCmd(a *app) *cobra.Command {
	var p types.Product

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product to the list",
		Example: `  shoplist add --description "Arroz integral" --quantity 2 --price 3.50
  shoplist add -d Café -q 1 -p 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := p.Validate(); err != nil {
				return userError("add product: %w", err)
			}
			return a.withProducts(func(_ *sqlite.Backend, t types.ProductTable) error {
				id, err := t.Insert(cmd.Context(), &p)
				if err != nil {
					return storeError("add product", err)
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), p)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added product %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&p.Description, "description", "d", "", "product description")
	cmd.Flags().Float64VarP(&p.Quantity, "quantity", "q", 0, "quantity to buy")
	cmd.Flags().Float64VarP(&p.UnitPrice, "price", "p", 0, "unit price")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var edit types.Product

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the description, quantity or price of a product",
		Long:  "Edit loads the product, applies only the flags given on the command line and saves it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withProducts(func(_ *sqlite.Backend, t types.ProductTable) error {
				p, err := t.Get(cmd.Context(), id)
				if err != nil {
					return storeError("edit product", err)
				}

				flags := cmd.Flags()
				if flags.Changed("description") {
					p.Description = edit.Description
				}
				if flags.Changed("quantity") {
					p.Quantity = edit.Quantity
				}
				if flags.Changed("price") {
					p.UnitPrice = edit.UnitPrice
				}

				if _, err := t.Update(cmd.Context(), p); err != nil {
					return storeError("edit product", err)
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), p)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated product %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&edit.Description, "description", "d", "", "new description")
	cmd.Flags().Float64VarP(&edit.Quantity, "quantity", "q", 0, "new quantity")
	cmd.Flags().Float64VarP(&edit.UnitPrice, "price", "p", 0, "new unit price")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withProducts(func(_ *sqlite.Backend, t types.ProductTable) error {
				p, err := t.Get(cmd.Context(), id)
				if err != nil {
					return storeError("show product", err)
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), p)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:          %d\n", p.ID)
				fmt.Fprintf(out, "Description: %s\n", p.Description)
				fmt.Fprintf(out, "Quantity:    %s\n", formatNumber(p.Quantity))
				fmt.Fprintf(out, "Unit price:  %s\n", formatAmount(p.UnitPrice))
				fmt.Fprintf(out, "Total:       %s\n", formatAmount(p.Total()))
				return nil
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a product from the list",
		Long: "Delete asks for confirmation before removing the product. Deleting a\n" +
			"product that does not exist succeeds without changing anything.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.withProducts(func(_ *sqlite.Backend, t types.ProductTable) error {
				p, err := t.Get(cmd.Context(), id)
				if errors.Is(err, types.ErrNotFound) {
					fmt.Fprintf(out, "Product %d does not exist; nothing to delete\n", id)
					return nil
				}
				if err != nil {
					return storeError("delete product", err)
				}

				if !yes {
					confirm := promptConfirmer{in: bufio.NewScanner(cmd.InOrStdin()), out: out}
					if !confirm.Confirm(catalog.TitleConfirm, fmt.Sprintf("Remove %s?", p.Description)) {
						fmt.Fprintln(out, "Cancelled")
						return nil
					}
				}

				if _, err := t.Delete(cmd.Context(), id); err != nil {
					return storeError("delete product", err)
				}
				fmt.Fprintf(out, "Deleted product %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking for confirmation")
	return cmd
}
