package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/skumatch/internal/domain"
	"github.com/cloo-solutions/skumatch/internal/repository"
	"github.com/cloo-solutions/skumatch/internal/service"
)

func CatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the product catalog",
		Long:  "Import products and inspect the catalog that line items are matched against",
	}

	cmd.AddCommand(CatalogImportCmd())
	cmd.AddCommand(CatalogShowCmd())

	return cmd
}

func CatalogImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import products from a YAML or JSON file",
		Long: `Import a list of products ({id, name, barcode, unit}) from a YAML or JSON file.
Existing products are updated. New or renamed products are embedded by the
running server's embedding worker.`,
		Args: cobra.ExactArgs(1),
		RunE: runCatalogImport,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}
	products, err := service.ParseCatalog(args[0], data)
	if err != nil {
		return err
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	catalogSvc := service.NewCatalogService(repository.NewProductRepository(pool), repository.NewTxRunner(pool))
	result, err := catalogSvc.Import(ctx, products)
	if err != nil {
		return fmt.Errorf("failed to import catalog: %w", err)
	}

	return printImportResult(cmd.OutOrStdout(), outputFormat, result)
}

func printImportResult(w io.Writer, outputFormat string, result *service.ImportResult) error {
	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(map[string]int{
			"imported": result.Imported,
			"skipped":  result.Skipped,
		}, "", "  ")
		fmt.Fprintln(w, string(jsonBytes))
		return nil
	}

	fmt.Fprintf(w, "Imported %d products", result.Imported)
	if result.Skipped > 0 {
		fmt.Fprintf(w, " (%d skipped: id and name are required)", result.Skipped)
	}
	fmt.Fprintln(w)
	return nil
}

func CatalogShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			outputFormat, _ := cmd.Flags().GetString("output")

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			catalogSvc := service.NewCatalogService(repository.NewProductRepository(pool), nil)
			p, err := catalogSvc.GetProduct(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get product: %w", err)
			}

			w := cmd.OutOrStdout()
			if outputFormat == "json" {
				jsonBytes, _ := json.MarshalIndent(p, "", "  ")
				fmt.Fprintln(w, string(jsonBytes))
				return nil
			}
			fmt.Fprintf(w, "%s: %s\n", p.ID, p.Name)
			fmt.Fprintf(w, "  barcode:   %s\n", domain.OrNotAvailable(p.Barcode))
			fmt.Fprintf(w, "  unit:      %s\n", domain.OrNotAvailable(p.Unit))
			fmt.Fprintf(w, "  embedded:  %t\n", len(p.Embedding) > 0)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}
