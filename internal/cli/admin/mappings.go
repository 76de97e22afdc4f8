package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/skumatch/internal/domain"
	"github.com/cloo-solutions/skumatch/internal/repository"
	"github.com/cloo-solutions/skumatch/internal/service"
)

func MappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect saved mappings",
	}

	cmd.AddCommand(MappingsListCmd())

	return cmd
}

func MappingsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved query to product mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			outputFormat, _ := cmd.Flags().GetString("output")

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			mappingSvc := service.NewMappingService(repository.NewMappingRepository(pool), nil, "")
			entries, err := mappingSvc.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list mappings: %w", err)
			}
			return printMappings(cmd.OutOrStdout(), outputFormat, entries)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func printMappings(w io.Writer, outputFormat string, entries []*domain.MappingEntry) error {
	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(entries))
		for i, e := range entries {
			data[i] = map[string]interface{}{
				"query":        e.Query,
				"product_name": e.ProductName,
				"updated_at":   e.UpdatedAt,
			}
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No mappings found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUERY\tPRODUCT\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Query, e.ProductName, e.UpdatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}
