package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/skumatch/internal/cli"
	"github.com/cloo-solutions/skumatch/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "skumatch",
		Short: "skumatch - match invoice line items to catalog products",
		Long: `skumatch uploads invoices for processing, shows catalog candidates for each
line item and saves the chosen matches.

Environment variables:
  SKUMATCH_PROCESS_URL      PDF processing service (default: http://localhost:5001)
  SKUMATCH_SEARCH_URL       Search and save service (default: http://localhost:5000)
  SKUMATCH_REQUEST_TIMEOUT  Timeout per collaborator request (default: 60s)
  SKUMATCH_PORT             UI port (default: 8090)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.MatchCmd())
	rootCmd.AddCommand(client.UICmd())

	if handled, err := cli.WriteHelpJSON(rootCmd, os.Args[1:], os.Stdout); handled {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
