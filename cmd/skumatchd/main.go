package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/skumatch/internal/cli"
	"github.com/cloo-solutions/skumatch/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "skumatchd",
		Short:        "skumatch collaborator services",
		Long:         "skumatchd serves PDF processing, catalog search and mapping storage, and manages the catalog",
		SilenceUsage: true,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.CatalogCmd())
	rootCmd.AddCommand(admin.MappingsCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if handled, err := cli.WriteHelpJSON(rootCmd, os.Args[1:], os.Stdout); handled {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
