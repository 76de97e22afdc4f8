package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/skumatch/internal/config"
	"github.com/cloo-solutions/skumatch/internal/domain"
	"github.com/cloo-solutions/skumatch/internal/remote"
	"github.com/cloo-solutions/skumatch/internal/session"
)

// MatchCmd creates the match command.
func MatchCmd() *cobra.Command {
	var selections []string

	cmd := &cobra.Command{
		Use:   "match <file.pdf>",
		Short: "Match an invoice's line items to catalog products",
		Long: `Uploads a PDF invoice for processing, searches the catalog for each extracted
line item and saves the chosen matches.

Without --select, each line item is prompted for on stdin: enter a candidate
number, or press Enter to skip it. With --select, matches are chosen by name:

  skumatch match invoice.pdf --select "Widget A=Widget A Deluxe"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadUI()
			if err != nil {
				return err
			}
			cfg.ApplyFlags(cmd.Flags())
			outputJSON, _ := cmd.Flags().GetBool("output")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer f.Close()

			client := remote.NewClient(remote.Config{
				ProcessURL: cfg.ProcessURL,
				SearchURL:  cfg.SearchURL,
				Timeout:    cfg.RequestTimeout,
			})
			m := newMatcher(client, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			return m.run(cmd.Context(), filepath.Base(args[0]), f, selections, outputJSON)
		},
	}

	config.RegisterCollaboratorFlags(cmd.Flags())
	cmd.Flags().StringArrayVarP(&selections, "select", "s", nil, `Choose a match as "query=product name" (repeatable)`)

	return cmd
}

// matcher drives a session.Controller from a terminal.
type matcher struct {
	ctrl   *session.Controller
	in     *bufio.Scanner
	out    io.Writer
	errOut io.Writer
}

func newMatcher(remote session.Collaborators, in io.Reader, out, errOut io.Writer) *matcher {
	notifier := session.NotifierFunc(func(n session.Notification) {
		prefix := "✓"
		if n.Level == session.LevelError {
			prefix = "✗"
		}
		fmt.Fprintf(errOut, "%s %s\n", prefix, n.Message)
	})

	return &matcher{
		ctrl:   session.NewController(uuid.New().String(), remote, notifier),
		in:     bufio.NewScanner(in),
		out:    out,
		errOut: errOut,
	}
}

func (m *matcher) run(ctx context.Context, name string, r io.Reader, selections []string, outputJSON bool) error {
	if err := m.ctrl.HandleFile(ctx, name, r); err != nil {
		return err
	}

	view := m.ctrl.View()
	if len(view.Rows) == 0 {
		fmt.Fprintln(m.errOut, "No line items found.")
		return nil
	}

	if !outputJSON {
		printTable(m.out, view)
	}

	if len(selections) > 0 {
		if err := m.applySelections(ctx, selections); err != nil {
			return err
		}
	} else if err := m.prompt(ctx); err != nil {
		return err
	}

	mapping := m.ctrl.Selections()
	if !outputJSON {
		fmt.Fprintln(m.out)
		printTable(m.out, m.ctrl.View())
	}

	if err := m.ctrl.Confirm(ctx); err != nil {
		return err
	}

	if outputJSON {
		enc := json.NewEncoder(m.out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(mapping)
	}
	fmt.Fprintf(m.out, "Saved %d mappings.\n", len(mapping))
	return nil
}

// applySelections applies "query=name" pairs. Every row whose query matches
// gets the named candidate.
func (m *matcher) applySelections(ctx context.Context, selections []string) error {
	rows := m.ctrl.View().Rows

	for _, sel := range selections {
		query, name, ok := strings.Cut(sel, "=")
		if !ok || strings.TrimSpace(query) == "" {
			return fmt.Errorf("invalid selection %q: expected query=name", sel)
		}

		found := false
		for _, row := range rows {
			if row.Query != query {
				continue
			}
			choice, ok := choiceByLabel(row, name)
			if !ok {
				return fmt.Errorf("no candidate %q for %q", name, query)
			}
			if err := m.ctrl.SelectMatch(ctx, row.Index, choice); err != nil {
				return err
			}
			found = true
		}
		if !found {
			return fmt.Errorf("no line item %q", query)
		}
	}
	return nil
}

// prompt asks for a candidate per row. Input ending early leaves the
// remaining rows unselected.
func (m *matcher) prompt(ctx context.Context) error {
	for _, row := range m.ctrl.View().Rows {
		candidates := len(row.Options) - 1
		if candidates == 0 {
			fmt.Fprintf(m.out, "\n[%d] %s: no candidates\n", row.Index+1, row.Query)
			continue
		}

		fmt.Fprintf(m.out, "\n[%d] %s (%s)\n", row.Index+1, row.Query, row.SKU)
		for _, opt := range row.Options[1:] {
			fmt.Fprintf(m.out, "  %d) %s\n", opt.Choice+1, opt.Label)
		}

		for {
			fmt.Fprintf(m.out, "Choice [1-%d, Enter to skip]: ", candidates)
			if !m.in.Scan() {
				return m.in.Err()
			}
			line := strings.TrimSpace(m.in.Text())
			if line == "" {
				break
			}
			n, err := strconv.Atoi(line)
			if err != nil || n < 1 || n > candidates {
				fmt.Fprintf(m.errOut, "✗ %s\n", domain.ErrChoiceOutOfRange.Message)
				continue
			}
			if err := m.ctrl.SelectMatch(ctx, row.Index, n-1); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

func choiceByLabel(row session.Row, label string) (int, bool) {
	for _, opt := range row.Options {
		if opt.Choice != session.NoSelection && opt.Label == label {
			return opt.Choice, true
		}
	}
	return 0, false
}

func printTable(w io.Writer, view session.View) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(view.Header, "\t"))
	for _, row := range view.Rows {
		match := "-"
		for _, opt := range row.Options {
			if opt.Selected && opt.Choice != session.NoSelection {
				match = opt.Label
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.Query, row.SKU, row.Barcode, row.Unit, match)
	}
	tw.Flush()
}
