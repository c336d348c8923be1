package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quadtile/stylemap/internal/catalog"
	"github.com/quadtile/stylemap/internal/ir"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect recorded evaluation passes",
	}

	cmd.AddCommand(newCatalogListCommand(rootOpts))
	cmd.AddCommand(newCatalogShowCommand(rootOpts))

	return cmd
}

// PassSummary is one row of catalog list output.
type PassSummary struct {
	Token     string `json:"token"`
	Theme     string `json:"theme"`
	CreatedAt string `json:"createdAt"`
}

func newCatalogListCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List recorded passes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			cat, err := openCatalog(formatter, dbPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			passes, err := cat.ListPasses(cmd.Context())
			if err != nil {
				formatter.Error(ErrCodeCatalog, err.Error(), nil)
				return Exit(ExitCommandError, "catalog read failed", err)
			}

			if rootOpts.Format == "json" {
				summaries := make([]PassSummary, len(passes))
				for i, p := range passes {
					summaries[i] = PassSummary{Token: p.Token, Theme: p.ThemeName, CreatedAt: p.CreatedAt}
				}
				return formatter.Success(summaries)
			}

			for _, p := range passes {
				fmt.Fprintf(formatter.Writer, "%s  %s  %s\n", p.Token, p.ThemeName, p.CreatedAt)
			}
			fmt.Fprintf(formatter.Writer, "%d pass(es)\n", len(passes))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "catalog database (required)")
	cmd.MarkFlagRequired("db")

	return cmd
}

func newCatalogShowCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "show <pass-token>",
		Short:         "Show one recorded pass",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			cat, err := openCatalog(formatter, dbPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			pass, err := cat.ReadPass(cmd.Context(), args[0])
			if errors.Is(err, catalog.ErrPassNotFound) {
				formatter.Error(ErrCodeNotFound, err.Error(), nil)
				return Exit(ExitCommandError, "pass not found", nil)
			}
			if err != nil {
				formatter.Error(ErrCodeCatalog, err.Error(), nil)
				return Exit(ExitCommandError, "catalog read failed", err)
			}

			if rootOpts.Format == "json" {
				feature, err := ir.MarshalCanonical(pass.Feature)
				if err != nil {
					formatter.Error(ErrCodeGeneric, err.Error(), nil)
					return Exit(ExitFailure, "marshal feature", err)
				}
				return formatter.Success(map[string]any{
					"token":      pass.Token,
					"theme":      pass.ThemeName,
					"createdAt":  pass.CreatedAt,
					"feature":    json.RawMessage(feature),
					"techniques": pass.Techniques,
				})
			}

			fmt.Fprintf(formatter.Writer, "pass %s (theme %s, %s)\n", pass.Token, pass.ThemeName, pass.CreatedAt)
			for _, d := range pass.Techniques {
				fmt.Fprintf(formatter.Writer, "  technique %d: %s style=%d order=%d\n", d.Index, d.Kind, d.StyleIndex, d.RenderOrder)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "catalog database (required)")
	cmd.MarkFlagRequired("db")

	return cmd
}

func newFormatter(rootOpts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
}

func openCatalog(formatter *OutputFormatter, path string) (*catalog.Catalog, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		formatter.Error(ErrCodeNotFound, fmt.Sprintf("catalog not found: %s", path), nil)
		return nil, Exit(ExitCommandError, "catalog not found", nil)
	}

	cat, err := catalog.Open(path)
	if err != nil {
		formatter.Error(ErrCodeCatalog, err.Error(), nil)
		return nil, Exit(ExitCommandError, "catalog open failed", err)
	}
	return cat, nil
}
