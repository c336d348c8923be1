package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quadtile/stylemap"
	"github.com/quadtile/stylemap/internal/style"
)

// OrderEntry describes one leaf rule's resolved draw priority.
type OrderEntry struct {
	StyleIndex  int    `json:"styleIndex"`
	Technique   string `json:"technique"`
	RenderOrder int    `json:"renderOrder"`
	Explicit    bool   `json:"explicit,omitempty"`
	BiasGroup   string `json:"biasGroup,omitempty"`
	Final       bool   `json:"final,omitempty"`
}

// NewOrdersCommand creates the orders command.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders <theme-file>",
		Short: "Show resolved render orders for a theme",
		Long: `Compile a theme and print the render order assigned to each
technique-producing leaf rule, in style tree traversal order. Useful for
checking draw priority without evaluating any features.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrders(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runOrders(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	t, err := stylemap.LoadTheme(path)
	if err != nil {
		formatter.Error(ErrCodeTheme, err.Error(), nil)
		return Exit(ExitFailure, "theme validation failed", err)
	}

	eval, err := stylemap.NewEvaluator(t)
	if err != nil {
		formatter.Error(ErrCodeTheme, err.Error(), nil)
		return Exit(ExitFailure, "theme compilation failed", err)
	}

	entries := collectOrders(eval.Tree().Roots, nil)

	if opts.Format == "json" {
		return formatter.Success(entries)
	}

	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "style %d: %s order=%d", e.StyleIndex, e.Technique, e.RenderOrder)
		if e.Explicit {
			fmt.Fprint(formatter.Writer, " (explicit)")
		}
		if e.BiasGroup != "" {
			fmt.Fprintf(formatter.Writer, " group=%s", e.BiasGroup)
		}
		if e.Final {
			fmt.Fprint(formatter.Writer, " final")
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

// collectOrders walks the style tree in traversal order and collects
// technique-producing leaves.
func collectOrders(rules []*style.Rule, entries []OrderEntry) []OrderEntry {
	for _, r := range rules {
		if r.IsLeaf() {
			if r.Technique == "" || r.Technique == "none" {
				continue
			}
			entries = append(entries, OrderEntry{
				StyleIndex:  r.LeafIndex,
				Technique:   r.Technique,
				RenderOrder: r.RenderOrder,
				Explicit:    r.HasExplicitOrder,
				BiasGroup:   r.BiasGroup,
				Final:       r.Final,
			})
			continue
		}
		entries = collectOrders(r.Children, entries)
	}
	return entries
}
