package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quadtile/stylemap"
	"github.com/quadtile/stylemap/internal/catalog"
	"github.com/quadtile/stylemap/internal/ir"
)

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand(rootOpts *RootOptions) *cobra.Command {
	var featuresPath string
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "evaluate <theme-file>",
		Short: "Evaluate a theme against a feature batch",
		Long: `Evaluate a theme against a batch of features and print the
deduplicated techniques the passes produced.

Features are read from a YAML file with one record per feature:

    features:
      - geometryType: line
        layer: roads
        level: 10
        attrs:
          surface-color: "#204080"

With --catalog, each pass is additionally recorded in a SQLite catalog
for later inspection with the catalog subcommands.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(rootOpts, args[0], featuresPath, catalogPath, cmd)
		},
	}

	cmd.Flags().StringVar(&featuresPath, "features", "", "features file (required)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "record passes to this catalog database")
	cmd.MarkFlagRequired("features")

	return cmd
}

func runEvaluate(opts *RootOptions, themePath, featuresPath, catalogPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	t, err := stylemap.LoadTheme(themePath)
	if err != nil {
		formatter.Error(ErrCodeTheme, err.Error(), nil)
		return Exit(ExitFailure, "theme validation failed", err)
	}

	features, err := LoadFeatures(featuresPath)
	if err != nil {
		formatter.Error(ErrCodeFeatures, err.Error(), nil)
		return Exit(ExitCommandError, "features load failed", err)
	}

	eval, err := stylemap.NewEvaluator(t)
	if err != nil {
		formatter.Error(ErrCodeTheme, err.Error(), nil)
		return Exit(ExitFailure, "theme compilation failed", err)
	}

	var cat *catalog.Catalog
	if catalogPath != "" {
		cat, err = catalog.Open(catalogPath)
		if err != nil {
			formatter.Error(ErrCodeCatalog, err.Error(), nil)
			return Exit(ExitCommandError, "catalog open failed", err)
		}
		defer cat.Close()
	}

	for i, feat := range features {
		matched, err := eval.MatchingTechniques(feat.Env)
		if err != nil {
			formatter.Error(ErrCodeEvaluation, err.Error(), map[string]any{"feature": i})
			return Exit(ExitFailure, "evaluation failed", err)
		}
		formatter.VerboseLog("feature %d matched %d technique(s)", i, len(matched))

		if cat != nil {
			decoded := make([]stylemap.Decoded, len(matched))
			for j, m := range matched {
				decoded[j] = m.Decode()
			}
			token, err := cat.RecordPass(cmd.Context(), t.Name, feat.Desc, decoded)
			if err != nil {
				formatter.Error(ErrCodeCatalog, err.Error(), map[string]any{"feature": i})
				return Exit(ExitCommandError, "pass recording failed", err)
			}
			formatter.VerboseLog("feature %d recorded as pass %s", i, token)
		}
	}

	return outputTechniques(formatter, eval.DecodedTechniques())
}

// outputTechniques prints the decoded technique list. JSON output uses
// canonical serialization so identical runs are byte-identical.
func outputTechniques(f *OutputFormatter, techniques []stylemap.Decoded) error {
	if f.Format == "json" {
		lines := make([]json.RawMessage, len(techniques))
		for i, d := range techniques {
			raw, err := ir.MarshalCanonical(d.Canonical())
			if err != nil {
				f.Error(ErrCodeGeneric, err.Error(), nil)
				return Exit(ExitFailure, "marshal technique", err)
			}
			lines[i] = json.RawMessage(raw)
		}
		return f.Success(lines)
	}

	for _, d := range techniques {
		fmt.Fprintf(f.Writer, "technique %d: %s style=%d order=%d", d.Index, d.Kind, d.StyleIndex, d.RenderOrder)
		if len(d.Attrs) > 0 {
			raw, err := ir.MarshalCanonical(d.Attrs)
			if err == nil {
				fmt.Fprintf(f.Writer, " attrs=%s", raw)
			}
		}
		if len(d.Curves) > 0 {
			fmt.Fprintf(f.Writer, " curves=%d", len(d.Curves))
		}
		fmt.Fprintln(f.Writer)
	}
	fmt.Fprintf(f.Writer, "%d technique(s)\n", len(techniques))
	return nil
}
