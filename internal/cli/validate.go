package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quadtile/stylemap"
)

// ValidationResult holds validation results for a theme document.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Theme  string `json:"theme,omitempty"`
	Styles int    `json:"styles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <theme-file>",
		Short: "Validate a theme without evaluating it",
		Long: `Validate a theme document without evaluating it.

Checks document structure against the theme schema, verifies technique
kinds, and resolves definition references. Faster than a full evaluation
for editing feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		formatter.Error(ErrCodeNotFound, fmt.Sprintf("theme file not found: %s", path), nil)
		return Exit(ExitCommandError, "theme file not found", nil)
	}

	t, err := stylemap.LoadTheme(path)
	if err != nil {
		formatter.Error(ErrCodeTheme, err.Error(), nil)
		return Exit(ExitFailure, "theme validation failed", err)
	}

	formatter.VerboseLog("Theme %q: %d top-level styles", t.Name, len(t.Styles))

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Theme: t.Name, Styles: len(t.Styles)})
	}
	return formatter.Success(fmt.Sprintf("theme %s is valid (%d top-level styles)", path, len(t.Styles)))
}
