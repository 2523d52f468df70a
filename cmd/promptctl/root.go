package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newRootCmd builds a fresh command tree so flag state never leaks between
// invocations in tests.
func newRootCmd() *cobra.Command {
	var outputFormat string

	rootCmd := &cobra.Command{
		Use:   "promptctl",
		Short: "Offline tools for prompt versions and diffs",
		Long: `promptctl runs the prompt-vault version and diff engines locally,
without a server.

Examples:
  promptctl diff old.md new.md          # Line diff with stats
  promptctl bump v1.2.3 minor           # Next version for a change type
  promptctl classify old.md new.md      # Which change type an edit is
  promptctl compare v1.10.0 v1.9.0      # Order two versions
  promptctl suggest v2.0.0              # Next major, minor and patch`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case "yaml", "json":
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want yaml or json)", outputFormat)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	rootCmd.AddCommand(
		newDiffCmd(),
		newBumpCmd(),
		newClassifyCmd(),
		newCompareCmd(),
		newSuggestCmd(),
	)
	return rootCmd
}

// output writes data to the command's stdout in the --output format.
func output(cmd *cobra.Command, data any) error {
	format, _ := cmd.Flags().GetString("output")
	return outputTo(cmd.OutOrStdout(), format, data)
}

func outputTo(w io.Writer, format string, data any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
