package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alanyang/prompt-vault/internal/domain/diff"
)

type diffResult struct {
	Stats diff.Stats  `json:"stats" yaml:"stats"`
	Lines []diff.Line `json:"lines" yaml:"lines"`
}

func newDiffCmd() *cobra.Command {
	var render bool

	cmd := &cobra.Command{
		Use:   "diff OLD_FILE NEW_FILE",
		Short: "Positional line diff of two files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldContent, newContent, err := readPair(args[0], args[1])
			if err != nil {
				return err
			}

			lines := diff.Calculate(oldContent, newContent)
			if render {
				s := diff.Summarize(lines)
				fmt.Fprintln(cmd.OutOrStdout(), diff.Render(lines))
				fmt.Fprintf(cmd.OutOrStdout(), "+%d -%d (%d unchanged)\n", s.Added, s.Removed, s.Unchanged)
				return nil
			}
			return output(cmd, diffResult{Stats: diff.Summarize(lines), Lines: lines})
		},
	}

	cmd.Flags().BoolVar(&render, "render", false, "print +/- text instead of structured output")
	return cmd
}

func readPair(oldPath, newPath string) (string, string, error) {
	oldData, err := os.ReadFile(oldPath)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", oldPath, err)
	}
	newData, err := os.ReadFile(newPath)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", newPath, err)
	}
	return string(oldData), string(newData), nil
}
