package main

import (
	"fmt"

	"github.com/spf13/cobra"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

// requireVersion rejects malformed input up front; the engine itself would
// silently fall back to the initial version.
func requireVersion(s string) error {
	if !domainprompt.IsValidVersion(s) {
		return fmt.Errorf("invalid version %q (want vMAJOR.MINOR.PATCH)", s)
	}
	return nil
}

func parseChangeType(s string) (domainprompt.ChangeType, error) {
	switch ct := domainprompt.ChangeType(s); ct {
	case domainprompt.ChangeMajor, domainprompt.ChangeMinor, domainprompt.ChangePatch:
		return ct, nil
	default:
		return "", fmt.Errorf("invalid change type %q (want major, minor or patch)", s)
	}
}

func newBumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bump VERSION CHANGE_TYPE",
		Short: "Print the version that follows VERSION for a change type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireVersion(args[0]); err != nil {
				return err
			}
			ct, err := parseChangeType(args[1])
			if err != nil {
				return err
			}
			return output(cmd, map[string]string{
				"current":     args[0],
				"change_type": string(ct),
				"next":        domainprompt.GenerateVersion(args[0], ct),
				"description": domainprompt.DescribeChange(ct),
			})
		},
	}
}

type classifyResult struct {
	ChangeType  domainprompt.ChangeType `json:"change_type" yaml:"change_type"`
	ChangeRatio float64                 `json:"change_ratio" yaml:"change_ratio"`
	TitleChange bool                    `json:"title_changed" yaml:"title_changed"`
	Next        string                  `json:"next,omitempty" yaml:"next,omitempty"`
}

func newClassifyCmd() *cobra.Command {
	var oldTitle, newTitle, from string

	cmd := &cobra.Command{
		Use:   "classify OLD_FILE NEW_FILE",
		Short: "Classify an edit as a major, minor or patch change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if from != "" {
				if err := requireVersion(from); err != nil {
					return err
				}
			}
			oldContent, newContent, err := readPair(args[0], args[1])
			if err != nil {
				return err
			}

			ct := domainprompt.DetectChangeType(oldContent, newContent, oldTitle, newTitle)
			res := classifyResult{
				ChangeType:  ct,
				ChangeRatio: domainprompt.ChangeRatio(oldContent, newContent),
				TitleChange: oldTitle != newTitle,
			}
			if from != "" {
				res.Next = domainprompt.GenerateVersion(from, ct)
			}
			return output(cmd, res)
		},
	}

	cmd.Flags().StringVar(&oldTitle, "old-title", "", "title before the edit")
	cmd.Flags().StringVar(&newTitle, "new-title", "", "title after the edit")
	cmd.Flags().StringVar(&from, "from", "", "current version; prints the bumped version too")
	return cmd
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare A B",
		Short: "Compare two versions (-1, 0 or 1)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, v := range args {
				if err := requireVersion(v); err != nil {
					return err
				}
			}
			c := domainprompt.CompareVersions(args[0], args[1])
			relation := "equal"
			switch {
			case c < 0:
				relation = "older"
			case c > 0:
				relation = "newer"
			}
			return output(cmd, map[string]any{
				"a":        args[0],
				"b":        args[1],
				"result":   c,
				"relation": relation,
			})
		},
	}
}

func newSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest VERSION",
		Short: "Print the next major, minor and patch versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireVersion(args[0]); err != nil {
				return err
			}
			return output(cmd, domainprompt.SuggestNextVersions(args[0]))
		},
	}
}
