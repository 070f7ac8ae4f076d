package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/digest/internal/retry"
	"github.com/jackzampolin/digest/internal/summarize"
)

var (
	skimQuery    string
	skimProvider string
	skimModel    string
)

var skimCmd = &cobra.Command{
	Use:   "skim <file|->",
	Short: "Condense text to the passages relevant to a query",
	Long: `Skim condenses a text file (or stdin with "-") for a query, replacing
less relevant passages with [...].

Examples:
  digest skim chapter.txt --query "What happens to the ship?"
  cat notes.md | digest skim - --query "deadlines"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if skimQuery == "" {
			return fmt.Errorf("--query is required")
		}

		text, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		cm, _, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := cm.Get()

		s, err := newSummarizer(cfg, skimProvider, skimModel)
		if err != nil {
			return err
		}

		out, err := retry.Do(ctx, func(ctx context.Context) (string, error) {
			return s.Skim(ctx, text, skimQuery)
		},
			retry.Attempts(cfg.Summarize.MaxAttempts),
			retry.InitialDelay(cfg.Summarize.InitialDelay),
			retry.If(summarize.IsTransient),
		)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	skimCmd.Flags().StringVarP(&skimQuery, "query", "q", "", "What to look for (required)")
	skimCmd.Flags().StringVar(&skimProvider, "provider", "", "LLM provider (config default when empty)")
	skimCmd.Flags().StringVar(&skimModel, "model", "", "Model override")

	rootCmd.AddCommand(skimCmd)
}

func readInput(stdin io.Reader, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
