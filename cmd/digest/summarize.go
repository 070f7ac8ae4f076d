package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/digest/internal/config"
	"github.com/jackzampolin/digest/internal/engine"
	"github.com/jackzampolin/digest/internal/ingest"
	"github.com/jackzampolin/digest/internal/metrics"
	"github.com/jackzampolin/digest/internal/providers"
	"github.com/jackzampolin/digest/internal/summarize"
)

var (
	summarizeUntil    string
	summarizeProvider string
	summarizeModel    string
	summarizeStrategy string
	summarizeSave     bool
	summarizeOut      string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Summarize a book chapter by chapter",
	Long: `Summarize an EPUB or plain text book chapter by chapter.

Progress is printed to stderr; the finished digest goes to stdout, to --out,
or into the home exports directory with --save. Ctrl+C cancels the run and
prints the chapters summarized so far.

Examples:
  digest summarize book.epub
  digest summarize book.epub --until "Chapter 5"
  digest summarize notes.md --provider openai --model gpt-4o-mini --save`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeUntil, "until", "", "Stop after the chapter with this title")
	summarizeCmd.Flags().StringVar(&summarizeProvider, "provider", "", "LLM provider (config default when empty)")
	summarizeCmd.Flags().StringVar(&summarizeModel, "model", "", "Model override")
	summarizeCmd.Flags().StringVar(&summarizeStrategy, "context-strategy", "", "Context strategy: replace or accumulate")
	summarizeCmd.Flags().BoolVar(&summarizeSave, "save", false, "Save the digest to the home exports directory")
	summarizeCmd.Flags().StringVar(&summarizeOut, "out", "", "Write the digest to this file instead of stdout")

	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cm, h, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := cm.Get()

	doc, err := ingest.Open(args[0])
	if err != nil {
		return err
	}

	summarizer, err := newSummarizer(cfg, summarizeProvider, summarizeModel)
	if err != nil {
		return err
	}

	strategyName := summarizeStrategy
	if strategyName == "" {
		strategyName = cfg.Summarize.ContextStrategy
	}
	strategy, err := engine.ParseContextStrategy(strategyName)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	eng, err := engine.New(engine.Config{
		Chapters:     doc.Chapters,
		Summarizer:   summarizer,
		StopTarget:   summarizeUntil,
		TOC:          doc.TOC,
		Strategy:     strategy,
		MaxAttempts:  cfg.Summarize.MaxAttempts,
		InitialDelay: cfg.Summarize.InitialDelay,
		OnChapter: func(r engine.Record) {
			metrics.ObserveChapter(true)
			fmt.Fprintf(stderr, "summarized: %s\n", r.Title)
		},
		OnSkip: func(index int) {
			metrics.ObserveChapter(false)
		},
		OnRetry: func(index, attempt int, err error) {
			fmt.Fprintf(stderr, "retrying chapter %d (attempt %d): %v\n", index+1, attempt+1, err)
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "Summarizing %q (%d chapters)\n", doc.Title, len(doc.Chapters))
	stop := reportProgress(stderr, eng, cfg.Summarize.ProgressInterval)
	result, runErr := eng.Run(ctx)
	stop()

	if runErr != nil {
		if result != "" {
			fmt.Fprintf(stderr, "\n%d chapters summarized before stopping:\n\n", len(eng.Records()))
			fmt.Fprintln(cmd.OutOrStdout(), result)
		}
		if summarize.IsCancelled(runErr) {
			fmt.Fprintln(stderr, "cancelled")
		}
		return runErr
	}

	if summarizeSave {
		path, err := h.SaveExport(doc.Title, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Saved to %s\n", path)
	}
	if summarizeOut != "" {
		if err := os.WriteFile(summarizeOut, []byte(result), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", summarizeOut, err)
		}
		fmt.Fprintf(stderr, "Wrote %s\n", summarizeOut)
		return nil
	}
	if !summarizeSave {
		fmt.Fprintln(cmd.OutOrStdout(), result)
	}
	return nil
}

// newSummarizer builds an LLM summarizer for the named provider, falling
// back to the configured defaults.
func newSummarizer(cfg *config.Config, providerName, model string) (*summarize.LLM, error) {
	if providerName == "" {
		providerName = cfg.Summarize.Provider
	}
	if model == "" {
		model = cfg.Summarize.Model
	}

	registry := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig())
	client, err := registry.GetLLM(providerName)
	if err != nil {
		return nil, fmt.Errorf("provider %q is not available (enabled with an API key: %v): %w",
			providerName, registry.ListLLM(), err)
	}

	return summarize.NewLLM(summarize.LLMConfig{
		Client:      client,
		Model:       model,
		Temperature: cfg.Summarize.Temperature,
		MaxTokens:   cfg.Summarize.MaxTokens,
		Recorder:    metrics.LLM,
		Logger:      logger,
	})
}

// reportProgress prints the engine's progress every interval until stop is called.
func reportProgress(w io.Writer, eng *engine.Engine, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = config.DefaultProgressInterval
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := -1
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if cursor := eng.Cursor(); cursor != last {
					last = cursor
					fmt.Fprintf(w, "progress: %d/%d (%.0f%%)\n", cursor, eng.Total(), eng.Progress()*100)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
