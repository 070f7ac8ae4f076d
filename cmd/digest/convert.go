package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/digest/internal/api"
	"github.com/jackzampolin/digest/internal/ingest"
)

var convertOut string

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Extract the title, chapters, and table of contents from a book",
	Long: `Convert reads an EPUB or plain text book and prints its title, chapter
texts, and table of contents in the selected output format.

Examples:
  digest convert book.epub
  digest convert book.epub -o json --out book.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := ingest.Open(args[0])
		if err != nil {
			return err
		}
		if convertOut != "" {
			return api.OutputToFile(doc, convertOut)
		}
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), doc)
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertOut, "out", "", "Write the document to this file instead of stdout")

	rootCmd.AddCommand(convertCmd)
}
