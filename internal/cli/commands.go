package cli

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/docnarrative/internal/analyzer"
)

var textCmd = &cobra.Command{
	Use:   "text [file]",
	Short: "Print the normalized text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := analyzeFile(args[0], false)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, map[string]any{"title": res.Title, "text": res.Text})
		}
		cmd.Println(res.Text)
		return nil
	},
}

var sentencesCmd = &cobra.Command{
	Use:   "sentences [file]",
	Short: "Print one sentence per line with its offsets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := analyzeFile(args[0], false)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, res.Sentences)
		}
		for _, s := range res.Sentences {
			cmd.Printf("[%d,%d) %s\n", s.Start, s.End, s.Text)
		}
		return nil
	},
}

var tokensCmd = &cobra.Command{
	Use:   "tokens [file]",
	Short: "Print every token with its kind and stopword flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := analyzeFile(args[0], true)
		if err != nil {
			return err
		}
		var toks []analyzer.Token
		for _, s := range res.Sentences {
			toks = append(toks, s.Tokens...)
		}
		if jsonOutput {
			return printJSON(cmd, toks)
		}
		for _, t := range toks {
			stop := ""
			if t.Stopword {
				stop = "\tstopword"
			}
			cmd.Printf("%d\t%d\t%s\t%s%s\n", t.Start, t.End, t.Kind, t.Text, stop)
		}
		return nil
	},
}

var wordsCmd = &cobra.Command{
	Use:   "words [file]",
	Short: "Print the word stream: content words and math placeholders",
	Long: `Prints the document as a single line of lowercased non-stopword words,
with math placeholders kept, for doc2vec-style training input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := analyzeFile(args[0], false)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, map[string]any{"title": res.Title, "words": res.WordStream()})
		}
		cmd.Println(res.WordStream())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(textCmd, sentencesCmd, tokensCmd, wordsCmd)
}
