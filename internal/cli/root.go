// Package cli implements the dnm command line tool.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docnarrative/internal/analyzer"
	"github.com/dgallion1/docnarrative/internal/config"
	"github.com/dgallion1/docnarrative/internal/dnm"
	"github.com/dgallion1/docnarrative/internal/parser"
)

var (
	profilePath string
	mathMode    string
	language    string
	rootXPath   string
	jsonOutput  bool
	checkDNM    bool
	pdftotext   bool
)

var rootCmd = &cobra.Command{
	Use:   "dnm",
	Short: "Normalize documents into text with node back-mapping",
	Long: `dnm linearizes HTML, XML, Markdown, PDF, DOCX, CSV and plain text
documents into normalized text, splits it into sentences and tokens, and
marks stopwords. Every offset maps back to the document tree.`,
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&profilePath, "profile", "p", "", "TOML analysis profile")
	f.StringVar(&mathMode, "math-mode", "", "math rendering: remove, placeholder or unicode")
	f.StringVarP(&language, "lang", "l", "", "stopword language (default from profile)")
	f.StringVar(&rootXPath, "xpath", "", "XPath selecting the subtree to normalize")
	f.BoolVar(&jsonOutput, "json", false, "output as JSON")
	f.BoolVar(&checkDNM, "check", false, "verify the offset mapping before printing")
	f.BoolVar(&pdftotext, "pdftotext", false, "fall back to pdftotext for PDF input")
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.Execute()
}

// analyzeFile runs the full pipeline over the file at path using the
// persistent flags.
func analyzeFile(path string, includeTokens bool) (*analyzer.Result, error) {
	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		return nil, err
	}
	an, err := analyzer.New(profile.Options(nil))
	if err != nil {
		return nil, err
	}

	p, err := parser.ForFile(path, parser.Options{FallbackPdftotext: pdftotext})
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tree, err := p.Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	req := analyzer.Request{Tree: tree, Language: language, IncludeTokens: includeTokens}
	if rootXPath != "" {
		if req.Root, err = parser.SelectOne(tree, rootXPath); err != nil {
			return nil, err
		}
	}
	if mathMode != "" {
		m, err := dnm.ParseMathMode(mathMode)
		if err != nil {
			return nil, err
		}
		req.MathMode = &m
	}

	res, err := an.Analyze(req)
	if err != nil {
		return nil, err
	}
	if checkDNM {
		if err := res.DNM.Check(); err != nil {
			return nil, fmt.Errorf("offset mapping check failed: %w", err)
		}
	}
	return res, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
