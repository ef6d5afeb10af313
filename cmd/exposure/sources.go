package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/codeGROOVE-dev/exposure/pkg/source"
)

//nolint:gochecknoglobals // Cobra boilerplate
var category string

//nolint:gochecknoglobals // Cobra boilerplate
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the catalogs in the source directory",
	Long: `List every catalog in the configured directory with its category, severity,
owning company and whether it can be a projection target.

Example:
  exposure sources
  exposure sources --category people-search`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.Flags().StringVar(&category, "category", "", "only list sources in this category")
}

func runSources(cmd *cobra.Command, _ []string) error {
	c := source.Category(strings.ToLower(strings.TrimSpace(category)))
	if c != "" && !c.Valid() {
		names := make([]string, 0, len(source.Categories()))
		for _, k := range source.Categories() {
			names = append(names, string(k))
		}
		return fmt.Errorf("unknown category %q (want one of: %s)", category, strings.Join(names, ", "))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	g, err := loadGraph(cmd.Context(), cfg, newLogger(cfg))
	if err != nil {
		return fmt.Errorf("load directory: %w", err)
	}
	return writeSources(cmd.OutOrStdout(), g, c)
}

func writeSources(w io.Writer, g *source.Graph, only source.Category) error {
	title := cases.Title(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tCATEGORY\tSEVERITY\tPARENT\tTARGET") //nolint:errcheck // flushed below
	for _, s := range g.Sources() {
		if only != "" && s.Category != only {
			continue
		}
		target := "yes"
		if reason, excluded := g.Excluded(s.Key); excluded {
			target = "no (" + reason + ")"
		}
		parent := s.Parent
		if parent == "" {
			parent = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", //nolint:errcheck // flushed below
			s.Key, s.Name, title.String(strings.ReplaceAll(string(s.Category), "-", " ")),
			g.Severity(s.Key), parent, target)
	}
	return tw.Flush()
}
