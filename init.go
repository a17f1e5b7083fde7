package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/sqlanon/internal/directive"
)

const (
	sentinelStart = "; sqlanon:start"
	sentinelEnd   = "; sqlanon:end"
)

const defaultQueryPath = "anonymize.scm"

// newInitCmd implements `sqlanon init`, which writes (or updates) a directive
// reference block in a query file.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "init [path-to-query.scm]",
		Short: "Write a directive reference block to a query file",
		Long: `Write a commented reference of all directives to a query file. The block is
wrapped in sentinel comments so it can be updated in place on subsequent runs
without touching the patterns around it. Creates the file if it does not exist.

path-to-query.scm defaults to ./` + defaultQueryPath + `.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			section := generateSection()

			// --dry-run with no path: just print the section itself.
			if dryRun && len(args) == 0 {
				_, _ = fmt.Fprintln(stdout, section)
				return nil
			}

			path := defaultQueryPath
			if len(args) > 0 {
				path = args[0]
			}

			existing, _ := os.ReadFile(path)
			updated := applySection(string(existing), section)

			if dryRun {
				_, _ = fmt.Fprint(stdout, updated)
				return nil
			}

			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			_, _ = fmt.Fprintf(stderr, "wrote directive reference to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// generateSection returns the sentinel-wrapped directive reference. Every line
// is a query comment, so the block never adds patterns.
func generateSection() string {
	var sb strings.Builder
	sb.WriteString(sentinelStart + "\n")
	sb.WriteString(";\n")
	sb.WriteString("; Capture a node under a directive name to replace its text:\n")
	sb.WriteString(";\n")
	for _, d := range directive.All() {
		fmt.Fprintf(&sb, ";   @%-16s %s\n", d, d.Description())
	}
	sb.WriteString(";\n")
	sb.WriteString("; Other capture names are left unchanged; start helper captures with _.\n")
	sb.WriteString("; Restrict a pattern to one table with a predicate on the table name:\n")
	sb.WriteString(";\n")
	sb.WriteString(";   ((insert\n")
	sb.WriteString(";      (object_reference name: (identifier) @_table)\n")
	sb.WriteString(";      (list (literal) @_id (literal) @email))\n")
	sb.WriteString(";    (#eq? @_table \"users\"))\n")
	sb.WriteString(";\n")
	sb.WriteString(sentinelEnd)
	return sb.String()
}

// applySection puts section at the head of a query file. An existing block
// is replaced where it stands; the patterns around it are kept verbatim.
func applySection(query, section string) string {
	if head, rest, ok := strings.Cut(query, sentinelStart); ok {
		if _, tail, ok := strings.Cut(rest, sentinelEnd); ok {
			return head + section + tail
		}
	}
	if strings.TrimSpace(query) == "" {
		return section + "\n"
	}
	return section + "\n\n" + query
}
