// sqlanon rewrites a MySQL dump, replacing the values selected by a
// tree-sitter query with synthetic data.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	goerrors "github.com/go-errors/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/phobologic/sqlanon/internal/config"
	"github.com/phobologic/sqlanon/internal/directive"
	"github.com/phobologic/sqlanon/internal/lang"
	"github.com/phobologic/sqlanon/internal/logging"
	"github.com/phobologic/sqlanon/internal/model"
	"github.com/phobologic/sqlanon/internal/parse"
	"github.com/phobologic/sqlanon/internal/progress"
	"github.com/phobologic/sqlanon/internal/rewrite"
	"github.com/phobologic/sqlanon/internal/source"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		_, _ = color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
		_, _ = fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	// cobra falls back to os.Args for a nil slice.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		opts    config.Options
		cfgFile string
	)
	cmd := &cobra.Command{
		Use:   "sqlanon [flags] <input>",
		Short: "Anonymize a MySQL dump using tree-sitter queries",
		Long: `sqlanon parses a MySQL dump, runs a tree-sitter query over it and replaces
every value captured under a directive name (@email, @first_name, @order, ...)
with synthetic data. Everything else is copied byte for byte to stdout.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := config.LoadFile(cmd.Flags(), cfgFile)
			if err != nil {
				return err
			}
			opts.Input = args[0]
			if err := opts.Validate(); err != nil {
				return err
			}
			logger := logging.Init(opts.Level(), opts.LogFile, stderr)
			if opts.IsLogLevelDebugOrBelow() {
				for _, o := range overrides {
					logger.Debugf("--%s=%s set from %s", o.Flag, o.Value, cfgFile)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return anonymize(ctx, logger, opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.AddCommand(newInitCmd(stdout, stderr))

	fs := cmd.Flags()
	opts.RegisterFlags(fs)
	fs.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json) with defaults for the flags above")
	return cmd
}

// noMatches stands in for a query when none is given.
type noMatches struct{}

func (noMatches) Next() (model.Match, bool) { return model.Match{}, false }

func anonymize(ctx context.Context, logger *log.Entry, opts config.Options, stdout, stderr io.Writer) (err error) {
	f, err := os.Open(opts.Input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	src, err := source.New(f, opts.BufferSize)
	if err != nil {
		return err
	}
	logger.Infof("input %s: %s, buffer %s", opts.Input,
		humanize.Bytes(uint64(src.Size())), humanize.Bytes(uint64(src.BufferSize())))

	parser := lang.SQL.NewParser()
	defer parser.Close()
	tree, err := parse.Parse(ctx, parser, src)
	if err != nil {
		return err
	}
	defer tree.Close()
	root := tree.RootNode()

	tableQuery, err := lang.SQL.GetTableQuery()
	if err != nil {
		return err
	}
	tableMatcher, err := parse.NewMatcher(tableQuery)
	if err != nil {
		return err
	}
	tables, err := parse.BuildTextCache(tableMatcher, root, src)
	if err != nil {
		return err
	}

	var (
		matches rewrite.MatchSource = noMatches{}
		dirs    []directive.Directive
	)
	if opts.Query != "" {
		m, err := loadQuery(opts.Query)
		if err != nil {
			return err
		}
		var unknown []string
		dirs, unknown = directive.ForQuery(m.CaptureNames())
		if len(unknown) > 0 {
			if opts.Strict {
				return goerrors.Errorf("query %s: unknown directives %v. Valid directives = %v",
					opts.Query, unknown, lo.Map(directive.All(), func(d directive.Directive, _ int) string { return d.String() }))
			}
			logger.Warnf("query %s: captures %v are not directives and will be left unchanged", opts.Query, unknown)
		}
		cur := m.Exec(root, tables)
		defer cur.Close()
		matches = cur
	}

	out := bufio.NewWriterSize(stdout, src.BufferSize())
	defer func() {
		if ferr := out.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("writing output: %w", ferr)
		}
	}()

	if opts.Progress && isTerminal(stderr) {
		bar := progress.New(stderr, filepath.Base(opts.Input), src.Size())
		src.SetObserver(bar.Add)
		defer func() { bar.Finish(err == nil) }()
	}

	stats, err := rewrite.Run(ctx, rewrite.Options{
		Source:     src,
		Matches:    matches,
		Directives: dirs,
		Writer:     out,
		Faker:      gofakeit.New(opts.Seed),
	})
	if err != nil {
		return err
	}
	for _, d := range directive.All() {
		if n := stats.Counts[d]; n > 0 {
			logger.Debugf("@%s: %d values replaced", d, n)
		}
	}
	logger.Infof("replaced %d values (%s), copied %s", stats.Total(),
		humanize.Bytes(uint64(stats.Replaced)), humanize.Bytes(uint64(stats.Copied)))
	return nil
}

func loadQuery(path string) (*parse.Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query: %w", err)
	}
	q, err := lang.SQL.CompileQuery(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return parse.NewMatcher(q)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && progress.IsTerminal(f)
}
