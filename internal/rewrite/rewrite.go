// Package rewrite streams the input to the output, replacing the spans
// selected by directive captures and copying everything else verbatim.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/phobologic/sqlanon/internal/directive"
	"github.com/phobologic/sqlanon/internal/model"
	"github.com/phobologic/sqlanon/internal/source"
)

// ErrOutOfOrder is returned when a directive capture starts before the end of
// the previously rewritten span.
var ErrOutOfOrder = errors.New("capture is out of order")

// MatchSource yields query matches in document order.
type MatchSource interface {
	Next() (model.Match, bool)
}

type Options struct {
	Source *source.Source
	// Matches must yield captures whose Index is valid for Directives.
	Matches    MatchSource
	Directives []directive.Directive
	Writer     io.Writer
	Faker      *gofakeit.Faker
}

// Stats summarizes one run.
type Stats struct {
	Copied   int64
	Replaced int64
	Counts   map[directive.Directive]int
	Inert    int
}

// Total returns the number of replaced spans.
func (s Stats) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Run rewrites opts.Source into opts.Writer. The source must be positioned at
// the start of input. Output already written when an error occurs is not
// retracted.
func Run(ctx context.Context, opts Options) (Stats, error) {
	stats := Stats{Counts: make(map[directive.Directive]int)}
	src := opts.Source
	if src.Position() != 0 {
		if err := src.Rewind(); err != nil {
			return stats, err
		}
	}

	var cursor uint32
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		match, ok := opts.Matches.Next()
		if !ok {
			break
		}
		for _, c := range match.Captures {
			d := directiveFor(opts.Directives, c.Index)
			if d == directive.None {
				stats.Inert++
				continue
			}
			if c.Span.Start < cursor {
				return stats, fmt.Errorf("@%s %s starts before offset %d: %w", c.Name, c.Span, cursor, ErrOutOfOrder)
			}
			if gap := int64(c.Span.Start - cursor); gap > 0 {
				if err := src.CopyN(opts.Writer, gap); err != nil {
					return stats, err
				}
				stats.Copied += gap
			}
			if err := directive.Apply(d, c.Span, src, opts.Writer, opts.Faker); err != nil {
				return stats, err
			}
			log.Tracef("replaced @%s %s", c.Name, c.Span)
			stats.Replaced += int64(c.Span.Len())
			stats.Counts[d]++
			cursor = c.Span.End
		}
	}

	n, err := src.CopyRemaining(opts.Writer)
	stats.Copied += n
	if err != nil {
		return stats, err
	}
	log.Debugf("rewrite done: %d spans replaced (%s), %s copied, %d inert captures",
		stats.Total(), humanize.Bytes(uint64(stats.Replaced)), humanize.Bytes(uint64(stats.Copied)), stats.Inert)
	return stats, nil
}

func directiveFor(dirs []directive.Directive, index uint32) directive.Directive {
	if int(index) >= len(dirs) {
		return directive.None
	}
	return dirs[index]
}
