// Package parse builds tree-sitter trees from a byte source and runs pattern
// queries over them.
package parse

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/sqlanon/internal/model"
	"github.com/phobologic/sqlanon/internal/source"
)

// Parse builds a syntax tree by letting the parser pull byte windows from src
// at whatever offsets it needs. Malformed input still yields a best-effort
// tree; only read failures and cancellation are errors.
func Parse(ctx context.Context, parser *sitter.Parser, src *source.Source) (*sitter.Tree, error) {
	if src.Size() > math.MaxUint32 {
		return nil, fmt.Errorf("input is %d bytes, parser offsets are limited to %d", src.Size(), uint32(math.MaxUint32))
	}

	tree, err := parser.ParseInputCtx(ctx, nil, sitter.Input{
		Read: func(offset uint32, _ sitter.Point) []byte {
			return src.Window(offset)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}
	if err := src.Err(); err != nil {
		tree.Close()
		return nil, fmt.Errorf("parsing input: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		log.Warnf("input has syntax errors; matching continues on the recovered tree")
	}
	log.Debugf("parsed %d bytes into %d top-level nodes", src.Size(), root.ChildCount())
	return tree, nil
}

// Cursor iterates the matches of one query execution.
type Cursor struct {
	m     *Matcher
	qc    *sitter.QueryCursor
	texts TextResolver
}

// Exec starts the query at root. texts resolves node text for predicates and
// may be nil when the query has none.
func (m *Matcher) Exec(root *sitter.Node, texts TextResolver) *Cursor {
	qc := sitter.NewQueryCursor()
	qc.Exec(m.query, root)
	return &Cursor{m: m, qc: qc, texts: texts}
}

// Next returns the next match whose predicates hold, in cursor order.
func (c *Cursor) Next() (model.Match, bool) {
	for {
		qm, ok := c.qc.NextMatch()
		if !ok {
			return model.Match{}, false
		}
		if !c.m.satisfies(qm, c.texts) {
			continue
		}

		match := model.Match{
			Pattern:  qm.PatternIndex,
			Captures: make([]model.Capture, 0, len(qm.Captures)),
		}
		for _, qcap := range qm.Captures {
			match.Captures = append(match.Captures, model.Capture{
				Index: qcap.Index,
				Name:  c.m.names[qcap.Index],
				Span:  model.SpanOf(qcap.Node),
				Node:  qcap.Node,
			})
		}
		return match, true
	}
}

// Close releases the underlying query cursor.
func (c *Cursor) Close() {
	c.qc.Close()
}
