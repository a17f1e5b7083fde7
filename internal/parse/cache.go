package parse

import (
	"fmt"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/sqlanon/internal/model"
	"github.com/phobologic/sqlanon/internal/source"
)

// TextResolver returns the raw text of a node identified by its span.
type TextResolver interface {
	Text(span model.Span) ([]byte, bool)
}

// TextCache holds the raw text of selected nodes so predicates can be
// evaluated after the source cursor has moved on. It is keyed by span: a
// node's text depends on nothing but its byte range.
type TextCache struct {
	texts map[model.Span][]byte
	bytes int
}

// NewTextCache returns an empty cache.
func NewTextCache() *TextCache {
	return &TextCache{texts: make(map[model.Span][]byte)}
}

// Text implements TextResolver.
func (c *TextCache) Text(span model.Span) ([]byte, bool) {
	t, ok := c.texts[span]
	return t, ok
}

// Len returns the number of cached nodes.
func (c *TextCache) Len() int {
	return len(c.texts)
}

// Put stores text for span unless the span is already cached. It reports
// whether the text was stored.
func (c *TextCache) Put(span model.Span, text []byte) bool {
	if _, ok := c.texts[span]; ok {
		return false
	}
	c.texts[span] = text
	c.bytes += len(text)
	return true
}

// BuildTextCache runs query over root and reads the text of every captured
// node from src. The source is rewound to the start afterwards.
func BuildTextCache(query *Matcher, root *sitter.Node, src *source.Source) (*TextCache, error) {
	cache := NewTextCache()

	cur := query.Exec(root, nil)
	defer cur.Close()

	for {
		match, ok := cur.Next()
		if !ok {
			break
		}
		for _, c := range match.Captures {
			if _, seen := cache.Text(c.Span); seen {
				continue
			}
			if err := src.SeekTo(int64(c.Span.Start)); err != nil {
				return nil, fmt.Errorf("caching text of %s: %w", c.Span, err)
			}
			text, err := src.ReadExact(c.Span.Len())
			if err != nil {
				return nil, fmt.Errorf("caching text of %s: %w", c.Span, err)
			}
			cache.Put(c.Span, text)
		}
	}

	if err := src.Rewind(); err != nil {
		return nil, fmt.Errorf("rewinding input: %w", err)
	}
	log.Debugf("cached text of %d nodes (%s)", cache.Len(), humanize.Bytes(uint64(cache.bytes)))
	return cache, nil
}
