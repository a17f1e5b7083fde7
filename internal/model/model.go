// Package model defines core data structures for sqlanon.
package model

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Span is a half-open byte range [Start, End) in the input dump.
type Span struct {
	Start uint32
	End   uint32
}

// SpanOf returns the byte range covered by a tree-sitter node.
func SpanOf(node *sitter.Node) Span {
	return Span{Start: node.StartByte(), End: node.EndByte()}
}

// Len returns the number of bytes in the span.
func (s Span) Len() int {
	return int(s.End - s.Start)
}

func (s Span) String() string {
	return fmt.Sprintf("[%d, %d)", s.Start, s.End)
}

// Capture is a single (label, node) pair produced by a query match.
type Capture struct {
	Index uint32
	Name  string
	Span  Span
	Node  *sitter.Node
}

// Match is one pattern hit with its captures in cursor order.
type Match struct {
	Pattern  uint16
	Captures []Capture
}
