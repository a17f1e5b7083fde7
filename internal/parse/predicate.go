package parse

import (
	"bytes"
	"fmt"
	"regexp"

	log "github.com/sirupsen/logrus"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/sqlanon/internal/lang"
	"github.com/phobologic/sqlanon/internal/model"
)

// Matcher is a compiled query together with its text predicates. The Go
// binding reports predicates but leaves their evaluation to the caller.
type Matcher struct {
	query      *sitter.Query
	names      []string
	predicates [][]predicate // indexed by pattern
}

type predicate struct {
	op      string
	negate  bool
	capture uint32

	// exactly one of the operand forms below is used, depending on op
	other  *uint32
	values [][]byte
	re     *regexp.Regexp
}

// NewMatcher prepares q for execution, validating the arguments of the text
// predicates it understands. Unknown predicate operators are ignored.
func NewMatcher(q *sitter.Query) (*Matcher, error) {
	m := &Matcher{
		query:      q,
		names:      lang.CaptureNames(q),
		predicates: make([][]predicate, q.PatternCount()),
	}

	for i := range m.predicates {
		for _, raw := range q.PredicatesForPattern(uint32(i)) {
			steps := withoutDone(raw)
			if len(steps) == 0 {
				continue
			}
			p, ok, err := m.compile(steps)
			if err != nil {
				return nil, fmt.Errorf("pattern %d: %w", i, err)
			}
			if ok {
				m.predicates[i] = append(m.predicates[i], p)
			}
		}
	}
	return m, nil
}

// CaptureNames returns the query's capture names indexed by capture id.
func (m *Matcher) CaptureNames() []string {
	return m.names
}

func withoutDone(steps []sitter.QueryPredicateStep) []sitter.QueryPredicateStep {
	out := steps[:0:0]
	for _, s := range steps {
		if s.Type != sitter.QueryPredicateStepTypeDone {
			out = append(out, s)
		}
	}
	return out
}

func (m *Matcher) compile(steps []sitter.QueryPredicateStep) (predicate, bool, error) {
	if steps[0].Type != sitter.QueryPredicateStepTypeString {
		return predicate{}, false, fmt.Errorf("predicate must start with an operator name")
	}
	op := m.query.StringValueForId(steps[0].ValueId)
	args := steps[1:]

	p := predicate{op: op}
	switch op {
	case "eq?", "not-eq?":
		p.negate = op == "not-eq?"
		if len(args) != 2 || args[0].Type != sitter.QueryPredicateStepTypeCapture {
			return predicate{}, false, fmt.Errorf("#%s expects a capture and a capture or string", op)
		}
		p.capture = args[0].ValueId
		if args[1].Type == sitter.QueryPredicateStepTypeCapture {
			id := args[1].ValueId
			p.other = &id
		} else {
			p.values = [][]byte{[]byte(m.query.StringValueForId(args[1].ValueId))}
		}

	case "match?", "not-match?":
		p.negate = op == "not-match?"
		if len(args) != 2 || args[0].Type != sitter.QueryPredicateStepTypeCapture || args[1].Type != sitter.QueryPredicateStepTypeString {
			return predicate{}, false, fmt.Errorf("#%s expects a capture and a regular expression", op)
		}
		p.capture = args[0].ValueId
		re, err := regexp.Compile(m.query.StringValueForId(args[1].ValueId))
		if err != nil {
			return predicate{}, false, fmt.Errorf("#%s: %w", op, err)
		}
		p.re = re

	case "any-of?", "not-any-of?":
		p.negate = op == "not-any-of?"
		if len(args) < 1 || args[0].Type != sitter.QueryPredicateStepTypeCapture {
			return predicate{}, false, fmt.Errorf("#%s expects a capture followed by strings", op)
		}
		p.capture = args[0].ValueId
		for _, a := range args[1:] {
			if a.Type != sitter.QueryPredicateStepTypeString {
				return predicate{}, false, fmt.Errorf("#%s arguments after the capture must be strings", op)
			}
			p.values = append(p.values, []byte(m.query.StringValueForId(a.ValueId)))
		}

	default:
		log.Debugf("ignoring unsupported predicate #%s", op)
		return predicate{}, false, nil
	}
	return p, true, nil
}

// satisfies reports whether every predicate of the match's pattern holds.
// Nodes without cached text compare as empty.
func (m *Matcher) satisfies(qm *sitter.QueryMatch, texts TextResolver) bool {
	preds := m.predicates[qm.PatternIndex]
	if len(preds) == 0 {
		return true
	}

	text := func(node *sitter.Node) []byte {
		if texts == nil {
			return nil
		}
		t, _ := texts.Text(model.SpanOf(node))
		return t
	}
	nodesFor := func(id uint32) []*sitter.Node {
		var nodes []*sitter.Node
		for _, c := range qm.Captures {
			if c.Index == id {
				nodes = append(nodes, c.Node)
			}
		}
		return nodes
	}

	for _, p := range preds {
		for _, node := range nodesFor(p.capture) {
			t := text(node)
			var ok bool
			switch {
			case p.re != nil:
				ok = p.re.Match(t)
			case p.other != nil:
				others := nodesFor(*p.other)
				ok = len(others) > 0 && bytes.Equal(t, text(others[0]))
			default:
				for _, v := range p.values {
					if bytes.Equal(t, v) {
						ok = true
						break
					}
				}
			}
			if ok == p.negate {
				return false
			}
		}
	}
	return true
}
