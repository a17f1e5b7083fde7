// Package lang binds the tree-sitter SQL grammar and the embedded queries the
// anonymizer runs on its own.
package lang

import (
	"embed"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/sql"
)

//go:embed queries/*.scm
var queryFS embed.FS

// Language holds tree-sitter configuration for the dump dialect.
type Language struct {
	Name      string
	lang      *sitter.Language
	queryOnce sync.Once
	query     *sitter.Query
	queryErr  error
}

// SQL is the only supported dialect.
var SQL = &Language{
	Name: "sql",
	lang: sql.GetLanguage(),
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// CompileQuery compiles a user-supplied query. An empty source yields a query
// with no patterns, which matches nothing.
func (l *Language) CompileQuery(source []byte) (*sitter.Query, error) {
	q, err := sitter.NewQuery(source, l.lang)
	if err != nil {
		return nil, fmt.Errorf("compiling query: %w", err)
	}
	return q, nil
}

// GetTableQuery returns the compiled query that captures the target table
// identifier of every INSERT statement.
func (l *Language) GetTableQuery() (*sitter.Query, error) {
	l.queryOnce.Do(func() {
		data, err := queryFS.ReadFile("queries/insert_tables.scm")
		if err != nil {
			l.queryErr = fmt.Errorf("reading query file: %w", err)
			return
		}
		l.query, l.queryErr = l.CompileQuery(data)
	})
	return l.query, l.queryErr
}

// CaptureNames lists the capture names of q indexed by capture id.
func CaptureNames(q *sitter.Query) []string {
	names := make([]string, q.CaptureCount())
	for i := range names {
		names[i] = q.CaptureNameForId(uint32(i))
	}
	return names
}
