package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/sqlanon/internal/directive"
	"github.com/phobologic/sqlanon/internal/lang"
)

func runInit(args []string, stdout, stderr *bytes.Buffer) error {
	return run(append([]string{"init"}, args...), stdout, stderr)
}

func TestApplySection(t *testing.T) {
	t.Parallel()

	const block = sentinelStart + "\n; ref\n" + sentinelEnd
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"empty file", "", block + "\n"},
		{"blank file", "\n\n", block + "\n"},
		{"patterns only", "(literal) @email\n", block + "\n\n(literal) @email\n"},
		{
			"old block replaced in place",
			"(literal) @email\n" + sentinelStart + "\n; old\n" + sentinelEnd + "\n(identifier) @_id\n",
			"(literal) @email\n" + block + "\n(identifier) @_id\n",
		},
		{
			"unterminated block is left alone",
			sentinelStart + "\n(literal) @email\n",
			block + "\n\n" + sentinelStart + "\n(literal) @email\n",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applySection(tt.query, block); got != tt.want {
				t.Errorf("applySection() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitSectionListsDirectives(t *testing.T) {
	t.Parallel()
	section := generateSection()
	for _, d := range directive.All() {
		if !strings.Contains(section, "@"+d.String()+" ") {
			t.Errorf("generated section missing @%s", d)
		}
	}
}

// The block must never add patterns to the query it is written into.
func TestInitSectionIsOnlyComments(t *testing.T) {
	t.Parallel()
	for _, line := range strings.Split(generateSection(), "\n") {
		if !strings.HasPrefix(line, ";") {
			t.Errorf("non-comment line %q", line)
		}
	}

	content := applySection("(literal) @email\n", generateSection())
	q, err := lang.SQL.CompileQuery([]byte(content))
	require.NoError(t, err)
	defer q.Close()
	assert.Equal(t, uint32(1), q.PatternCount())
}

func TestInitWritesQueryFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), defaultQueryPath)

	var stdout, stderr bytes.Buffer
	require.NoError(t, runInit([]string{path}, &stdout, &stderr))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, generateSection()+"\n", string(first))
	assert.Contains(t, stderr.String(), path)

	require.NoError(t, runInit([]string{path}, &stdout, &stderr))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "init must be idempotent")
}

func TestInitDryRun(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), defaultQueryPath)
	const patterns = "(literal) @email\n"
	require.NoError(t, os.WriteFile(path, []byte(patterns), 0o644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, runInit([]string{"--dry-run", path}, &stdout, &stderr))
	assert.Equal(t, applySection(patterns, generateSection()), stdout.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, patterns, string(data), "--dry-run must not modify the file")

	stdout.Reset()
	require.NoError(t, runInit([]string{"--dry-run"}, &stdout, &stderr))
	assert.Equal(t, generateSection()+"\n", stdout.String())
}

// A query file written by init can be extended with patterns and passed to
// --query.
func TestInitQueryFileIsUsable(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, defaultQueryPath, "(literal) @vat_no\n")

	var stdout, stderr bytes.Buffer
	require.NoError(t, runInit([]string{path}, &stdout, &stderr))

	dump := writeTestFile(t, dir, "dump.sql", "INSERT INTO t (v) VALUES ('DE999');\n")
	stdout.Reset()
	if err := run([]string{"-q", path, dump}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	assert.Equal(t, "INSERT INTO t (v) VALUES ('AT01234567');\n", stdout.String())
}
