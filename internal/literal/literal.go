// Package literal implements the MySQL string literal codec used to read and
// write quoted values in dump files.
package literal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotLiteral   = errors.New("not a string literal")
	ErrUnterminated = errors.New("unterminated string literal")
	ErrTrailing     = errors.New("unexpected text after string literal")
	ErrBadEscape    = errors.New("invalid escape sequence")
)

const hexDigits = "0123456789abcdef"

// Decode parses a single quoted MySQL string literal and returns its raw
// bytes. Surrounding whitespace and an N (national charset) prefix are
// accepted; anything else around the literal is an error.
func Decode(text string) ([]byte, error) {
	s := strings.TrimSpace(text)
	if len(s) > 0 && (s[0] == 'N' || s[0] == 'n') {
		s = s[1:]
	}
	if len(s) == 0 || (s[0] != '\'' && s[0] != '"') {
		return nil, fmt.Errorf("%q: %w", abbreviate(text), ErrNotLiteral)
	}

	quote := s[0]
	out := make([]byte, 0, len(s))
	i := 1
	for {
		if i >= len(s) {
			return nil, fmt.Errorf("%q: %w", abbreviate(text), ErrUnterminated)
		}
		c := s[i]
		switch {
		case c == quote:
			// A doubled quote stands for one quote character.
			if i+1 < len(s) && s[i+1] == quote {
				out = append(out, quote)
				i += 2
				continue
			}
			if i+1 != len(s) {
				return nil, fmt.Errorf("%q: %w", abbreviate(text), ErrTrailing)
			}
			return out, nil
		case c == '\\':
			if i+1 >= len(s) {
				return nil, fmt.Errorf("%q: %w", abbreviate(text), ErrUnterminated)
			}
			b, width, err := unescape(s[i+1:])
			if err != nil {
				return nil, fmt.Errorf("%q at offset %d: %w", abbreviate(text), i, err)
			}
			out = append(out, b...)
			i += 1 + width
		default:
			out = append(out, c)
			i++
		}
	}
}

// unescape decodes the escape sequence at the start of s (the text after the
// backslash) and reports how many bytes of s it consumed.
func unescape(s string) ([]byte, int, error) {
	switch c := s[0]; c {
	case '0':
		return []byte{0}, 1, nil
	case 'b':
		return []byte{'\b'}, 1, nil
	case 'n':
		return []byte{'\n'}, 1, nil
	case 'r':
		return []byte{'\r'}, 1, nil
	case 't':
		return []byte{'\t'}, 1, nil
	case 'Z':
		return []byte{0x1a}, 1, nil
	case '%', '_':
		// MySQL keeps the backslash so the value still works as a LIKE pattern.
		return []byte{'\\', c}, 1, nil
	case 'x':
		if len(s) < 3 {
			return nil, 0, ErrBadEscape
		}
		hi, ok1 := fromHex(s[1])
		lo, ok2 := fromHex(s[2])
		if !ok1 || !ok2 {
			return nil, 0, ErrBadEscape
		}
		return []byte{hi<<4 | lo}, 3, nil
	default:
		return []byte{c}, 1, nil
	}
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// Encode wraps raw in single quotes. Tab, carriage return, newline, backslash
// and both quote characters get backslash escapes; every other byte outside
// printable ASCII is written as \xNN.
func Encode(raw []byte) string {
	var sb strings.Builder
	sb.Grow(len(raw) + 2)
	sb.WriteByte('\'')
	for _, c := range raw {
		switch c {
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '\n':
			sb.WriteString(`\n`)
		case '\\', '\'', '"':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			if c < 0x20 || c > 0x7e {
				sb.WriteString(`\x`)
				sb.WriteByte(hexDigits[c>>4])
				sb.WriteByte(hexDigits[c&0x0f])
				continue
			}
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

// Quote is Encode for strings.
func Quote(s string) string {
	return Encode([]byte(s))
}

func abbreviate(s string) string {
	const max = 32
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
