package directive

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/sqlanon/internal/literal"
	"github.com/phobologic/sqlanon/internal/model"
	"github.com/phobologic/sqlanon/internal/source"
)

func TestParse(t *testing.T) {
	t.Parallel()

	for _, d := range All() {
		got, err := Parse(d.String())
		require.NoError(t, err, d.String())
		assert.Equal(t, d, got)
	}

	tests := []string{"", "Email", "unknown_directive", "_", "none"}
	for _, label := range tests {
		_, err := Parse(label)
		assert.ErrorIs(t, err, ErrUnknown, label)
	}
}

func TestForQuery(t *testing.T) {
	t.Parallel()

	names := []string{"_t", "email", "unknown_directive", "order", "unknown_directive", "_"}
	dirs, unknown := ForQuery(names)
	assert.Equal(t, []Directive{None, Email, None, Order, None, None}, dirs)
	assert.Equal(t, []string{"unknown_directive"}, unknown)
}

func TestConsumesSpan(t *testing.T) {
	t.Parallel()

	for _, d := range All() {
		assert.Equal(t, d == Order, d.ConsumesSpan(), d.String())
	}
}

// apply runs d over the span covering the quoted value in input.
func apply(t *testing.T, d Directive, input string, seed int64) (string, *source.Source, model.Span) {
	t.Helper()
	start := strings.IndexAny(input, `'"`)
	end := strings.LastIndexAny(input, `'"`) + 1
	require.True(t, start >= 0 && end > start, "input needs a quoted value")
	span := model.Span{Start: uint32(start), End: uint32(end)}

	src, err := source.New(strings.NewReader(input), 16)
	require.NoError(t, err)
	require.NoError(t, src.SeekTo(int64(start)))

	var out bytes.Buffer
	require.NoError(t, Apply(d, span, src, &out, gofakeit.New(seed)))
	return out.String(), src, span
}

func decoded(t *testing.T, lit string) string {
	t.Helper()
	raw, err := literal.Decode(lit)
	require.NoError(t, err, lit)
	return string(raw)
}

func TestApplyLeavesSourceAtSpanEnd(t *testing.T) {
	t.Parallel()

	for _, d := range All() {
		d := d
		input := `(1, 'x', 2)`
		if d == Order {
			input = `(1, '{"customerDetails":{}}', 2)`
		}
		t.Run(d.String(), func(t *testing.T) {
			t.Parallel()
			out, src, span := apply(t, d, input, 1)
			assert.NotEmpty(t, out)
			assert.Equal(t, int64(span.End), src.Position())
		})
	}
}

func TestFixedReplacements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    Directive
		want string
	}{
		{Iban, `'AT01234567890123456789'`},
		{VatNo, `'AT01234567'`},
		{Password, `'$2y$10$xOGO.s9/T06bIuCydNED7up5JWlXWp/kK7C8DC76kWyYrB5s9rnAu'`},
	}
	for _, tt := range tests {
		got, _, _ := apply(t, tt.d, `'secret'`, 7)
		assert.Equal(t, tt.want, got, tt.d.String())
	}
}

func TestGeneratedShapes(t *testing.T) {
	t.Parallel()

	bicRe := regexp.MustCompile(`^[A-Z]{6}[A-Z2-9][A-NP-Z0-9]([A-Z0-9]{3})?$`)
	emailRe := regexp.MustCompile(`^[a-z0-9]+\.[a-z0-9]+@example\.(com|net|org)$`)

	for seed := int64(1); seed <= 20; seed++ {
		out, _, _ := apply(t, BiologicalSex, `'x'`, seed)
		assert.Contains(t, []string{`'Male'`, `'Female'`}, out)

		out, _, _ = apply(t, Bic, `'x'`, seed)
		assert.Regexp(t, bicRe, decoded(t, out))

		out, _, _ = apply(t, Email, `'x'`, seed)
		assert.Regexp(t, emailRe, decoded(t, out))

		out, _, _ = apply(t, Date, `'x'`, seed)
		_, err := time.Parse("2006-01-02", decoded(t, out))
		assert.NoError(t, err)

		out, _, _ = apply(t, U32, `'x'`, seed)
		_, err = strconv.ParseUint(out, 10, 32)
		assert.NoError(t, err, out)

		for _, d := range []Directive{FirstName, LastName, Name, PhoneNumber} {
			out, _, _ = apply(t, d, `'x'`, seed)
			assert.NotEmpty(t, decoded(t, out), d.String())
		}
	}
}

func TestAddress(t *testing.T) {
	t.Parallel()

	out, _, _ := apply(t, Address, `'1 Main St'`, 3)
	var addr map[string]string
	require.NoError(t, json.Unmarshal([]byte(decoded(t, out)), &addr))

	keys := make([]string, 0, len(addr))
	for k, v := range addr {
		keys = append(keys, k)
		assert.NotEmpty(t, v, k)
	}
	assert.ElementsMatch(t, []string{"street_name", "street_details", "zip_code", "city", "country", "state"}, keys)
}

func TestSameSeedSameOutput(t *testing.T) {
	t.Parallel()

	for _, d := range All() {
		input := `'x'`
		if d == Order {
			input = `'{"customerDetails":{}}'`
		}
		a, _, _ := apply(t, d, input, 99)
		b, _, _ := apply(t, d, input, 99)
		assert.Equal(t, a, b, d.String())
	}
}

func TestOrderShape(t *testing.T) {
	t.Parallel()

	input := literal.Quote(`{"customerDetails": {"firstName": "Jane", "email": "jane@corp.test"}, "other": 1, "items": [{"sku": "A-1", "qty": 2}]}`)
	out, src, span := apply(t, Order, input, 5)
	assert.Equal(t, int64(span.End), src.Position())

	var got map[string]any
	dec := json.NewDecoder(strings.NewReader(decoded(t, out)))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&got))

	want := map[string]any{
		"other": json.Number("1"),
		"items": []any{map[string]any{"sku": "A-1", "qty": json.Number("2")}},
	}
	details, ok := got["customerDetails"].(map[string]any)
	require.True(t, ok, "customerDetails must be an object")
	delete(got, "customerDetails")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fields outside customerDetails changed (-want +got):\n%s", diff)
	}

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"firstName", "lastName", "email", "gender", "height", "weight", "birthDate"}, keys)
	assert.Contains(t, []any{"male", "female"}, details["gender"])
	for _, k := range []string{"height", "weight"} {
		n, ok := details[k].(json.Number)
		require.True(t, ok, k)
		_, err := strconv.ParseUint(n.String(), 10, 32)
		assert.NoError(t, err, k)
	}
	assert.NotEqual(t, "Jane", details["firstName"])
	_, err := time.Parse(time.RFC3339, details["birthDate"].(string))
	assert.NoError(t, err)
}

func TestOrderKeepsNumbersVerbatim(t *testing.T) {
	t.Parallel()

	input := literal.Quote(`{"customerDetails":{},"total":12345678901234567890,"price":1.50}`)
	out, _, _ := apply(t, Order, input, 5)
	text := decoded(t, out)
	assert.Contains(t, text, `"total":12345678901234567890`)
	assert.Contains(t, text, `"price":1.50`)
}

func TestOrderEscapesNonASCII(t *testing.T) {
	t.Parallel()

	input := literal.Quote(`{"customerDetails":{},"note":"Grüße"}`)
	out, _, _ := apply(t, Order, input, 5)
	assert.NotContains(t, out, `\x`)
	assert.Contains(t, decoded(t, out), `"note":"Gr\u00fc\u00dfe"`)
}

func TestOrderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"array", `'[1,2]'`, ErrNotObject},
		{"string", `'"x"'`, ErrNotObject},
		{"missing", `'{"other":1}'`, ErrMissingCustomerDetails},
		{"not object", `'{"customerDetails":"Jane"}'`, ErrMissingCustomerDetails},
		{"null", `'{"customerDetails":null}'`, ErrMissingCustomerDetails},
		{"bad escape", `'\x4'`, literal.ErrBadEscape},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src, err := source.New(strings.NewReader(tt.input), 16)
			require.NoError(t, err)
			span := model.Span{Start: 0, End: uint32(len(tt.input))}
			err = Apply(Order, span, src, &bytes.Buffer{}, gofakeit.New(1))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		for _, input := range []string{`'{"customerDetails":'`, `'{} {}'`, `'not json'`} {
			src, err := source.New(strings.NewReader(input), 16)
			require.NoError(t, err)
			span := model.Span{Start: 0, End: uint32(len(input))}
			assert.Error(t, Apply(Order, span, src, &bytes.Buffer{}, gofakeit.New(1)), input)
		}
	})
}

func TestASCIIJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`{"a":"plain"}`, `{"a":"plain"}`},
		{`{"a":"Müller"}`, `{"a":"M\u00fcller"}`},
		{`{"a":"😀"}`, `{"a":"\ud83d\ude00"}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(asciiJSON([]byte(tt.in))))
	}
}
