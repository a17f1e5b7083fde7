package directive

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/goccy/go-json"
)

const (
	iban     = "AT01234567890123456789"
	vatNo    = "AT01234567"
	password = "$2y$10$xOGO.s9/T06bIuCydNED7up5JWlXWp/kK7C8DC76kWyYrB5s9rnAu"
)

var emailDomains = []string{"example.com", "example.net", "example.org"}

// address is serialized with sorted keys.
func address(f *gofakeit.Faker) map[string]string {
	return map[string]string{
		"street_name":    f.Street(),
		"street_details": f.RandomString([]string{"Apt.", "Suite"}) + " " + f.DigitN(3),
		"zip_code":       f.Zip(),
		"city":           f.City(),
		"country":        f.Country(),
		"state":          f.State(),
	}
}

func biologicalSex(f *gofakeit.Faker) string {
	if f.Bool() {
		return "Male"
	}
	return "Female"
}

// bic returns a SWIFT code: bank, country, location and an optional branch.
func bic(f *gofakeit.Faker) string {
	code := strings.ToUpper(f.LetterN(4)) + strings.ToUpper(f.CountryAbr()) + f.Regex(`[A-Z2-9][A-NP-Z0-9]`)
	if f.Bool() {
		code += f.Regex(`[A-Z0-9]{3}`)
	}
	return code
}

func date(f *gofakeit.Faker) string {
	return f.Date().Format("2006-01-02")
}

func dateTime(f *gofakeit.Faker) string {
	return f.Date().UTC().Format(time.RFC3339)
}

// email builds an address on a reserved example domain so generated data can
// never reach a real mailbox.
func email(f *gofakeit.Faker) string {
	return localPart(f.FirstName()) + "." + localPart(f.LastName()) + "@" + f.RandomString(emailDomains)
}

func localPart(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "user"
	}
	return sb.String()
}

func phoneNumber(f *gofakeit.Faker) string {
	return f.PhoneFormatted()
}

func u32(f *gofakeit.Faker) string {
	return fmt.Sprint(f.Uint32())
}

// marshalJSON serializes v without HTML escaping and with every non-ASCII
// character written as a \u escape, so the result is plain ASCII.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return asciiJSON(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// asciiJSON rewrites non-ASCII characters in serialized JSON as \u escapes.
// Such characters can only occur inside JSON strings, where the escape is
// equivalent.
func asciiJSON(data []byte) []byte {
	if !bytes.ContainsFunc(data, func(r rune) bool { return r >= utf8.RuneSelf }) {
		return data
	}
	out := make([]byte, 0, len(data)+16)
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if r > 0xffff {
			hi, lo := utf16.EncodeRune(r)
			out = fmt.Appendf(out, `\u%04x\u%04x`, hi, lo)
			continue
		}
		out = fmt.Appendf(out, `\u%04x`, r)
	}
	return out
}
