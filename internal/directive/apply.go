package directive

import (
	"fmt"
	"io"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/phobologic/sqlanon/internal/literal"
	"github.com/phobologic/sqlanon/internal/model"
	"github.com/phobologic/sqlanon/internal/source"
)

// Apply writes the replacement for span to w and leaves src positioned at the
// end of span. src must be positioned at span.Start. Every call draws from
// the same faker, so a fixed seed gives reproducible output.
func Apply(d Directive, span model.Span, src *source.Source, w io.Writer, f *gofakeit.Faker) error {
	if d.ConsumesSpan() {
		raw, err := src.ReadExact(span.Len())
		if err != nil {
			return fmt.Errorf("%s %s: %w", d, span, err)
		}
		out, err := rewriteOrder(raw, f)
		if err != nil {
			return fmt.Errorf("%s %s: %w", d, span, err)
		}
		return write(w, out)
	}

	if err := src.SeekTo(int64(span.End)); err != nil {
		return fmt.Errorf("%s %s: %w", d, span, err)
	}
	out, err := generate(d, f)
	if err != nil {
		return fmt.Errorf("%s %s: %w", d, span, err)
	}
	return write(w, out)
}

// generate produces the replacement text of the directives that ignore the
// original value.
func generate(d Directive, f *gofakeit.Faker) (string, error) {
	switch d {
	case Address:
		data, err := marshalJSON(address(f))
		if err != nil {
			return "", err
		}
		return literal.Encode(data), nil
	case BiologicalSex:
		return literal.Quote(biologicalSex(f)), nil
	case Bic:
		return literal.Quote(bic(f)), nil
	case Date:
		return literal.Quote(date(f)), nil
	case Email:
		return literal.Quote(email(f)), nil
	case FirstName:
		return literal.Quote(f.FirstName()), nil
	case Iban:
		return literal.Quote(iban), nil
	case LastName:
		return literal.Quote(f.LastName()), nil
	case Name:
		return literal.Quote(f.Name()), nil
	case Password:
		return literal.Quote(password), nil
	case PhoneNumber:
		return literal.Quote(phoneNumber(f)), nil
	case U32:
		return u32(f), nil
	case VatNo:
		return literal.Quote(vatNo), nil
	default:
		return "", fmt.Errorf("no generator for directive %s", d)
	}
}

func write(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("writing replacement: %w", err)
	}
	return nil
}
