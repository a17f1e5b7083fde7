// Package directive implements the closed set of anonymization operations
// that user query capture labels select.
package directive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Directive names one anonymization operation.
type Directive int

const (
	// None marks a capture whose label is not a directive. Its span is left
	// untouched.
	None Directive = iota
	Address
	BiologicalSex
	Bic
	Date
	Email
	FirstName
	Iban
	LastName
	Name
	Order
	Password
	PhoneNumber
	U32
	VatNo
)

// ErrUnknown is returned by Parse for labels outside the directive set.
var ErrUnknown = errors.New("invalid directive")

var labels = map[Directive]string{
	Address:       "address",
	BiologicalSex: "biological_sex",
	Bic:           "bic",
	Date:          "date",
	Email:         "email",
	FirstName:     "first_name",
	Iban:          "iban",
	LastName:      "last_name",
	Name:          "name",
	Order:         "order",
	Password:      "password",
	PhoneNumber:   "phone_number",
	U32:           "u32",
	VatNo:         "vat_no",
}

var byLabel = lo.Invert(labels)

var descriptions = map[Directive]string{
	Address:       "JSON object with street, city, zip code, state and country",
	BiologicalSex: "'Male' or 'Female'",
	Bic:           "SWIFT/BIC code",
	Date:          "date as YYYY-MM-DD",
	Email:         "address on an example.* domain",
	FirstName:     "first name",
	Iban:          "fixed placeholder IBAN",
	LastName:      "last name",
	Name:          "full name",
	Order:         "JSON order payload; only customerDetails is replaced",
	Password:      "fixed bcrypt hash",
	PhoneNumber:   "formatted phone number",
	U32:           "unquoted unsigned 32-bit integer",
	VatNo:         "fixed placeholder VAT number",
}

// All returns every directive in declaration order.
func All() []Directive {
	return []Directive{
		Address, BiologicalSex, Bic, Date, Email, FirstName, Iban,
		LastName, Name, Order, Password, PhoneNumber, U32, VatNo,
	}
}

// Parse maps a capture label to its directive.
func Parse(label string) (Directive, error) {
	d, ok := byLabel[label]
	if !ok {
		return None, fmt.Errorf("%q: %w", label, ErrUnknown)
	}
	return d, nil
}

func (d Directive) String() string {
	if l, ok := labels[d]; ok {
		return l
	}
	return "none"
}

// Description says what the replacement looks like.
func (d Directive) Description() string {
	return descriptions[d]
}

// ConsumesSpan reports whether the handler reads the original span. All other
// directives skip it.
func (d Directive) ConsumesSpan() bool {
	return d == Order
}

// ForQuery resolves the capture names of a query, indexed by capture id.
// Unrecognized labels map to None. Labels starting with an underscore are
// helper captures by convention; the other unrecognized labels are returned
// so callers can warn about likely typos.
func ForQuery(names []string) (dirs []Directive, unknown []string) {
	dirs = make([]Directive, len(names))
	for i, n := range names {
		d, err := Parse(n)
		if err != nil {
			if !strings.HasPrefix(n, "_") {
				unknown = append(unknown, n)
			}
			continue
		}
		dirs[i] = d
	}
	return dirs, lo.Uniq(unknown)
}
