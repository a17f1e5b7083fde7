package directive

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/goccy/go-json"

	"github.com/phobologic/sqlanon/internal/literal"
)

var (
	ErrNotObject              = errors.New("order payload is not a JSON object")
	ErrMissingCustomerDetails = errors.New("order payload has no customerDetails object")
)

const customerDetailsKey = "customerDetails"

// customerDetails is serialized with sorted keys.
func customerDetails(f *gofakeit.Faker) map[string]any {
	return map[string]any{
		"firstName": f.FirstName(),
		"lastName":  f.LastName(),
		"email":     email(f),
		"gender":    f.Gender(),
		"height":    f.Uint32(),
		"weight":    f.Uint32(),
		"birthDate": dateTime(f),
	}
}

// rewriteOrder decodes a quoted JSON order payload, replaces its customer
// details with synthetic ones and returns the re-encoded literal. Fields
// other than customerDetails are kept, numbers included, as written.
func rewriteOrder(raw []byte, f *gofakeit.Faker) (string, error) {
	text, err := literal.Decode(string(raw))
	if err != nil {
		return "", err
	}

	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return "", fmt.Errorf("decoding order payload: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("decoding order payload: trailing data after JSON value")
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return "", ErrNotObject
	}
	if _, ok := obj[customerDetailsKey].(map[string]any); !ok {
		return "", ErrMissingCustomerDetails
	}
	obj[customerDetailsKey] = customerDetails(f)

	data, err := marshalJSON(obj)
	if err != nil {
		return "", fmt.Errorf("encoding order payload: %w", err)
	}
	return literal.Encode(data), nil
}
