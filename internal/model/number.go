package model

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Number is a numeric record attribute that may be undefined. Undefined
// values are stored as NaN.
type Number float64

var jsonNull = []byte("null")

// Undefined returns the undefined Number.
func Undefined() Number {
	return Number(math.NaN())
}

// Valid reports whether n holds a finite value.
func (n Number) Valid() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (n Number) Float() float64 {
	return float64(n)
}

// UnmarshalJSON accepts numbers and numeric strings. null, blank and
// non-numeric strings ("n/a") decode to the undefined value instead of
// failing the whole record.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		*n = Undefined()
		return nil
	}

	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			*n = Undefined()
			return nil
		}
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*n = Undefined()
		return nil
	}
	*n = Number(f)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid() {
		return jsonNull, nil
	}
	return strconv.AppendFloat(nil, float64(n), 'f', -1, 64), nil
}
