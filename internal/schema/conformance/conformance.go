// Package conformance checks decoded JSON values against a schema.
//
// Values are expected in the form produced by encoding/json when decoding
// into any: map[string]any, []any, bool, string, nil and either float64 or
// json.Number for numbers. int and int64 are accepted as well so callers can
// check values built in Go.
//
// Every check returns a bool. Malformed input, unknown kinds and nesting
// deeper than MaxDepth all yield false.
package conformance

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"

	"credstore/internal/schema/models"
)

// MaxDepth bounds the nesting of arrays and objects below the top level.
const MaxDepth = 128

// Conforms reports whether value is an object whose present fields all
// match schema. Fields declared in schema but missing from value are not
// required.
func Conforms(value any, schema models.BaseType) bool {
	object, ok := value.(map[string]any)
	if !ok {
		return false
	}
	return verifyMap(object, schema, 0)
}

// ConformsJSON decodes raw and checks it with Conforms. Numbers are decoded
// as json.Number so integers beyond 2^53 keep their exact value.
func ConformsJSON(raw []byte, schema models.BaseType) bool {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return false
	}
	return Conforms(value, schema)
}

func verifyMap(object map[string]any, fields map[string]models.ValueType, depth int) bool {
	for key, item := range object {
		expected, ok := fields[key]
		if !ok {
			return false
		}
		if !verifySingle(item, &expected, depth) {
			return false
		}
	}
	return true
}

func verifySingle(value any, expected *models.ValueType, depth int) bool {
	if expected == nil {
		return false
	}

	switch v := value.(type) {
	case []any:
		if expected.Kind != models.KindList || depth >= MaxDepth {
			return false
		}
		if len(v) != len(expected.Items) {
			return false
		}
		for i := range v {
			if !verifySingle(v[i], &expected.Items[i], depth+1) {
				return false
			}
		}
		return true
	case map[string]any:
		if expected.Kind != models.KindMap || depth >= MaxDepth {
			return false
		}
		return verifyMap(v, expected.Fields, depth+1)
	case bool:
		return expected.Kind == models.KindBool
	case string:
		return expected.Kind == models.KindString
	case nil:
		return expected.Kind == models.KindNull
	case json.Number:
		return verifyNumber(v, expected.Kind)
	case float64:
		return verifyFloat(v, expected.Kind)
	case int:
		return expected.Kind == models.KindInt || expected.Kind == models.KindFloat
	case int64:
		return expected.Kind == models.KindInt || expected.Kind == models.KindFloat
	default:
		return false
	}
}

func verifyNumber(n json.Number, kind models.Kind) bool {
	switch kind {
	case models.KindInt:
		if _, err := n.Int64(); err == nil {
			return true
		}
		// 1.0 and 1e3 are whole numbers even though Int64 rejects the syntax.
		f, err := strconv.ParseFloat(string(n), 64)
		return err == nil && isWholeInt64(f)
	case models.KindFloat:
		f, err := strconv.ParseFloat(string(n), 64)
		return err == nil && !math.IsInf(f, 0)
	default:
		return false
	}
}

func verifyFloat(f float64, kind models.Kind) bool {
	switch kind {
	case models.KindInt:
		return isWholeInt64(f)
	case models.KindFloat:
		return !math.IsInf(f, 0) && !math.IsNaN(f)
	default:
		return false
	}
}

// isWholeInt64 reports whether f has no fractional part and lies in
// [-2^63, 2^63).
func isWholeInt64(f float64) bool {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return false
	}
	return f >= math.MinInt64 && f < math.MaxInt64
}
