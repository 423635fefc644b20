package conformance

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"credstore/internal/schema/models"
)

type ConformanceSuite struct {
	suite.Suite
}

func TestConformanceSuite(t *testing.T) {
	suite.Run(t, new(ConformanceSuite))
}

func (s *ConformanceSuite) schema(raw string) models.BaseType {
	var schema models.BaseType
	s.Require().NoError(json.Unmarshal([]byte(raw), &schema))
	return schema
}

func (s *ConformanceSuite) value(raw string) any {
	var v any
	s.Require().NoError(json.Unmarshal([]byte(raw), &v))
	return v
}

const nestedSchema = `{"a":"Bool","b":{"Map":{"c":"Bool"}},"d":{"List":[{"Map":{"e":"Float"}}]}}`

func (s *ConformanceSuite) TestNestedScenarios() {
	cases := []struct {
		name   string
		schema string
		data   string
		want   bool
	}{
		{
			name:   "nested map and list conform",
			schema: nestedSchema,
			data:   `{"a":true,"b":{"c":false},"d":[{"e":1.1}]}`,
			want:   true,
		},
		{
			name:   "float value against Int element",
			schema: `{"a":"Bool","b":{"Map":{"c":"Bool"}},"d":{"List":[{"Map":{"e":"Int"}}]}}`,
			data:   `{"a":true,"b":{"c":false},"d":[{"e":1.1}]}`,
			want:   false,
		},
		{
			name:   "undeclared key inside list element",
			schema: nestedSchema,
			data:   `{"a":true,"b":{"c":false},"d":[{"e":1.1,"f":2}]}`,
			want:   false,
		},
		{
			name:   "list shorter than declared arity",
			schema: `{"a":"Bool","b":{"Map":{"c":"Bool"}},"d":{"List":[{"Map":{"e":"Float"}},"Bool"]}}`,
			data:   `{"a":true,"b":{"c":false},"d":[{"e":1.1}]}`,
			want:   false,
		},
		{
			name:   "heterogeneous list with matching arity",
			schema: `{"a":"Bool","b":{"Map":{"c":"Bool"}},"d":{"List":[{"Map":{"e":"Float"}},"Bool"]}}`,
			data:   `{"a":true,"b":{"c":false},"d":[{"e":1.1},true]}`,
			want:   true,
		},
		{
			name:   "positional types are not interchangeable",
			schema: `{"d":{"List":["Int","String"]}}`,
			data:   `{"d":["x",1]}`,
			want:   false,
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.Equal(tc.want, Conforms(s.value(tc.data), s.schema(tc.schema)))
		})
	}
}

func (s *ConformanceSuite) TestUndeclaredKeyFails() {
	schema := s.schema(`{"a":"Int"}`)
	s.True(Conforms(s.value(`{"a":1}`), schema))
	s.False(Conforms(s.value(`{"a":1,"z":1}`), schema))
	s.False(Conforms(s.value(`{"z":null}`), schema))
}

// Declared fields missing from the value are not reported. This leniency is
// deliberate and relied on by existing clients.
func (s *ConformanceSuite) TestDeclaredButMissingFieldPasses() {
	schema := s.schema(`{"a":"Bool","b":{"Map":{"e":"Float","f":"Float"}}}`)
	s.True(Conforms(s.value(`{"b":{"e":1.5}}`), schema))
	s.True(Conforms(s.value(`{}`), schema))
}

func (s *ConformanceSuite) TestTopLevelMustBeObject() {
	schema := s.schema(`{"a":"Int"}`)
	for _, raw := range []string{`[1]`, `1`, `"a"`, `true`, `null`} {
		s.False(Conforms(s.value(raw), schema), raw)
	}
	s.True(Conforms(map[string]any{}, models.BaseType{}))
	s.True(Conforms(map[string]any{}, nil))
	s.False(Conforms(map[string]any{"a": 1}, nil))
}

func (s *ConformanceSuite) TestPrimitives() {
	cases := []struct {
		value any
		kind  models.ValueType
		want  bool
	}{
		{true, models.BoolType(), true},
		{true, models.StringType(), false},
		{"x", models.StringType(), true},
		{"1", models.IntType(), false},
		{nil, models.NullType(), true},
		{nil, models.StringType(), false},
		{false, models.NullType(), false},
		{[]any{}, models.ListOf(), true},
		{[]any{}, models.MapOf(nil), false},
		{map[string]any{}, models.MapOf(nil), true},
		{map[string]any{}, models.ListOf(), false},
		{struct{}{}, models.MapOf(nil), false},
		{uint8(1), models.IntType(), false},
	}
	for _, tc := range cases {
		got := Conforms(map[string]any{"f": tc.value}, models.BaseType{"f": tc.kind})
		s.Equal(tc.want, got, "%#v against %s", tc.value, tc.kind)
	}
}

func (s *ConformanceSuite) TestNumberTyping() {
	intSchema := models.BaseType{"n": models.IntType()}
	floatSchema := models.BaseType{"n": models.FloatType()}
	boolSchema := models.BaseType{"n": models.BoolType()}

	cases := []struct {
		raw       string
		wantInt   bool
		wantFloat bool
	}{
		{`1`, true, true},
		{`1.0`, true, true},
		{`1.5`, false, true},
		{`-7`, true, true},
		{`1e3`, true, true},
		{`9223372036854775807`, true, true},
		{`-9223372036854775808`, true, true},
		{`9223372036854775808`, false, true},
		{`1e300`, false, true},
		{`1e400`, false, false},
	}
	for _, tc := range cases {
		raw := []byte(`{"n":` + tc.raw + `}`)
		s.Equal(tc.wantInt, ConformsJSON(raw, intSchema), "Int %s", tc.raw)
		s.Equal(tc.wantFloat, ConformsJSON(raw, floatSchema), "Float %s", tc.raw)
		s.False(ConformsJSON(raw, boolSchema), "Bool %s", tc.raw)
	}
}

func (s *ConformanceSuite) TestGoNumericValues() {
	intSchema := models.BaseType{"n": models.IntType()}
	floatSchema := models.BaseType{"n": models.FloatType()}

	s.True(Conforms(map[string]any{"n": 1.0}, intSchema))
	s.False(Conforms(map[string]any{"n": 1.5}, intSchema))
	s.True(Conforms(map[string]any{"n": 1.5}, floatSchema))
	s.False(Conforms(map[string]any{"n": math.Inf(1)}, floatSchema))
	s.False(Conforms(map[string]any{"n": math.NaN()}, floatSchema))
	s.False(Conforms(map[string]any{"n": 1e19}, intSchema))
	s.True(Conforms(map[string]any{"n": 3}, intSchema))
	s.True(Conforms(map[string]any{"n": int64(3)}, floatSchema))
}

func (s *ConformanceSuite) TestArityChangeFlipsResult() {
	schema := models.BaseType{"l": models.ListOf(models.IntType(), models.IntType(), models.IntType())}

	s.True(Conforms(s.value(`{"l":[1,2,3]}`), schema))
	s.False(Conforms(s.value(`{"l":[1,2]}`), schema))
	s.False(Conforms(s.value(`{"l":[1,2,3,4]}`), schema))
	s.False(Conforms(s.value(`{"l":[]}`), schema))
}

func (s *ConformanceSuite) TestDeterministic() {
	schema := s.schema(nestedSchema)
	value := s.value(`{"a":true,"b":{"c":false},"d":[{"e":1.1}]}`)
	bad := s.value(`{"a":true,"b":{"c":false,"x":1},"d":[{"e":1.1}]}`)

	for range 100 {
		s.True(Conforms(value, schema))
		s.False(Conforms(bad, schema))
	}
}

func (s *ConformanceSuite) TestDepthLimit() {
	nested := func(depth int) (models.BaseType, string) {
		vt := models.IntType()
		for range depth {
			vt = models.ListOf(vt)
		}
		return models.BaseType{"x": vt}, `{"x":` + strings.Repeat("[", depth) + "1" + strings.Repeat("]", depth) + `}`
	}

	schema, raw := nested(MaxDepth)
	s.True(ConformsJSON([]byte(raw), schema))

	schema, raw = nested(MaxDepth + 1)
	s.False(ConformsJSON([]byte(raw), schema))
}

func (s *ConformanceSuite) TestConformsJSONRejectsMalformedInput() {
	schema := models.BaseType{"a": models.IntType()}
	s.True(ConformsJSON([]byte(` {"a":1} `), schema))
	s.False(ConformsJSON([]byte(`{"a":1} {"a":2}`), schema))
	s.False(ConformsJSON([]byte(`{"a":1`), schema))
	s.False(ConformsJSON(nil, schema))
}

func TestConformsIsSafeForConcurrentUse(t *testing.T) {
	var schema models.BaseType
	require.NoError(t, json.Unmarshal([]byte(nestedSchema), &schema))
	var value any
	require.NoError(t, json.Unmarshal([]byte(`{"a":true,"b":{"c":false},"d":[{"e":1.1}]}`), &value))

	done := make(chan bool)
	for range 16 {
		go func() { done <- Conforms(value, schema) }()
	}
	for range 16 {
		assert.True(t, <-done)
	}
}
