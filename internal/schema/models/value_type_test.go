package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueTypeRoundTrip(t *testing.T) {
	values := []ValueType{
		BoolType(),
		IntType(),
		FloatType(),
		StringType(),
		NullType(),
		ListOf(),
		ListOf(IntType(), StringType(), NullType()),
		MapOf(nil),
		MapOf(map[string]ValueType{"c": BoolType()}),
		ListOf(MapOf(map[string]ValueType{
			"e": FloatType(),
			"f": ListOf(ListOf(BoolType()), MapOf(map[string]ValueType{"g": NullType()})),
		})),
	}

	for _, v := range values {
		t.Run(v.String(), func(t *testing.T) {
			raw, err := json.Marshal(v)
			require.NoError(t, err)

			var decoded ValueType
			require.NoError(t, json.Unmarshal(raw, &decoded))
			assert.True(t, v.Equal(decoded), "decoded %s from %s", decoded, raw)
			assert.Equal(t, v, decoded)
		})
	}
}

func TestValueTypeEncoding(t *testing.T) {
	schema := BaseType{
		"a": BoolType(),
		"b": MapOf(map[string]ValueType{"c": BoolType()}),
		"d": ListOf(MapOf(map[string]ValueType{"e": FloatType()})),
	}

	raw, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"Bool","b":{"Map":{"c":"Bool"}},"d":{"List":[{"Map":{"e":"Float"}}]}}`, string(raw))

	var decoded BaseType
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, schema.Equal(decoded))
}

func TestValueTypeEncodesNilCompositesAsEmpty(t *testing.T) {
	raw, err := json.Marshal(ValueType{Kind: KindList})
	require.NoError(t, err)
	assert.JSONEq(t, `{"List":[]}`, string(raw))

	raw, err = json.Marshal(ValueType{Kind: KindMap})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Map":{}}`, string(raw))
}

func TestValueTypeMarshalUnknownKind(t *testing.T) {
	_, err := json.Marshal(ValueType{Kind: "Decimal"})
	assert.Error(t, err)
}

func TestValueTypeDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"unknown primitive":   `"Decimal"`,
		"lowercase tag":       `"bool"`,
		"unknown composite":   `{"Set":["Int"]}`,
		"primitive as object": `{"Int":[]}`,
		"two keys":            `{"List":[],"Map":{}}`,
		"empty object":        `{}`,
		"null":                `null`,
		"number":              `1`,
		"array":               `["Int"]`,
		"list of non-array":   `{"List":"Int"}`,
		"null list":           `{"List":null}`,
		"null map":            `{"Map":null}`,
		"bad nested element":  `{"List":["Int","Nope"]}`,
		"null field in map":   `{"Map":{"a":null}}`,
		"map of non-object":   `{"Map":["Int"]}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var v ValueType
			assert.Error(t, json.Unmarshal([]byte(raw), &v))
		})
	}
}

func TestValueTypeEqual(t *testing.T) {
	assert.True(t, ListOf().Equal(ValueType{Kind: KindList}))
	assert.True(t, MapOf(nil).Equal(ValueType{Kind: KindMap}))
	assert.False(t, IntType().Equal(FloatType()))
	assert.False(t, ListOf(IntType()).Equal(ListOf(IntType(), IntType())))
	assert.False(t, ListOf(IntType(), BoolType()).Equal(ListOf(BoolType(), IntType())))
	assert.False(t, MapOf(map[string]ValueType{"a": IntType()}).Equal(MapOf(map[string]ValueType{"b": IntType()})))
}

func TestSchemaJSONShape(t *testing.T) {
	id := int64(3)
	raw, err := json.Marshal(Schema{ID: &id, Schema: BaseType{"a": IntType()}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"schema":{"a":"Int"}}`, string(raw))

	raw, err = json.Marshal(Schema{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":null,"schema":null}`, string(raw))

	var decoded Schema
	require.NoError(t, json.Unmarshal([]byte(`{"schema":null}`), &decoded))
	assert.Nil(t, decoded.ID)
	assert.Nil(t, decoded.Schema)
}

func TestSchemaWithID(t *testing.T) {
	s := Schema{Schema: BaseType{"a": IntType()}}
	_, ok := s.RecordID()
	assert.False(t, ok)

	withID := s.WithID(9)
	id, ok := withID.RecordID()
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)
	assert.Nil(t, s.ID)
}
