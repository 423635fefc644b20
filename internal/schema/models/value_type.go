package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Kind names a ValueType variant. The string value is also the wire tag.
type Kind string

const (
	KindBool   Kind = "Bool"
	KindInt    Kind = "Int"
	KindFloat  Kind = "Float"
	KindString Kind = "String"
	KindNull   Kind = "Null"
	KindList   Kind = "List"
	KindMap    Kind = "Map"
)

// ValueType describes the expected shape of one JSON value.
//
// Items is only meaningful for KindList and gives the exact, positional
// element types. Fields is only meaningful for KindMap.
type ValueType struct {
	Kind   Kind
	Items  []ValueType
	Fields map[string]ValueType
}

// BaseType is the top level of a schema: field name to expected type.
type BaseType map[string]ValueType

func BoolType() ValueType   { return ValueType{Kind: KindBool} }
func IntType() ValueType    { return ValueType{Kind: KindInt} }
func FloatType() ValueType  { return ValueType{Kind: KindFloat} }
func StringType() ValueType { return ValueType{Kind: KindString} }
func NullType() ValueType   { return ValueType{Kind: KindNull} }

// ListOf builds a List whose arity is len(items).
func ListOf(items ...ValueType) ValueType {
	if items == nil {
		items = []ValueType{}
	}
	return ValueType{Kind: KindList, Items: items}
}

// MapOf builds a Map. A nil map is treated as empty.
func MapOf(fields map[string]ValueType) ValueType {
	if fields == nil {
		fields = map[string]ValueType{}
	}
	return ValueType{Kind: KindMap, Fields: fields}
}

func (k Kind) primitive() bool {
	switch k {
	case KindBool, KindInt, KindFloat, KindString, KindNull:
		return true
	}
	return false
}

// Equal reports structural equality. Nil and empty Items/Fields are equal.
func (v ValueType) Equal(other ValueType) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindList:
		if len(v.Items) != len(other.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(other.Items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return maps.EqualFunc(v.Fields, other.Fields, ValueType.Equal)
	default:
		return true
	}
}

// Equal reports structural equality of two schemas.
func (b BaseType) Equal(other BaseType) bool {
	return maps.EqualFunc(b, other, ValueType.Equal)
}

func (v ValueType) String() string {
	raw, err := json.Marshal(v)
	if err != nil {
		return string(v.Kind)
	}
	return string(raw)
}

// MarshalJSON encodes primitives as their bare tag and List/Map as a
// single-key object: "Int", {"List":["Bool"]}, {"Map":{"a":"Float"}}.
func (v ValueType) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindList:
		items := v.Items
		if items == nil {
			items = []ValueType{}
		}
		return json.Marshal(map[string][]ValueType{string(KindList): items})
	case KindMap:
		fields := v.Fields
		if fields == nil {
			fields = map[string]ValueType{}
		}
		return json.Marshal(map[string]map[string]ValueType{string(KindMap): fields})
	default:
		if !v.Kind.primitive() {
			return nil, fmt.Errorf("unknown value type %q", v.Kind)
		}
		return json.Marshal(string(v.Kind))
	}
}

func (v *ValueType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value type")
	}

	switch data[0] {
	case '"':
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return err
		}
		kind := Kind(tag)
		if !kind.primitive() {
			return fmt.Errorf("unknown value type %q", tag)
		}
		*v = ValueType{Kind: kind}
		return nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return err
		}
		if len(wrapper) != 1 {
			return fmt.Errorf("value type object must have exactly one key, got %d", len(wrapper))
		}
		for tag, body := range wrapper {
			return v.decodeComposite(Kind(tag), body)
		}
	}
	return fmt.Errorf("value type must be a string or object, got %s", data)
}

func (v *ValueType) decodeComposite(kind Kind, body json.RawMessage) error {
	switch kind {
	case KindList:
		var items []ValueType
		if err := decodeNonNull(body, &items); err != nil {
			return fmt.Errorf("List: %w", err)
		}
		*v = ListOf(items...)
		return nil
	case KindMap:
		var fields map[string]ValueType
		if err := decodeNonNull(body, &fields); err != nil {
			return fmt.Errorf("Map: %w", err)
		}
		*v = MapOf(fields)
		return nil
	default:
		return fmt.Errorf("unknown composite value type %q", kind)
	}
}

func decodeNonNull(body json.RawMessage, target any) error {
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return fmt.Errorf("must not be null")
	}
	return json.Unmarshal(body, target)
}
