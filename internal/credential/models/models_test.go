package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialJSONShape(t *testing.T) {
	id, schemaID := int64(1), int64(2)
	fp := "ab:cd"
	raw, err := json.Marshal(Credential{
		ID:          &id,
		SchemaID:    &schemaID,
		FingerPrint: &fp,
		Data:        json.RawMessage(`{"a":true}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"schema_id":2,"public_key_id":null,"finger_print":"ab:cd","data":{"a":true}}`, string(raw))

	raw, err = json.Marshal(Credential{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":null,"schema_id":null,"public_key_id":null,"finger_print":null,"data":null}`, string(raw))
}

func TestCredentialHasData(t *testing.T) {
	assert.False(t, Credential{}.HasData())
	assert.False(t, Credential{Data: json.RawMessage(" null ")}.HasData())
	assert.True(t, Credential{Data: json.RawMessage(`{}`)}.HasData())
	assert.True(t, Credential{Data: json.RawMessage(`[]`)}.HasData())

	var c Credential
	require.NoError(t, json.Unmarshal([]byte(`{"schema_id":1,"data":null}`), &c))
	assert.False(t, c.HasData())
}

func TestCredentialWithID(t *testing.T) {
	c := Credential{}
	_, ok := c.RecordID()
	assert.False(t, ok)

	id, ok := c.WithID(5).RecordID()
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)
}
