package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"credstore/pkg/platform/sentinel"
)

// Stores return these when a write points at a schema or key that does not
// exist. Both match sentinel.ErrNotFound.
var (
	ErrUnknownSchema = fmt.Errorf("schema %w", sentinel.ErrNotFound)
	ErrUnknownKey    = fmt.Errorf("public key %w", sentinel.ErrNotFound)
)

// Credential is a JSON payload bound to a schema and optionally to a key.
// Nil pointer fields and a nil Data mean absent.
type Credential struct {
	ID          *int64          `json:"id"`
	SchemaID    *int64          `json:"schema_id"`
	PublicKeyID *int64          `json:"public_key_id"`
	FingerPrint *string         `json:"finger_print"`
	Data        json.RawMessage `json:"data"`
}

func (c Credential) RecordID() (int64, bool) {
	if c.ID == nil {
		return 0, false
	}
	return *c.ID, true
}

func (c Credential) WithID(id int64) Credential {
	c.ID = &id
	return c
}

// HasData reports whether Data holds a value other than JSON null.
func (c Credential) HasData() bool {
	trimmed := bytes.TrimSpace(c.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
