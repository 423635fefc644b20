package models

// Schema is a registered schema. A nil Schema field means absent.
type Schema struct {
	ID     *int64   `json:"id"`
	Schema BaseType `json:"schema"`
}

func (s Schema) RecordID() (int64, bool) {
	if s.ID == nil {
		return 0, false
	}
	return *s.ID, true
}

func (s Schema) WithID(id int64) Schema {
	s.ID = &id
	return s
}
