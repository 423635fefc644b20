package models

// CryptographicKey is a registered public key. A nil PublicKey means absent.
type CryptographicKey struct {
	ID        *int64  `json:"id"`
	PublicKey *string `json:"public_key"`
}

func (k CryptographicKey) RecordID() (int64, bool) {
	if k.ID == nil {
		return 0, false
	}
	return *k.ID, true
}

func (k CryptographicKey) WithID(id int64) CryptographicKey {
	k.ID = &id
	return k
}
