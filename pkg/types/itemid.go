package types

import (
	"crypto/sha1"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ItemID is a SHA-1 content hash identifying one input item (20 bytes).
type ItemID [20]byte

// ComputeItemID hashes raw item bytes: SHA-1("item {len}\0{content}").
func ComputeItemID(content []byte) ItemID {
	header := fmt.Sprintf("item %d\x00", len(content))
	h := sha1.New()
	h.Write([]byte(header))
	h.Write(content)

	var id ItemID
	copy(id[:], h.Sum(nil))
	return id
}

// ComputeValueID hashes the canonical JSON encoding of v, so the same
// structured item always maps to the same ID regardless of its source layout.
// The encoding that was hashed is returned with the ID.
func ComputeValueID(v Value) (ItemID, []byte, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return ItemID{}, nil, fmt.Errorf("encoding item: %w", err)
	}
	return ComputeItemID(data), data, nil
}

// Hex returns 40-character hex string.
func (id ItemID) Hex() string {
	return hex.EncodeToString(id[:])
}

// String implements Stringer (returns Hex()).
func (id ItemID) String() string {
	return id.Hex()
}

// ParseItemID parses 40-char hex string to ItemID.
func ParseItemID(hexStr string) (ItemID, error) {
	if len(hexStr) != 40 {
		return ItemID{}, fmt.Errorf("invalid item ID length: expected 40, got %d", len(hexStr))
	}

	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return ItemID{}, fmt.Errorf("invalid hex string: %w", err)
	}

	var id ItemID
	copy(id[:], decoded)
	return id, nil
}

// MarshalJSON implements json.Marshaler.
func (id ItemID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Hex())
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}
	parsed, err := ParseItemID(hexStr)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Value implements driver.Valuer for SQL serialization.
func (id ItemID) Value() (driver.Value, error) {
	return id.Hex(), nil
}

// Scan implements sql.Scanner for SQL deserialization.
func (id *ItemID) Scan(value interface{}) error {
	var hexStr string
	switch v := value.(type) {
	case string:
		hexStr = v
	case []byte:
		hexStr = string(v)
	case nil:
		return fmt.Errorf("cannot scan nil into ItemID")
	default:
		return fmt.Errorf("cannot scan type %T into ItemID", value)
	}

	parsed, err := ParseItemID(hexStr)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
