package types

import (
	"time"

	"github.com/google/uuid"
)

// ID is a UUIDv7 resource identifier.
// String alias keeps template rendering and JSON serialization trivial.
type ID string

// NewID generates a UUIDv7 identifier.
// Time-ordered IDs keep inserts clustered in B-tree indexes.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewID() ID {
	return ID(uuid.Must(uuid.NewV7()).String())
}

// ParseID validates and converts a string to ID.
// Rejects malformed UUIDs so path parameters never reach the database unchecked.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return ID(u.String()), nil
}

// IDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func IDTime(id ID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }
