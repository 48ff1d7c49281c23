package types

import (
	"time"

	"github.com/google/uuid"
)

// NewGrammarID generates a UUIDv7 grammar identifier.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewGrammarID() GrammarID {
	return GrammarID(uuid.Must(uuid.NewV7()).String())
}

// NewAPIKeyID generates a UUIDv7 API key identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewAPIKeyID() APIKeyID {
	return APIKeyID(uuid.Must(uuid.NewV7()).String())
}

// NewSecretID generates a secret identifier: a UUIDv7 without hyphens (32 hex chars).
func NewSecretID() string {
	u := uuid.Must(uuid.NewV7())
	out := make([]byte, 0, 32)
	for _, c := range u.String() {
		if c != '-' {
			out = append(out, byte(c))
		}
	}
	return string(out)
}

// ParseGrammarID validates and converts a string to GrammarID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseGrammarID(s string) (GrammarID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return GrammarID(s), nil
}

// GrammarIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func GrammarIDTime(id GrammarID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
