package pkguid

import "github.com/google/uuid"

// UUID generates time-ordered (version 7) UUID strings, so file ids sort by
// upload time.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new UUID string. It falls back to a random (version 4)
// UUID if the clock-based generator fails.
func (u *UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ValidUUID reports whether s is a canonical UUID string.
func ValidUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
