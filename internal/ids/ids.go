// Package ids generates identifiers for projects, clips, jobs and requests.
package ids

import "github.com/google/uuid"

// New returns a random UUID string.
func New() string {
	return uuid.NewString()
}

// Short returns the first 8 characters of a new ID, used for request IDs.
func Short() string {
	return New()[:8]
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
