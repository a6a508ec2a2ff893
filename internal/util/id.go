package util

import "github.com/google/uuid"

// NewID returns a random UUID string. Entity and request IDs share the
// same format so they stay copy-pasteable between logs and the database.
func NewID() string {
	return uuid.NewString()
}
