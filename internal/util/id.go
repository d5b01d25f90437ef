package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a URL-safe identifier (a UUIDv4 without dashes).
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
