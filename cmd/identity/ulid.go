package identity

import (
	"time"

	"gatekey/cmd/identity/ids"
)

// NewULID returns a new ULID (26-char string) used for account ids.
func NewULID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
