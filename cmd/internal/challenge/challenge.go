package challenge

import "time"

// ChannelEmail is the only delivery channel currently issued. The column
// exists so future channels don't need a schema change.
const ChannelEmail = "email"

// Challenge is one outstanding OTP attempt. CodeHash is immutable after
// creation; the plaintext code is never persisted.
type Challenge struct {
	ID         string
	UserID     string
	CodeHash   string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	Channel    string
}

// Consumed reports whether the challenge reached its terminal consumed state.
func (c Challenge) Consumed() bool { return c.ConsumedAt != nil }

// Expired reports whether the challenge window has passed at the given time.
// Expiry is a timestamp property; record presence is irrelevant.
func (c Challenge) Expired(now time.Time) bool { return !c.ExpiresAt.After(now) }
