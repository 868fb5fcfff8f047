// Package delivery sends login codes to users over an ordered list of
// mail transports. The dispatcher tries each transport in turn with a
// per-attempt timeout and reports an Outcome instead of an error: code
// delivery failing is a normal, expected condition the login flow must
// absorb, not a request failure.
package delivery
