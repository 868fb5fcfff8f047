// Package challenge implements the login-challenge lifecycle: a short-lived
// record holding the digest of an emailed one-time code, verified at most
// once.
//
// A challenge is always in exactly one of three states: pending (not yet
// consumed, not yet expired), consumed (terminal), or expired (terminal).
// The transition to consumed happens only through the store's TryConsume,
// a single conditional update; the service's hash comparison is a fast-path
// filter, never the authority for single use.
package challenge
