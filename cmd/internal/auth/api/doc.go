// Package api implements the HTTP surface of the two-step login flow:
// account signup, password check with code issuance, code re-send, and
// code verification. Handlers translate store and service errors into
// the wire contract and keep an audit trail of sign-in activity.
package api
