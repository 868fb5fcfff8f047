// Package otp provides the one-time login code primitives: generation of
// fixed-length numeric codes from a cryptographically strong source, and a
// one-way digest with constant-time verification for at-rest storage.
//
// The plaintext code never leaves this package through logs or errors.
package otp
