// Package password provides Argon2id password hashing for Gatekey.
//
// Hashes use a PHC-style encoded string so parameters travel with the hash.
// Verification treats stored hashes as untrusted input: strict decoding plus
// upper bounds on the declared parameters.
package password
