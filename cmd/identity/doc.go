// Package identity is Gatekey's account collaborator: user records with a
// unique email, Argon2id credential hashing, and the lookup surface the
// login-challenge flow needs (find by email, verify password, fetch by id).
//
// Account mutation policy beyond email uniqueness is intentionally out of
// scope; the challenge core only reads from this package.
package identity
