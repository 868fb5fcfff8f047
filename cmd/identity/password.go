package identity

import (
	"errors"

	"gatekey/cmd/security/password"
)

// HashPassword returns a PHC-style Argon2id hash string using the
// security/password configuration (env + defaults).
//
// The historical minimum of 6 characters is enforced even if env policy is
// looser; stricter env policy wins.
func HashPassword(plain string) (string, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		// Invalid env is an operational error, not a weak fallback.
		return "", err
	}
	if cfg.Policy.MinLength < 6 {
		cfg.Policy.MinLength = 6
	}

	enc, err := cfg.Hash(plain)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort):
			return "", OpError{Op: "identity.HashPassword", Kind: ErrInvalidInput, Msg: "password too short"}
		case errors.Is(err, password.ErrPasswordTooLong):
			return "", OpError{Op: "identity.HashPassword", Kind: ErrInvalidInput, Msg: "password too long"}
		default:
			return "", err
		}
	}
	return enc, nil
}

// VerifyPassword checks a plaintext password against a PHC Argon2id hash.
// Malformed hashes verify as false with an error rather than panicking.
func VerifyPassword(plain, encodedPHC string) (bool, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return false, err
	}

	ok, err := cfg.Verify(encodedPHC, plain)
	if err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			return false, errors.New("invalid argon2id hash format")
		}
		return false, err
	}
	return ok, nil
}
