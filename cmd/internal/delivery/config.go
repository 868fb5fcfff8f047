package delivery

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries mail delivery settings loaded from the environment.
type Config struct {
	// Host is the SMTP server to submit through. Empty disables mail
	// delivery entirely.
	Host string

	// From is the sender address on outgoing code emails.
	From string

	// Credentials authenticate against Host. Optional.
	Credentials SMTPCredentials

	// Endpoints are the profile/port combinations to try, in order.
	Endpoints []SMTPEndpoint

	// AttemptTimeout bounds each individual transport attempt.
	AttemptTimeout time.Duration

	// AllowCodeFallback lets the API return the plaintext code to the
	// client when no transport delivers. Meant for dev and staging
	// setups without a mail provider; keep it off in production.
	AllowCodeFallback bool
}

// DefaultConfig returns delivery defaults: no host (delivery disabled),
// smtps:465 then starttls:587 once a host is set, 20s per attempt, and
// no code fallback.
func DefaultConfig() Config {
	return Config{
		AttemptTimeout: defaultAttemptTimeout,
	}
}

// LoadConfigFromEnv reads GATEKEY_SMTP_* and GATEKEY_MAIL_* variables
// over DefaultConfig. Malformed values fall back to defaults with a
// warning rather than failing startup.
//
//	GATEKEY_SMTP_HOST                 SMTP server hostname (empty disables mail)
//	GATEKEY_SMTP_FROM                 sender address
//	GATEKEY_SMTP_USERNAME             auth username (optional)
//	GATEKEY_SMTP_PASSWORD             auth password (optional)
//	GATEKEY_SMTP_PROFILES             ordered list, e.g. "smtps:465,starttls:587"
//	GATEKEY_SMTP_ATTEMPT_TIMEOUT      per-attempt timeout (default 20s)
//	GATEKEY_MAIL_ALLOW_CODE_FALLBACK  expose the code on delivery failure (default false)
func LoadConfigFromEnv(log *slog.Logger) Config {
	if log == nil {
		log = slog.Default()
	}
	cfg := DefaultConfig()

	cfg.Host = strings.TrimSpace(os.Getenv("GATEKEY_SMTP_HOST"))
	cfg.From = strings.TrimSpace(os.Getenv("GATEKEY_SMTP_FROM"))
	cfg.Credentials = SMTPCredentials{
		Username: strings.TrimSpace(os.Getenv("GATEKEY_SMTP_USERNAME")),
		Password: os.Getenv("GATEKEY_SMTP_PASSWORD"),
	}

	profiles := strings.TrimSpace(os.Getenv("GATEKEY_SMTP_PROFILES"))
	if profiles == "" {
		profiles = "smtps:465,starttls:587"
	}
	eps, err := parseProfiles(profiles)
	if err != nil {
		log.Warn("config.invalid", "key", "GATEKEY_SMTP_PROFILES", "value", profiles, "err", err)
		eps, _ = parseProfiles("smtps:465,starttls:587")
	}
	for i := range eps {
		eps[i].Host = cfg.Host
	}
	cfg.Endpoints = eps

	if raw := strings.TrimSpace(os.Getenv("GATEKEY_SMTP_ATTEMPT_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > 5*time.Minute {
			log.Warn("config.invalid", "key", "GATEKEY_SMTP_ATTEMPT_TIMEOUT", "value", raw)
		} else {
			cfg.AttemptTimeout = d
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GATEKEY_MAIL_ALLOW_CODE_FALLBACK")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			log.Warn("config.invalid", "key", "GATEKEY_MAIL_ALLOW_CODE_FALLBACK", "value", raw)
		} else {
			cfg.AllowCodeFallback = b
		}
	}

	return cfg
}

// parseProfiles turns "smtps:465,starttls:587" into endpoints. Hosts
// are filled in by the caller.
func parseProfiles(raw string) ([]SMTPEndpoint, error) {
	var out []SMTPEndpoint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, portStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("missing port in %q", part)
		}
		port, err := strconv.Atoi(strings.TrimSpace(portStr))
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("bad port in %q", part)
		}
		profile := SMTPProfile(strings.ToLower(strings.TrimSpace(name)))
		switch profile {
		case ProfileSMTPS, ProfileSTARTTLS:
		default:
			return nil, fmt.Errorf("unknown profile in %q", part)
		}
		out = append(out, SMTPEndpoint{Port: port, Profile: profile})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no endpoints")
	}
	return out, nil
}

// BuildTransports constructs SMTP transports from the config, one per
// endpoint, in order. With no host or from address configured it
// returns an empty list and the dispatcher reports not_configured.
func (c Config) BuildTransports() ([]Transport, error) {
	if c.Host == "" || c.From == "" {
		return nil, nil
	}
	transports := make([]Transport, 0, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		tr, err := NewSMTPTransport(ep, c.Credentials, c.From, c.AttemptTimeout)
		if err != nil {
			return nil, err
		}
		transports = append(transports, tr)
	}
	return transports, nil
}
