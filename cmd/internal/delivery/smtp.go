package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPProfile names a way of reaching an SMTP endpoint. The same host
// is often reachable both ways, and which one works depends on the
// network between us and the provider, so the dispatcher can carry one
// transport per profile.
type SMTPProfile string

const (
	// ProfileSMTPS uses implicit TLS, conventionally port 465.
	ProfileSMTPS SMTPProfile = "smtps"

	// ProfileSTARTTLS opens plaintext and upgrades, conventionally 587.
	ProfileSTARTTLS SMTPProfile = "starttls"
)

// SMTPEndpoint is one concrete host/port/profile combination.
type SMTPEndpoint struct {
	Host    string
	Port    int
	Profile SMTPProfile
}

// SMTPCredentials authenticate against the SMTP endpoint. Empty
// username means no AUTH.
type SMTPCredentials struct {
	Username string
	Password string
}

// SMTPTransport sends login codes through one SMTP endpoint.
type SMTPTransport struct {
	endpoint SMTPEndpoint
	creds    SMTPCredentials
	from     string
	timeout  time.Duration
}

// NewSMTPTransport builds a transport for one endpoint. The timeout
// bounds the underlying client's dial and command phases; the
// dispatcher enforces its own attempt window on top.
func NewSMTPTransport(ep SMTPEndpoint, creds SMTPCredentials, from string, timeout time.Duration) (*SMTPTransport, error) {
	if strings.TrimSpace(ep.Host) == "" {
		return nil, fmt.Errorf("delivery: smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("delivery: smtp from address is required")
	}
	if ep.Port <= 0 || ep.Port > 65535 {
		return nil, fmt.Errorf("delivery: invalid smtp port %d", ep.Port)
	}
	switch ep.Profile {
	case ProfileSMTPS, ProfileSTARTTLS:
	default:
		return nil, fmt.Errorf("delivery: unknown smtp profile %q", ep.Profile)
	}
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	return &SMTPTransport{endpoint: ep, creds: creds, from: from, timeout: timeout}, nil
}

// Name identifies the transport in logs and metrics, e.g. "smtps:465".
func (t *SMTPTransport) Name() string {
	return fmt.Sprintf("%s:%d", t.endpoint.Profile, t.endpoint.Port)
}

// Send connects, authenticates and submits one code email. A fresh
// client per send keeps the transport stateless; the volume here is one
// message per login, not a queue worth pooling connections for.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	opts := []mail.Option{
		mail.WithPort(t.endpoint.Port),
		mail.WithTimeout(t.timeout),
	}
	switch t.endpoint.Profile {
	case ProfileSMTPS:
		opts = append(opts, mail.WithSSL())
	case ProfileSTARTTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if t.creds.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.creds.Username),
			mail.WithPassword(t.creds.Password),
		)
	}

	client, err := mail.NewClient(t.endpoint.Host, opts...)
	if err != nil {
		return fmt.Errorf("delivery: smtp client: %w", err)
	}

	m := mail.NewMsg()
	if err := m.From(t.from); err != nil {
		return fmt.Errorf("delivery: from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("delivery: recipient address: %w", err)
	}
	m.Subject("Your login code")
	m.SetBodyString(mail.TypeTextPlain, codeBody(msg))

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("delivery: send via %s: %w", t.Name(), err)
	}
	return nil
}

func codeBody(msg Message) string {
	minutes := int(msg.TTL.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf(
		"Your login code is %s.\n\nIt expires in %d minutes. If you did not try to sign in, you can ignore this email.\n",
		msg.Code, minutes,
	)
}
