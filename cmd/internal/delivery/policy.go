package delivery

// Policy decides what the login API tells the client after a dispatch.
type Policy struct {
	// AllowCodeFallback permits returning the plaintext code in the
	// HTTP response when no transport delivered. Off by default; the
	// fallback defeats the point of the email step and exists for
	// environments without a mail provider.
	AllowCodeFallback bool
}

// Decision is what the API layer does with a dispatch outcome.
type Decision struct {
	// ReportSuccess is whether the response claims the email was sent.
	ReportSuccess bool

	// ExposeCode is whether the response carries the plaintext code.
	ExposeCode bool
}

// Decide maps a dispatch outcome to a client-facing decision. Delivery
// failure is absorbed either way: the challenge stays valid, and the
// only question is whether the client gets the code directly.
func (p Policy) Decide(out Outcome) Decision {
	if out.Delivered {
		return Decision{ReportSuccess: true}
	}
	return Decision{ExposeCode: p.AllowCodeFallback}
}
