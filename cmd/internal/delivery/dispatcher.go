package delivery

import (
	"context"
	"log/slog"
	"time"
)

// FailureReason classifies why a dispatch produced no delivery.
type FailureReason string

const (
	// ReasonNotConfigured means no transports were configured at all.
	ReasonNotConfigured FailureReason = "not_configured"

	// ReasonAllTransportsExhausted means every configured transport was
	// attempted and none succeeded within its attempt window.
	ReasonAllTransportsExhausted FailureReason = "all_transports_exhausted"
)

// Message is one login code to deliver.
type Message struct {
	// To is the recipient address.
	To string

	// Code is the plaintext login code.
	Code string

	// TTL is how long the code stays valid, used for message copy.
	TTL time.Duration
}

// Outcome reports how a dispatch ended. Exactly one of Delivered or
// Reason is meaningful: Delivered=true carries the winning transport
// name, Delivered=false carries the failure reason.
type Outcome struct {
	Delivered bool
	Transport string
	Reason    FailureReason
}

// Transport sends a single message over one channel, e.g. one SMTP
// endpoint profile. Send must honor ctx cancellation on a best-effort
// basis; the dispatcher abandons attempts that outlive their window.
type Transport interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// AttemptObserver is notified after each transport attempt. Used to
// feed metrics without the dispatcher importing them.
type AttemptObserver func(transport string, err error)

const defaultAttemptTimeout = 20 * time.Second

// Dispatcher walks an ordered transport list until one delivers.
type Dispatcher struct {
	log            *slog.Logger
	transports     []Transport
	attemptTimeout time.Duration
	observe        AttemptObserver
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAttemptTimeout bounds each individual transport attempt. Values
// outside (0, 5m] fall back to the 20s default.
func WithAttemptTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 && d <= 5*time.Minute {
			dp.attemptTimeout = d
		}
	}
}

// WithObserver registers a per-attempt callback.
func WithObserver(fn AttemptObserver) Option {
	return func(dp *Dispatcher) {
		dp.observe = fn
	}
}

// NewDispatcher builds a Dispatcher over the given transports, tried in
// order. A nil logger falls back to slog.Default().
func NewDispatcher(log *slog.Logger, transports []Transport, opts ...Option) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	dp := &Dispatcher{
		log:            log,
		transports:     transports,
		attemptTimeout: defaultAttemptTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(dp)
		}
	}
	return dp
}

// Send attempts delivery over each transport in order and stops at the
// first success. It never returns an error: the Outcome tells the
// caller whether the code reached the recipient, and the caller decides
// what that means for the login flow.
func (d *Dispatcher) Send(ctx context.Context, msg Message) Outcome {
	if len(d.transports) == 0 {
		d.log.Warn("delivery.skip", "reason", string(ReasonNotConfigured), "to", msg.To)
		return Outcome{Reason: ReasonNotConfigured}
	}

	for _, tr := range d.transports {
		start := time.Now()
		err := d.attempt(ctx, tr, msg)
		if d.observe != nil {
			d.observe(tr.Name(), err)
		}
		if err == nil {
			d.log.Info("delivery.sent",
				"transport", tr.Name(),
				"to", msg.To,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return Outcome{Delivered: true, Transport: tr.Name()}
		}
		d.log.Warn("delivery.attempt_failed",
			"transport", tr.Name(),
			"to", msg.To,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"err", err,
		)
	}

	d.log.Error("delivery.exhausted", "to", msg.To, "transports", len(d.transports))
	return Outcome{Reason: ReasonAllTransportsExhausted}
}

// attempt runs one transport send under the attempt timeout. The send
// runs in its own goroutine so a transport that ignores cancellation
// cannot stall the dispatch loop past the window; the goroutine is
// abandoned and drains into the buffered channel.
func (d *Dispatcher) attempt(ctx context.Context, tr Transport, msg Message) error {
	attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- tr.Send(attemptCtx, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		return attemptCtx.Err()
	}
}
