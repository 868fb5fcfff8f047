package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gatekey/cmd/identity"
	"gatekey/cmd/internal/challenge"
	"gatekey/cmd/internal/delivery"
	"gatekey/cmd/internal/metrics"
)

// CodeSender dispatches one login code. Satisfied by
// *delivery.Dispatcher.
type CodeSender interface {
	Send(ctx context.Context, msg delivery.Message) delivery.Outcome
}

// Deps are the collaborators the handler needs. Pool may be nil when
// the service runs against in-memory stores; audit records and
// throttling are skipped in that mode.
type Deps struct {
	Pool       *pgxpool.Pool
	Accounts   identity.Store
	Challenges *challenge.Service
	Sender     CodeSender
	Policy     delivery.Policy
}

// Handler wires the login-flow HTTP endpoints to their services.
type Handler struct {
	log *slog.Logger
	cfg Config

	pool       *pgxpool.Pool
	accounts   identity.Store
	challenges *challenge.Service
	sender     CodeSender
	policy     delivery.Policy

	dummyHash string
}

// NewHandler constructs the auth Handler.
func NewHandler(log *slog.Logger, cfg Config, deps Deps) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if deps.Accounts == nil {
		return nil, errors.New("auth: nil account store")
	}
	if deps.Challenges == nil {
		return nil, errors.New("auth: nil challenge service")
	}
	if deps.Sender == nil {
		return nil, errors.New("auth: nil code sender")
	}

	h := &Handler{
		log:        log,
		cfg:        cfg,
		pool:       deps.Pool,
		accounts:   deps.Accounts,
		challenges: deps.Challenges,
		sender:     deps.Sender,
		policy:     deps.Policy,
	}

	// Dummy hash for timing-resistant sign-in checks.
	if hash, err := identity.HashPassword("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/auth/signup", h.handleSignup)
	mux.HandleFunc("/api/auth/signin", h.handleSignin)
	mux.HandleFunc("/api/auth/send-code", h.handleSendCode)
	mux.HandleFunc("/api/auth/verify", h.handleVerify)
}

// ---- handlers ----

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req signupRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	email := identity.NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	user, err := h.accounts.CreateUser(ctx, identity.CreateUserInput{
		Name:     name,
		Email:    email,
		Password: req.Password,
		Now:      now,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "Email already in use")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		default:
			h.log.Error("auth.signup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.log.Info("auth.signup.ok", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, signupResponse{User: toUserResponse(user)})
}

func (h *Handler) handleSignin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req signinRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := identity.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	// Throttle before touching account data.
	if blocked, retryAfter, err := h.checkSigninIPThrottle(ctx, ip, now); err != nil {
		h.log.Error("auth.signin.throttle_ip.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "Please retry later")
		return
	} else if blocked {
		metrics.SigninTotal.WithLabelValues("throttled").Inc()
		h.auditSigninRateLimited(ctx, ip, ua, email, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}
	if blocked, retryAfter, err := h.checkSigninIdentifierThrottle(ctx, email, now); err != nil {
		h.log.Error("auth.signin.throttle_identifier.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "Please retry later")
		return
	} else if blocked {
		metrics.SigninTotal.WithLabelValues("throttled").Inc()
		h.auditSigninRateLimited(ctx, ip, ua, email, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	userAuth, err := h.accounts.GetUserAuthByEmail(ctx, email)
	if err != nil {
		if !identity.IsNotFound(err) {
			h.log.Error("auth.signin.lookup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		// Timing resistance: perform a dummy verify when user is missing.
		if h.dummyHash != "" {
			_, _ = identity.VerifyPassword(req.Password, h.dummyHash)
		}
		metrics.SigninTotal.WithLabelValues("invalid_credentials").Inc()
		h.auditSigninFailed(ctx, nil, ip, ua, email, "not_found")
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	okPw, err := identity.VerifyPassword(req.Password, userAuth.PasswordHash)
	if err != nil || !okPw {
		metrics.SigninTotal.WithLabelValues("invalid_credentials").Inc()
		h.auditSigninFailed(ctx, &userAuth.User.ID, ip, ua, email, "bad_password")
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	metrics.SigninTotal.WithLabelValues("ok").Inc()
	h.auditSigninSuccess(ctx, &userAuth.User.ID, ip, ua, email)

	resp, ok := h.issueChallenge(ctx, w, userAuth.User, now)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSendCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req sendCodeRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := identity.NormalizeEmail(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	userAuth, err := h.accounts.GetUserAuthByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("auth.send_code.lookup.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp, ok := h.issueChallenge(ctx, w, userAuth.User, now)
	if !ok {
		return
	}
	if resp.EmailSent {
		resp.Message = "Code sent to your email"
	} else {
		resp.Message = "Could not confirm delivery"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req verifyRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	challengeID := strings.TrimSpace(req.ChallengeID)
	code := strings.TrimSpace(req.Code)
	if challengeID == "" || code == "" {
		writeError(w, http.StatusBadRequest, "Challenge id and code are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	res, err := h.challenges.Verify(ctx, challengeID, code, now)
	if err != nil {
		switch {
		case errors.Is(err, challenge.ErrNotFound), errors.Is(err, challenge.ErrInvalidInput):
			metrics.VerifyTotal.WithLabelValues("not_found").Inc()
			h.auditVerifyFailed(ctx, ip, ua, challengeID, "not_found")
			writeError(w, http.StatusBadRequest, "Invalid or expired challenge")
		case errors.Is(err, challenge.ErrConsumed):
			metrics.VerifyTotal.WithLabelValues("consumed").Inc()
			h.auditVerifyFailed(ctx, ip, ua, challengeID, "consumed")
			writeError(w, http.StatusBadRequest, "This code has already been used")
		case errors.Is(err, challenge.ErrExpired):
			metrics.VerifyTotal.WithLabelValues("expired").Inc()
			h.auditVerifyFailed(ctx, ip, ua, challengeID, "expired")
			writeError(w, http.StatusBadRequest, "Code expired")
		case errors.Is(err, challenge.ErrCodeMismatch):
			metrics.VerifyTotal.WithLabelValues("mismatch").Inc()
			h.auditVerifyFailed(ctx, ip, ua, challengeID, "mismatch")
			writeError(w, http.StatusUnauthorized, "Invalid code")
		default:
			metrics.VerifyTotal.WithLabelValues("error").Inc()
			h.log.Error("auth.verify.fail", "err", err, "challenge_id", challengeID)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	user, err := h.accounts.GetUserByID(ctx, res.UserID)
	if err != nil {
		metrics.VerifyTotal.WithLabelValues("error").Inc()
		h.log.Error("auth.verify.user_lookup.fail", "err", err, "user_id", res.UserID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	metrics.VerifyTotal.WithLabelValues("ok").Inc()
	h.auditVerifySuccess(ctx, &user.ID, ip, ua, challengeID)
	h.log.Info("auth.verify.ok", "user_id", user.ID, "challenge_id", challengeID)
	writeJSON(w, http.StatusOK, verifyResponse{User: toUserResponse(user)})
}

// issueChallenge creates a fresh login challenge for the user and
// attempts delivery. Delivery failure is not a request failure: the
// challenge stays valid and the response reports whether the email went
// out. On a create error the HTTP error is already written and ok is
// false.
func (h *Handler) issueChallenge(ctx context.Context, w http.ResponseWriter, user identity.User, now time.Time) (challengeResponse, bool) {
	created, err := h.challenges.Create(ctx, user.ID, now)
	if err != nil {
		h.log.Error("auth.challenge.create.fail", "err", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return challengeResponse{}, false
	}

	out := h.sender.Send(ctx, delivery.Message{
		To:   user.Email,
		Code: created.Code,
		TTL:  h.challenges.TTL(),
	})
	decision := h.policy.Decide(out)

	resp := challengeResponse{
		ChallengeID: created.Challenge.ID,
		Email:       user.Email,
		EmailSent:   decision.ReportSuccess,
		ShowCode:    decision.ExposeCode,
	}
	if decision.ExposeCode {
		resp.Code = created.Code
	}
	return resp, true
}

// ---- request metadata ----

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
