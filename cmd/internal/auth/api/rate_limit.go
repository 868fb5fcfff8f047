package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sign-in throttling counts recent failed attempts in the audit log.
// Without a database pool (in-memory mode) both checks are no-ops.

func (h *Handler) checkSigninIPThrottle(ctx context.Context, ip net.IP, now time.Time) (bool, time.Duration, error) {
	if h.pool == nil || ip == nil || h.cfg.SigninIPMax <= 0 {
		return false, 0, nil
	}
	cut := now.Add(-h.cfg.SigninIPWindow)
	count, err := countSigninFailuresByIP(ctx, h.pool, ip, cut)
	if err != nil {
		return false, 0, err
	}
	if count >= h.cfg.SigninIPMax {
		return true, h.cfg.SigninIPWindow, nil
	}
	return false, 0, nil
}

func (h *Handler) checkSigninIdentifierThrottle(ctx context.Context, identifier string, now time.Time) (bool, time.Duration, error) {
	if h.pool == nil || identifier == "" || h.cfg.SigninIdentifierMax <= 0 {
		return false, 0, nil
	}
	cut := now.Add(-h.cfg.SigninIdentifierWindow)
	count, err := countSigninFailuresByIdentifier(ctx, h.pool, identifier, cut)
	if err != nil {
		return false, 0, err
	}
	if count >= h.cfg.SigninIdentifierMax {
		return true, h.cfg.SigninIdentifierWindow, nil
	}
	return false, 0, nil
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	}
	writeError(w, http.StatusTooManyRequests, "Too many attempts, please retry later")
}

// ---- audit queries ----

func countSigninFailuresByIP(ctx context.Context, pool *pgxpool.Pool, ip net.IP, since time.Time) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM gatekey.audit_log
		WHERE action = 'auth.signin.failed'
		  AND ip = $1
		  AND created_at >= $2
	`, ip.String(), since).Scan(&n)
	return n, err
}

func countSigninFailuresByIdentifier(ctx context.Context, pool *pgxpool.Pool, identifier string, since time.Time) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM gatekey.audit_log
		WHERE action = 'auth.signin.failed'
		  AND identifier = $1
		  AND created_at >= $2
	`, identifier, since).Scan(&n)
	return n, err
}
