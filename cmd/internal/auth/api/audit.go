package api

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"
)

func (h *Handler) auditSigninFailed(ctx context.Context, userID *string, ip net.IP, ua string, identifier string, reason string) {
	h.insertAudit(ctx, "auth.signin.failed", userID, ip, ua, identifier, map[string]any{
		"reason": reason,
	})
}

func (h *Handler) auditSigninSuccess(ctx context.Context, userID *string, ip net.IP, ua string, identifier string) {
	h.insertAudit(ctx, "auth.signin.success", userID, ip, ua, identifier, nil)
}

func (h *Handler) auditSigninRateLimited(ctx context.Context, ip net.IP, ua string, identifier string, retryAfter time.Duration) {
	h.insertAudit(ctx, "auth.signin.rate_limited", nil, ip, ua, identifier, map[string]any{
		"retry_after_s": int64(retryAfter.Seconds()),
	})
}

func (h *Handler) auditVerifyFailed(ctx context.Context, ip net.IP, ua string, challengeID string, reason string) {
	h.insertAudit(ctx, "auth.verify.failed", nil, ip, ua, "", map[string]any{
		"challenge_id": challengeID,
		"reason":       reason,
	})
}

func (h *Handler) auditVerifySuccess(ctx context.Context, userID *string, ip net.IP, ua string, challengeID string) {
	h.insertAudit(ctx, "auth.verify.success", userID, ip, ua, "", map[string]any{
		"challenge_id": challengeID,
	})
}

// insertAudit records one auth event. Skipped entirely when no database
// pool is wired (in-memory mode); audit failures are logged, never
// surfaced to the client.
//
// Expected schema (managed externally):
//
//	gatekey.audit_log (
//	    id         bigserial primary key,
//	    user_id    text,
//	    action     text not null,
//	    identifier text,
//	    created_at timestamptz not null,
//	    ip         text,
//	    user_agent text,
//	    meta       jsonb
//	)
func (h *Handler) insertAudit(ctx context.Context, action string, userID *string, ip net.IP, ua string, identifier string, meta map[string]any) {
	if h == nil || h.pool == nil {
		return
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	var ipVal any
	if ip != nil {
		ipVal = ip.String()
	}

	var metaVal *string
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO gatekey.audit_log (
			user_id, action, identifier, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, now(), $4, $5, $6::jsonb)
	`, userID, action, trimOrNil(identifier), ipVal, trimOrNil(ua), metaVal)
	if err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
