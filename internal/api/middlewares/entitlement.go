package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/api/respond"
	"github.com/gichigi/choir/internal/core"
)

// EntitlementChecker answers the subscription check for an account.
type EntitlementChecker interface {
	HasActiveEntitlement(ctx context.Context, accountID string) (bool, error)
}

// RequireEntitlement guards API routes that need an active subscription:
// 401 without identity, 402 with a billing redirect without entitlement.
func RequireEntitlement(checker EntitlementChecker, billingPath string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := AccountID(r.Context())
			if accountID == "" {
				respond.Error(w, log, core.ErrNotAuthenticated)
				return
			}
			ok, err := checker.HasActiveEntitlement(r.Context(), accountID)
			if err != nil {
				log.Warn("entitlement check failed", zap.String("account_id", accountID), zap.Error(err))
			}
			if err != nil || !ok {
				respond.Redirect(w, http.StatusPaymentRequired, core.ErrNotEntitled.Error(), billingPath)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DashboardGate guards browser pages. Anonymous visitors go to sign-in and
// accounts without entitlement go to billing, both via 303.
func DashboardGate(checker EntitlementChecker, signInPath, billingPath string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := AccountID(r.Context())
			if accountID == "" {
				http.Redirect(w, r, signInPath, http.StatusSeeOther)
				return
			}
			ok, err := checker.HasActiveEntitlement(r.Context(), accountID)
			if err != nil {
				log.Warn("entitlement check failed", zap.String("account_id", accountID), zap.Error(err))
			}
			if err != nil || !ok {
				http.Redirect(w, r, billingPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
