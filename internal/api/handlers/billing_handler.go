package handlers

import (
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/api/respond"
	middleware "github.com/gichigi/choir/internal/api/middlewares"
	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/services"
)

// SignatureHeader carries the hex HMAC-SHA256 of a webhook body.
const SignatureHeader = "X-Billing-Signature"

const maxWebhookBytes = 1 << 20

type BillingHandler struct {
	subs *services.SubscriptionService
	log  *zap.Logger
}

func NewBillingHandler(subs *services.SubscriptionService, log *zap.Logger) *BillingHandler {
	return &BillingHandler{subs: subs, log: log}
}

func (h *BillingHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.subs.Status(r.Context(), middleware.AccountID(r.Context()))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, st)
}

func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		respond.Error(w, h.log, fmt.Errorf("%w: unreadable body", core.ErrValidation))
		return
	}

	applied, err := h.subs.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"received": true, "applied": applied})
}
