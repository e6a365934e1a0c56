package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/api/respond"
	middleware "github.com/gichigi/choir/internal/api/middlewares"
	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/services"
)

type AuthHandler struct {
	accounts *services.AccountService
	subs     *services.SubscriptionService
	log      *zap.Logger
}

func NewAuthHandler(accounts *services.AccountService, subs *services.SubscriptionService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, subs: subs, log: log}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type authResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
}

// the cookie lets the dashboard pages pass the route gate
func setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(services.TokenTTL),
	})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	account, token, err := h.accounts.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	h.log.Info("account created", zap.String("account_id", account.ID))
	setTokenCookie(w, token)
	respond.JSON(w, http.StatusCreated, authResponse{Token: token, AccountID: account.ID, Email: account.Email})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	account, token, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	setTokenCookie(w, token)
	respond.JSON(w, http.StatusOK, authResponse{Token: token, AccountID: account.ID, Email: account.Email})
}

type meResponse struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Entitled  bool   `json:"entitled"`
}

// Me is the identity check combined with the subscription check.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())
	account, err := h.accounts.Get(r.Context(), accountID)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if account == nil {
		respond.Error(w, h.log, core.ErrNotAuthenticated)
		return
	}

	entitled, err := h.subs.HasActiveEntitlement(r.Context(), accountID)
	if err != nil {
		h.log.Warn("entitlement check failed", zap.String("account_id", accountID), zap.Error(err))
		entitled = false
	}
	respond.JSON(w, http.StatusOK, meResponse{
		AccountID: account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Entitled:  entitled,
	})
}
