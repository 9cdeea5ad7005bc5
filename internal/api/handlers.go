// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

// Package api exposes the mobile-facing HTTP endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/safechain/safechain/internal/account"
	"github.com/safechain/safechain/internal/mail"
	"github.com/safechain/safechain/internal/observability"
	"github.com/safechain/safechain/pkg/errutil"
)

// AccountService covers the credential operations the handlers need.
type AccountService interface {
	Register(ctx context.Context, in account.RegisterInput) (*account.Account, error)
	Login(ctx context.Context, email, password string) (*account.Account, error)
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error
}

// ResetService covers the password reset operations the handlers need.
type ResetService interface {
	RequestReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// mailTimeout bounds the asynchronous reset email dispatch.
const mailTimeout = 30 * time.Second

// forgotPasswordMessage is returned for every forgot-password request so the
// response never reveals whether an account exists.
const forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."

// Handler serves the account lifecycle endpoints.
type Handler struct {
	accounts     AccountService
	resets       ResetService
	dispatcher   mail.Dispatcher
	metrics      *observability.Metrics
	logger       *slog.Logger
	resetBaseURL string

	// Tracks in-flight reset email goroutines so shutdown can drain them.
	mailWG sync.WaitGroup
}

// NewHandler creates the endpoint handler.
func NewHandler(accounts AccountService, resets ResetService, dispatcher mail.Dispatcher,
	metrics *observability.Metrics, logger *slog.Logger, resetBaseURL string,
) (*Handler, error) {
	if accounts == nil {
		return nil, oops.Code("HANDLER_INVALID").Errorf("account service is required")
	}
	if resets == nil {
		return nil, oops.Code("HANDLER_INVALID").Errorf("reset service is required")
	}
	if dispatcher == nil {
		return nil, oops.Code("HANDLER_INVALID").Errorf("mail dispatcher is required")
	}
	if resetBaseURL == "" {
		return nil, oops.Code("HANDLER_INVALID").Errorf("reset base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		accounts:     accounts,
		resets:       resets,
		dispatcher:   dispatcher,
		metrics:      metrics,
		logger:       logger,
		resetBaseURL: resetBaseURL,
	}, nil
}

// RegisterRoutes attaches the mobile endpoints to the router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	mobile := r.Group("/api/mobile")
	mobile.POST("/register", h.handleRegister)
	mobile.POST("/login", h.handleLogin)
	mobile.POST("/change-password", h.handleChangePassword)
	mobile.POST("/forgot-password", h.handleForgotPassword)
	mobile.POST("/reset-password", h.handleResetPassword)
}

// Wait blocks until all in-flight reset emails have been dispatched.
func (h *Handler) Wait() {
	h.mailWG.Wait()
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	Contact  string `json:"contact"`
}

func (h *Handler) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := h.accounts.Register(c.Request.Context(), account.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Address:  req.Address,
		Contact:  req.Contact,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "registration successful", gin.H{
		"account_id": acct.AccountID,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// accountView is the client-facing account shape; the password hash is never
// serialized.
type accountView struct {
	AccountID    string    `json:"account_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	Contact      string    `json:"contact"`
	RegisteredAt time.Time `json:"registered_at"`
}

func newAccountView(a *account.Account) accountView {
	return accountView{
		AccountID:    a.AccountID,
		Name:         a.Name,
		Email:        a.Email,
		Address:      a.Address,
		Contact:      a.Contact,
		RegisteredAt: a.RegisteredAt,
	}
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, "login successful", gin.H{
		"user": newAccountView(acct),
	})
}

type changePasswordRequest struct {
	AccountID       string `json:"account_id"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.accounts.ChangePassword(c.Request.Context(), req.AccountID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, "password changed successfully", nil)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.resets.RequestReset(c.Request.Context(), req.Email)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	// An empty token means no live account matched; the response is identical
	// either way.
	if token != "" {
		if h.metrics != nil {
			h.metrics.ResetTokensIssuedTotal.Inc()
		}
		h.dispatchResetEmail(req.Email, token)
	}

	respondSuccess(c, http.StatusOK, forgotPasswordMessage, nil)
}

// dispatchResetEmail sends the reset link without blocking the request.
// Failures are logged and counted, never surfaced to the caller.
func (h *Handler) dispatchResetEmail(email, token string) {
	link := h.resetBaseURL + "/reset-password-page?token=" + url.QueryEscape(token)

	h.mailWG.Add(1)
	go func() {
		defer h.mailWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()

		if err := h.dispatcher.SendPasswordReset(ctx, email, link); err != nil {
			errutil.LogError(h.logger, "failed to send password reset email", err)
			if h.metrics != nil {
				h.metrics.ResetEmailsFailedTotal.Inc()
			}
		}
	}()
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.resets.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusOK, "password has been reset successfully", nil)
}
