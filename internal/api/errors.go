// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/safechain/safechain/pkg/errutil"
)

const internalErrorMessage = "an internal error occurred"

// statusByCode maps domain error codes to HTTP status codes. Codes present
// here carry user-safe messages; anything else is treated as internal.
var statusByCode = map[string]int{
	"ACCOUNT_INVALID_INPUT":       http.StatusBadRequest,
	"ACCOUNT_DUPLICATE_EMAIL":     http.StatusConflict,
	"ACCOUNT_INVALID_CREDENTIALS": http.StatusUnauthorized,
	"ACCOUNT_WRONG_PASSWORD":      http.StatusUnauthorized,
	"ACCOUNT_NOT_FOUND":           http.StatusNotFound,
	"RESET_TOKEN_INVALID":         http.StatusBadRequest,
	"RESET_TOKEN_EXPIRED":         http.StatusBadRequest,
}

// respondServiceError maps a service error onto the envelope. Known domain
// codes pass their message through; everything else is logged and returned
// as a generic 500 so no internal detail leaks to clients.
func respondServiceError(c *gin.Context, logger *slog.Logger, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, isStr := oopsErr.Code().(string); isStr {
			if status, known := statusByCode[code]; known {
				respondError(c, status, oopsErr.Error())
				return
			}
		}
	}

	errutil.LogError(logger, "request failed", err)
	respondError(c, http.StatusInternalServerError, internalErrorMessage)
}
