// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

package api

import "github.com/gin-gonic/gin"

// respondSuccess writes the uniform success envelope. Extra fields are merged
// alongside status and message.
func respondSuccess(c *gin.Context, code int, message string, extra gin.H) {
	body := gin.H{
		"status":  "success",
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(code, body)
}

// respondError writes the uniform error envelope.
func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"status":  "error",
		"message": message,
	})
}
