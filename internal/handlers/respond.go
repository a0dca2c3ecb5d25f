package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/middleware"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/staffhub/shift-engine/internal/services"
)

// statusFor maps an outcome category onto its HTTP status
func statusFor(category services.Category) int {
	switch category {
	case services.CategoryOK:
		return http.StatusOK
	case services.CategoryDenied:
		return http.StatusForbidden
	case services.CategoryValidation:
		return http.StatusBadRequest
	case services.CategoryLimit:
		return http.StatusPaymentRequired
	case services.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusConflict
	}
}

// respondDecision writes a rejected decision as {error, message, code[, fields]}
func respondDecision(c *gin.Context, d services.Decision) {
	body := gin.H{
		"error":   string(d.Outcome),
		"message": d.Reason,
		"code":    strings.ToUpper(string(d.Outcome)),
	}
	if len(d.Fields) > 0 {
		body["fields"] = d.Fields
	}
	c.JSON(statusFor(d.Outcome.Category()), body)
}

// respondFault logs an unexpected error and answers 500 without leaking it
func respondFault(c *gin.Context, logger *logrus.Logger, operation string, err error) {
	logger.WithFields(logrus.Fields{
		"operation": operation,
		"path":      c.Request.URL.Path,
		"error":     err.Error(),
	}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": "Something went wrong. Please try again.",
		"code":    "INTERNAL_ERROR",
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": message,
		"code":    "INVALID_REQUEST",
	})
}

// currentPrincipal returns the principal resolved by PrincipalMiddleware, answering 401 when absent
func currentPrincipal(c *gin.Context) (models.Principal, bool) {
	p, exists := middleware.GetPrincipal(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Unauthorized",
			"code":    "MISSING_USER_CONTEXT",
		})
		return models.Principal{}, false
	}
	return p, true
}

// uuidParam parses a path parameter as a UUID, answering 400 when malformed
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
