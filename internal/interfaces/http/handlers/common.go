// Package handlers implements the HTTP API: batch scoring, run submission
// and inspection, and health probes.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolScore/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// httpStatusFor maps application error codes to HTTP status codes.
func httpStatusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeBadRequest, errors.ErrCodeValidation,
		errors.ErrCodeMoleculeInvalidSMILES, errors.ErrCodeMoleculeEmptyBatch,
		errors.ErrCodeScoringConfigInvalid, errors.ErrCodeScoringFunctionUnknown,
		errors.ErrCodeComponentTypeUnknown, errors.ErrCodeComponentWeightInvalid,
		errors.ErrCodeComponentParamsInvalid, errors.ErrCodeTransformTypeUnknown,
		errors.ErrCodeTransformParamsInvalid, errors.ErrCodeScoringComponentsEmpty,
		errors.ErrCodeRunConfigInvalid, errors.ErrCodeRunTypeUnsupported,
		errors.ErrCodeRunVersionUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeNotFound, errors.ErrCodeRunNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConflict, errors.ErrCodeRunAlreadyActive:
		return http.StatusConflict
	case errors.ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeServiceUnavailable, errors.ErrCodeExternalService:
		return http.StatusServiceUnavailable
	case errors.ErrCodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a structured error response derived from err.  Unknown
// error types map to 500 with the generic internal code.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		resp := ErrorResponse{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Detail:  appErr.Detail,
		}
		c.AbortWithStatusJSON(httpStatusFor(appErr.Code), resp)
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Code:    string(errors.ErrCodeInternal),
		Message: "internal server error",
	})
}

// parsePagination extracts limit and offset query parameters with defaults.
func parsePagination(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

//Personal.AI order the ending
