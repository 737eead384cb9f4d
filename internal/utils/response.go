package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Response defines the standard API response envelope.
type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

// ErrorInfo provides details for error responses.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Meta contains request-scoped metadata.
type Meta struct {
	RequestID  string      `json:"requestId"`
	Timestamp  string      `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// Success writes a success response with the standard envelope.
func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: time.Now().Format(time.RFC3339),
		},
	})
}

// SuccessWithPagination writes a success response with pagination metadata.
func SuccessWithPagination(c *gin.Context, code int, message string, data interface{}, page, limit, totalItems int) {
	// safety defaults
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	totalPages := (totalItems + limit - 1) / limit
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: time.Now().Format(time.RFC3339),
			Pagination: &Pagination{
				Page:       page,
				Limit:      limit,
				TotalItems: totalItems,
				TotalPages: totalPages,
			},
		},
	})
}

// Error writes an error response with provided API error code and message.
func Error(c *gin.Context, code int, errCode, message string) {
	writeError(c, code, errCode, message, false)
}

func writeError(c *gin.Context, code int, errCode, message string, retryable bool) {
	c.JSON(code, Response{
		Success: false,
		Code:    code,
		Message: message,
		Error: &ErrorInfo{
			Code:      errCode,
			Message:   message,
			Retryable: retryable,
		},
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: time.Now().Format(time.RFC3339),
		},
	})
}

// RespondError translates a service error into the response envelope.
// Errors that are not AppErrors are logged and reported as a generic failure.
func RespondError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		log.Error().Err(err).Str("request_id", getRequestID(c)).Str("path", c.FullPath()).Msg("Unhandled service error")
		writeError(c, http.StatusInternalServerError, CodeInternal, "Internal server error", true)
		return
	}
	if errors.Is(appErr.Kind, ErrInternal) {
		log.Error().Str("request_id", getRequestID(c)).Str("code", appErr.Code).Msg(appErr.Message)
	}
	writeError(c, HTTPStatus(appErr), appErr.Code, appErr.Message, IsRetryable(appErr))
}

// HTTPStatus returns the HTTP status for an AppError.
func HTTPStatus(e *AppError) int {
	if e.Code == CodePreviewTimeout {
		return http.StatusServiceUnavailable
	}
	switch {
	case errors.Is(e.Kind, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(e.Kind, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(e.Kind, ErrConflict), errors.Is(e.Kind, ErrStockInsufficient):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.New().String()[:8]
}
