package utils

import (
	"errors"
	"fmt"
)

// Error kinds. Every AppError unwraps to exactly one of these.
var (
	ErrValidation        = errors.New("VALIDATION_ERROR")
	ErrNotFound          = errors.New("NOT_FOUND")
	ErrConflict          = errors.New("CONFLICT")
	ErrStockInsufficient = errors.New("STOCK_INSUFFICIENT")
	ErrInternal          = errors.New("INTERNAL_ERROR")
)

// API error codes.
const (
	CodeInvalidRequest          = "INVALID_REQUEST"
	CodeInvalidQuantity         = "INVALID_QUANTITY"
	CodeProductNotFound         = "PRODUCT_NOT_FOUND"
	CodeVariantNotFound         = "VARIANT_NOT_FOUND"
	CodeInventoryNotFound       = "INVENTORY_NOT_FOUND"
	CodeInventoryConflict       = "INVENTORY_CONFLICT"
	CodeCartItemNotFound        = "CART_ITEM_NOT_FOUND"
	CodeEmptyCart               = "EMPTY_CART"
	CodeVariantSelectionMissing = "VARIANT_SELECTION_MISSING"
	CodeVariantUnavailable      = "VARIANT_UNAVAILABLE"
	CodeOutOfStock              = "OUT_OF_STOCK"
	CodeCouponRequired          = "COUPON_CODE_REQUIRED"
	CodeCouponNotFound          = "COUPON_NOT_FOUND"
	CodeCouponInactive          = "COUPON_INACTIVE"
	CodeCouponNotStarted        = "COUPON_NOT_STARTED"
	CodeCouponExpired           = "COUPON_EXPIRED"
	CodeCouponMinOrder          = "COUPON_MIN_ORDER_NOT_MET"
	CodeCouponExhausted         = "COUPON_USAGE_EXHAUSTED"
	CodePreviewTimeout          = "PREVIEW_TIMEOUT"
	CodeInternal                = "INTERNAL_ERROR"
)

// AppError is a classified, user-presentable failure.
type AppError struct {
	Kind    error
	Code    string
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the kind so errors.Is(err, ErrNotFound) works on wrapped chains.
func (e *AppError) Unwrap() error {
	return e.Kind
}

// NewAppError builds an AppError of the given kind.
func NewAppError(kind error, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func ValidationError(code, format string, args ...any) *AppError {
	return NewAppError(ErrValidation, code, fmt.Sprintf(format, args...))
}

func NotFoundError(code, format string, args ...any) *AppError {
	return NewAppError(ErrNotFound, code, fmt.Sprintf(format, args...))
}

func ConflictError(code, format string, args ...any) *AppError {
	return NewAppError(ErrConflict, code, fmt.Sprintf(format, args...))
}

func StockError(code, format string, args ...any) *AppError {
	return NewAppError(ErrStockInsufficient, code, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether the caller may retry the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInternal) || errors.Is(err, ErrConflict)
}

// AsAppError extracts the AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
