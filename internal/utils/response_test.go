package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(t *testing.T, err error) (int, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondError(c, err)

	var res Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return w.Code, res
}

func TestRespondError_Mapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"validation", ValidationError(CodeInvalidQuantity, "bad"), 400, CodeInvalidQuantity, false},
		{"not found", NotFoundError(CodeProductNotFound, "gone"), 404, CodeProductNotFound, false},
		{"conflict", ConflictError(CodeCouponExhausted, "taken"), 409, CodeCouponExhausted, true},
		{"stock", StockError(CodeOutOfStock, "none left"), 409, CodeOutOfStock, false},
		{"timeout", NewAppError(ErrInternal, CodePreviewTimeout, "slow"), 503, CodePreviewTimeout, true},
		{"wrapped", fmt.Errorf("outer: %w", NotFoundError(CodeCartItemNotFound, "x")), 404, CodeCartItemNotFound, false},
		{"unknown", errors.New("pq: connection refused"), 500, CodeInternal, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, res := respond(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.False(t, res.Success)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.code, res.Error.Code)
			assert.Equal(t, tt.retryable, res.Error.Retryable)
		})
	}
}

func TestRespondError_HidesUnknownMessages(t *testing.T) {
	_, res := respond(t, errors.New("pq: password authentication failed"))
	assert.Equal(t, "Internal server error", res.Error.Message)
}

func TestRoundMoney(t *testing.T) {
	assert.EqualValues(t, 240, RoundMoney(decimal.RequireFromString("240.40")))
	assert.EqualValues(t, 241, RoundMoney(decimal.RequireFromString("240.50")))
	assert.EqualValues(t, 0, RoundMoney(decimal.Zero))
}
