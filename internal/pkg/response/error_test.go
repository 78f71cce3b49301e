package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/apperror"
)

func render(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Error(c, err)
	return w
}

func TestErrorRendersAppError(t *testing.T) {
	sentinel := apperror.NewRetryable(http.StatusServiceUnavailable, "store unavailable")
	w := render(fmt.Errorf("%w: %w", sentinel, errors.New("dial tcp: refused")))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "store unavailable", body.Error)
	assert.True(t, body.Retryable)
}

func TestErrorNoRetryAfterWhenNotRetryable(t *testing.T) {
	w := render(apperror.New(http.StatusServiceUnavailable, "outcome unknown"))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, w.Header().Get("Retry-After"))
	assert.NotContains(t, w.Body.String(), "retryable")
}

func TestErrorHidesUnknownErrors(t *testing.T) {
	w := render(errors.New("pq: secret detail"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")
}
