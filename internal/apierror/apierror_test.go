package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"zedcmms/internal/apperror"

	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		classified bool
	}{
		{"validation", apperror.Validation("fault_cause", "fault cause is required"), http.StatusBadRequest, "VALIDATION_ERROR", true},
		{"business", apperror.BusinessLogic("STOCK_AVAILABILITY", "insufficient stock"), http.StatusBadRequest, "BUSINESS_LOGIC_ERROR", true},
		{"transition", apperror.StateTransition("worksheet", "Closed", "Open"), http.StatusBadRequest, "INVALID_STATE_TRANSITION", true},
		{"permission", apperror.Permission("delete", "machine"), http.StatusForbidden, "PERMISSION_DENIED", true},
		{"not found wrapped", fmt.Errorf("load: %w", apperror.NotFound("Part", "x")), http.StatusNotFound, "NOT_FOUND", true},
		{"plain", errors.New("pq: connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body, ok := FromError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantCode, body.Code)
			assert.Equal(t, tc.classified, ok)
			if !ok {
				assert.Equal(t, "internal server error", body.Detail)
				assert.Nil(t, body.Details)
			}
		})
	}
}
