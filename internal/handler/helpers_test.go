package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"zedcmms/internal/apperror"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

var errSvc = errors.New("inventory service error")

func TestRespondError_StatusTable(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validation", apperror.Validation("sku", "bad sku"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"business", apperror.BusinessLogic("DUPLICATE_SKU", "dup").Wrap(errSvc), http.StatusBadRequest, "DUPLICATE_SKU"},
		{"state", apperror.StateTransition("worksheet", "Closed", "Open"), http.StatusBadRequest, "INVALID_STATE_TRANSITION"},
		{"permission", apperror.Permission("delete", "machine"), http.StatusForbidden, "PERMISSION_DENIED"},
		{"not found wrapped", fmt.Errorf("load: %w", apperror.NotFound("Machine", 7)), http.StatusNotFound, "NOT_FOUND"},
		{"plain", errors.New("pq: deadlock detected"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tc.err)

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}
}

type qtyReq struct {
	Name  string          `json:"name"  validate:"required"`
	Price decimal.Decimal `json:"price" validate:"gt=0"`
}

func TestBindAndValidate(t *testing.T) {
	run := func(body string) (*httptest.ResponseRecorder, bool) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		var req qtyReq
		return w, bindAndValidate(c, &req)
	}

	w, ok := run(`{"name":`)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, ok = run(`{"price":"0"}`)
	assert.False(t, ok)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "required", body.Fields["name"])
	assert.Equal(t, "gt", body.Fields["price"])

	_, ok = run(`{"name":"filter","price":"12.50"}`)
	assert.True(t, ok)
}

func TestParamID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	_, ok := paramID(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
