package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zedcmms/internal/apperror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const testSecret = "middleware-secret"

func init() { gin.SetMode(gin.TestMode) }

func signToken(t *testing.T, typ string, userID string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": "tech",
		"role":     "maintenance_tech",
		"typ":      typ,
		"exp":      exp.Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

type fakeChecker struct {
	granted map[string]bool
	err     error
}

func (f fakeChecker) HasPermission(_ context.Context, _, key string) (bool, error) {
	return f.granted[key], f.err
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	uid := uuid.New()
	r := gin.New()
	r.GET("/p", JWTAuth(testSecret), func(c *gin.Context) {
		claims := GetClaims(c)
		c.String(http.StatusOK, claims.UserID.String()+"|"+claims.Role)
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"refresh token", "Bearer " + signToken(t, "refresh", uid.String(), time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, "access", uid.String(), time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"bad user id", "Bearer " + signToken(t, "access", "42", time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"valid access", "Bearer " + signToken(t, "access", uid.String(), time.Now().Add(time.Hour)), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/p", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := serve(r, req)
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, uid.String()+"|maintenance_tech", w.Body.String())
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	token := "Bearer " + signToken(t, "access", uuid.NewString(), time.Now().Add(time.Hour))
	build := func(chk PermissionChecker) *gin.Engine {
		r := gin.New()
		r.GET("/w", JWTAuth(testSecret), RequirePermission(chk, "worksheets_view"), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		return r
	}
	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/w", nil)
		r.Header.Set("Authorization", token)
		return r
	}

	w := serve(build(fakeChecker{granted: map[string]bool{"worksheets_view": true}}), req())
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(build(fakeChecker{}), req())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "PERMISSION_DENIED")

	w = serve(build(fakeChecker{err: apperror.NotFound("Role", "retired_role")}), req())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "PERMISSION_DENIED")

	w = serve(build(fakeChecker{err: errors.New("db down")}), req())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := serve(r, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)
}

func TestRecovery_HidesPanic(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("secret stack") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret stack")
}

func TestErrorHandler_UnwrittenError(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/e", func(c *gin.Context) { _ = c.Error(errors.New("pq: connection reset")) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/e", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestErrorHandler_DomainErrorKeepsStatus(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/e", func(c *gin.Context) { _ = c.Error(apperror.NotFound("Machine", 3)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/e", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"NOT_FOUND"`)
	assert.Contains(t, w.Body.String(), `"request_id":"`+w.Header().Get(RequestIDHeader)+`"`)
}

func TestRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.001), 2)
	r := gin.New()
	r.GET("/", l.Middleware("slow down"), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		codes = append(codes, serve(r, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, serve(r, other).Code)

	l.idleTTL = -time.Second
	assert.Equal(t, 2, l.Purge())
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"*"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestCORS_AllowList(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://cmms.plant.local"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://cmms.plant.local")
	w := serve(r, req)
	assert.Equal(t, "https://cmms.plant.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
