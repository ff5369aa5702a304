package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", serve(r, req).Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 65))
	assert.Len(t, serve(r, req).Header().Get(RequestIDHeader), 36)
}

func TestJWTAuth_SetsClaims(t *testing.T) {
	r := gin.New()
	r.GET("/", JWTAuth("s3cret"), func(c *gin.Context) {
		claims := GetClaims(c)
		require.NotNil(t, claims)
		c.String(http.StatusOK, claims.CustomerID+"/"+claims.Role)
	})

	tok, err := IssueToken("s3cret", "c9", RoleCustomer, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c9/customer", w.Body.String())

	expired, err := IssueToken("s3cret", "c9", RoleCustomer, -time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	unknownRole, err := IssueToken("s3cret", "c9", "admin", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+unknownRole)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

func TestRequireRole_WithoutClaims(t *testing.T) {
	r := gin.New()
	r.GET("/", RequireRole(RoleStaff), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"unauthorized"`)
}

func TestLimiter_FixedWindow(t *testing.T) {
	l := &limiter{entries: make(map[string]*rateEntry), limit: 2, window: time.Minute}
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	ok, _ := l.allow("1.1.1.1", now)
	assert.True(t, ok)
	ok, _ = l.allow("1.1.1.1", now.Add(time.Second))
	assert.True(t, ok)
	ok, end := l.allow("1.1.1.1", now.Add(2*time.Second))
	assert.False(t, ok)
	assert.Equal(t, now.Add(time.Minute), end)

	ok, _ = l.allow("2.2.2.2", now.Add(2*time.Second))
	assert.True(t, ok, "counters are per address")

	ok, _ = l.allow("1.1.1.1", now.Add(61*time.Second))
	assert.True(t, ok, "a new window resets the counter")

	assert.Equal(t, 1, l.purge(now.Add(90*time.Second)))
	assert.Len(t, l.entries, 1)
}

func TestRateLimiter_Returns429(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(1, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"kind":"rate_limited"`)
}

func TestErrorHandler_Recovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(), ErrorHandler())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/err", func(c *gin.Context) { _ = c.Error(assert.AnError) })
	r.GET("/bind", func(c *gin.Context) { _ = c.Error(assert.AnError).SetType(gin.ErrorTypeBind) })
	r.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusConflict, gin.H{"kind": "duplicate_constraint"})
		_ = c.Error(assert.AnError)
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/err", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"persistence_failure"`)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/bind", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"validation"`)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"kind":"duplicate_constraint"}`, w.Body.String())
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/abort", func(c *gin.Context) { panic(http.ErrAbortHandler) })

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		serve(r, httptest.NewRequest(http.MethodGet, "/abort", nil))
	})
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/status/:code", func(c *gin.Context) {
		code := map[string]int{"200": 200, "404": 404, "503": 503}[c.Param("code")]
		c.Status(code)
	})

	for code, level := range map[string]string{"200": "info", "404": "warn", "503": "error"} {
		buf := captureLog(t)
		req := httptest.NewRequest(http.MethodGet, "/status/"+code, nil)
		req.RemoteAddr = "203.0.113.7:5123"
		serve(r, req)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line), code)
		assert.Equal(t, level, line["level"], code)
		assert.Equal(t, "203.0.113.7", line["client_ip"])
		assert.Equal(t, "/status/"+code, line["path"])
		assert.NotEmpty(t, line["request_id"])
	}
}

func corsRouter(allowed ...string) *gin.Engine {
	r := gin.New()
	r.Use(CORS(allowed))
	r.GET("/v1/products", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func preflight(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, "/v1/products", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	return req
}

func TestCORS_AllowList(t *testing.T) {
	r := corsRouter("https://shop.example.com/", " https://staff.example.com")

	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set("Origin", "https://Shop.example.com")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://Shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
	assert.Equal(t, RequestIDHeader, w.Header().Get("Access-Control-Expose-Headers"))

	w = serve(r, preflight("https://staff.example.com"))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	w = serve(r, preflight("https://evil.example.net"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code, "the browser enforces CORS on simple requests")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/v1/products", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), "same-origin requests carry no Origin")
}

func TestCORS_Wildcard(t *testing.T) {
	r := corsRouter("*")
	w := serve(r, preflight("https://anywhere.example.org"))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Vary"))

	w = serve(corsRouter(), preflight("https://anywhere.example.org"))
	assert.Equal(t, http.StatusForbidden, w.Code, "an empty list allows no origin")
}
