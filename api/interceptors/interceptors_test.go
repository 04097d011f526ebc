package interceptors

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/blindrelay/go-blindrelay-server/global"
	"github.com/blindrelay/go-blindrelay-server/security"
)

func okRouter(middleware ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware...)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.POST("/api/v1/send", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	return router
}

func performRequest(router *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	router := okRouter(SecurityHeadersMiddleware())

	w := performRequest(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
}

func TestAccessLogAssignsRequestID(t *testing.T) {
	router := okRouter(AccessLogMiddleware())

	w := performRequest(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	requestID := w.Header().Get("X-Request-ID")
	if _, err := uuid.Parse(requestID); err != nil {
		t.Fatalf("X-Request-ID %q is not a uuid: %v", requestID, err)
	}
}

func TestAccessLogRequestIDsAreUnique(t *testing.T) {
	router := okRouter(AccessLogMiddleware())

	first := performRequest(router, "GET", "/health", nil).Header().Get("X-Request-ID")
	second := performRequest(router, "GET", "/health", nil).Header().Get("X-Request-ID")
	assert.NotEqual(t, first, second)
}

func TestClassForPath(t *testing.T) {
	cases := []struct {
		path string
		want security.EndpointClass
	}{
		{"/api/v1/send", security.ClassRelay},
		{"/api/v1/poll", security.ClassRelay},
		{"/api/v1/consume", security.ClassRelay},
		{"/api/v1/status", security.ClassStatus},
		{"/", security.ClassStatus},
		{"/health", security.ClassHealth},
		{"/api/v1/health", security.ClassHealth},
		{"/metrics", security.EndpointClass("")},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classForPath(tc.path), tc.path)
	}
}

func TestFirewallRecordsHandlerFailures(t *testing.T) {
	gate := security.NewAccessGate(global.Logger, security.Config{
		MaxFailedAttempts: 2,
		BlockDuration:     time.Minute,
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(FirewallMiddleware(gate))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	// two failing responses reach the threshold
	for i := 0; i < 2; i++ {
		w := performRequest(router, "GET", "/health", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}

	w := performRequest(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error": "temporarily unavailable"}`, w.Body.String())
}

func TestFirewallIgnoresRateLimitedStatus(t *testing.T) {
	gate := security.NewAccessGate(global.Logger, security.Config{
		MaxFailedAttempts: 1,
		BlockDuration:     time.Minute,
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(FirewallMiddleware(gate))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "temporarily unavailable"})
	})

	// 429 answers never count toward the block threshold
	for i := 0; i < 3; i++ {
		performRequest(router, "GET", "/health", nil)
	}
	assert.False(t, gate.IsBlocked("192.0.2.1"))
}

func TestGetIPPrecedence(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(remoteAddr string, header map[string]string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/", nil)
		c.Request.RemoteAddr = remoteAddr
		for k, v := range header {
			c.Request.Header.Set(k, v)
		}
		return c
	}

	c := newCtx("10.0.0.9:1234", map[string]string{"X-Real-IP": "203.0.113.7"})
	ip, err := getIP(c)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "203.0.113.7", *ip)

	c = newCtx("10.0.0.9:1234", map[string]string{"X-Forwarded-For": "203.0.113.8, 10.0.0.1"})
	ip, err = getIP(c)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "203.0.113.8", *ip)

	c = newCtx("10.0.0.9:1234", nil)
	ip, err = getIP(c)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "10.0.0.9", *ip)
}
