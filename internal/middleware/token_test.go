package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func tokenEchoRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TokenMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetToken(c))
	})
	return router
}

func TestTokenMiddleware(t *testing.T) {
	router := tokenEchoRouter()

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"No headers", nil, ""},
		{"Bearer scheme", map[string]string{"Authorization": "Bearer ghp_abc123"}, "ghp_abc123"},
		{"Token scheme", map[string]string{"Authorization": "token ghp_abc123"}, "ghp_abc123"},
		{"Case insensitive scheme", map[string]string{"Authorization": "BEARER ghp_abc123"}, "ghp_abc123"},
		{"Unknown scheme ignored", map[string]string{"Authorization": "Basic dXNlcjpwYXNz"}, ""},
		{"Custom header", map[string]string{"X-Github-Token": "ghp_xyz789"}, "ghp_xyz789"},
		{"Authorization wins over custom header", map[string]string{
			"Authorization":  "Bearer ghp_abc123",
			"X-Github-Token": "ghp_xyz789",
		}, "ghp_abc123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.want, w.Body.String())
		})
	}
}
