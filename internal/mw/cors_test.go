package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		env        string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"dev allows any origin", "dev", http.MethodGet, "http://localhost:5173", "http://localhost:5173", http.StatusOK},
		{"prod rejects foreign origin", "prod", http.MethodGet, "http://evil.test", "", http.StatusOK},
		{"prod allows same host", "prod", http.MethodGet, "http://example.com", "http://example.com", http.StatusOK},
		{"preflight short circuits", "dev", http.MethodOptions, "http://localhost:5173", "http://localhost:5173", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORS(tt.env))
			router.Handle(tt.method, "/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "http://example.com/x", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
