package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		header string
		echo   bool
	}{
		{name: "echoes caller id", header: "abc-123", echo: true},
		{name: "mints when missing", header: ""},
		{name: "replaces id with spaces", header: "bad id"},
		{name: "replaces oversized id", header: strings.Repeat("x", maxRequestIDLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			router := gin.New()
			router.Use(RequestID())
			router.GET("/x", func(c *gin.Context) {
				seen = RequestIDFromContext(c)
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-Id", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			got := resp.Header().Get("X-Request-Id")
			if got != seen {
				t.Fatalf("header %q does not match context %q", got, seen)
			}
			if tt.echo {
				if got != tt.header {
					t.Fatalf("expected %q echoed, got %q", tt.header, got)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected generated uuid, got %q", got)
			}
		})
	}
}

func TestRequestIDFromContextNil(t *testing.T) {
	if got := RequestIDFromContext(nil); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}
