package middleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	t.Run("X-Forwarded-For takes priority", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
		req.RemoteAddr = "192.0.2.1:1234"

		assert.Equal(t, "203.0.113.5", GetClientIP(req))
	})

	t.Run("X-Real-IP used when X-Forwarded-For absent", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/", nil)
		req.Header.Set("X-Real-IP", "203.0.113.9")
		req.RemoteAddr = "192.0.2.1:1234"

		assert.Equal(t, "203.0.113.9", GetClientIP(req))
	})

	t.Run("falls back to RemoteAddr host", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"

		assert.Equal(t, "192.0.2.1", GetClientIP(req))
	})

	t.Run("malformed X-Forwarded-For falls through to RemoteAddr", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/", nil)
		req.Header.Set("X-Forwarded-For", "not-an-ip")
		req.RemoteAddr = "192.0.2.1:1234"

		assert.Equal(t, "192.0.2.1", GetClientIP(req))
	})
}
