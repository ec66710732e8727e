package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"plain", "203.0.113.7:54321", nil, "203.0.113.7:54321"},
		{"cloudflare header", "10.0.0.1:54321", map[string]string{"CF-Connecting-IP": "203.0.113.7"}, "203.0.113.7:54321"},
		{"x-real-ip header", "10.0.0.1:54321", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7:54321"},
		{"invalid header ignored", "10.0.0.1:54321", map[string]string{"X-Real-IP": "not-an-ip"}, "10.0.0.1:54321"},
		{"ipv6 bracketed", "[2001:db8::1]:54321", nil, "[2001:db8::1]:54321"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, realIP(r))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	cfg := validConfig()
	w := httptest.NewRecorder()

	securityHeaders(cfg, w)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	cfg.tlsCert = "cert.pem"
	cfg.tlsKey = "key.pem"
	w = httptest.NewRecorder()

	securityHeaders(cfg, w)

	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestHumanReadableSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{100, "100 B"},
		{1024, "1.0 kB"},
		{1536, "1.5 kB"},
		{1048576, "1.0 MB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, humanReadableSize(tt.in))
	}
}
