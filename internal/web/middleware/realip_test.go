package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func realIPProbe(trusted []string, remoteAddr string, headers map[string]string) string {
	var seen string
	h := TrustedRealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

func TestTrustedRealIPFromTrustedProxy(t *testing.T) {
	got := realIPProbe([]string{"10.0.0.0/8"}, "10.1.2.3:5000", map[string]string{
		"X-Real-IP": "203.0.113.7",
	})
	if got != "203.0.113.7" {
		t.Errorf("RemoteAddr = %q", got)
	}
}

func TestTrustedRealIPForwardedForFirstHop(t *testing.T) {
	got := realIPProbe([]string{"10.0.0.0/8"}, "10.1.2.3:5000", map[string]string{
		"X-Forwarded-For": "203.0.113.7, 10.1.2.3",
	})
	if got != "203.0.113.7" {
		t.Errorf("RemoteAddr = %q", got)
	}
}

func TestTrustedRealIPIgnoresUntrustedClient(t *testing.T) {
	got := realIPProbe([]string{"10.0.0.0/8"}, "198.51.100.9:5000", map[string]string{
		"X-Real-IP": "203.0.113.7",
	})
	if got != "198.51.100.9:5000" {
		t.Errorf("RemoteAddr = %q, spoofed header honored", got)
	}
}

func TestTrustedRealIPBareIPEntry(t *testing.T) {
	got := realIPProbe([]string{"192.0.2.1"}, "192.0.2.1:5000", map[string]string{
		"X-Real-IP": "203.0.113.7",
	})
	if got != "203.0.113.7" {
		t.Errorf("RemoteAddr = %q", got)
	}
}

func TestTrustedRealIPNoTrustedProxies(t *testing.T) {
	got := realIPProbe(nil, "198.51.100.9:5000", map[string]string{
		"X-Real-IP": "203.0.113.7",
	})
	if got != "198.51.100.9:5000" {
		t.Errorf("RemoteAddr = %q", got)
	}
}
