package util

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8", "192.168.1.10"})
	if err != nil {
		t.Fatalf("new trusted proxies: %v", err)
	}

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trusted    *TrustedProxies
		want       string
	}{
		{
			name:       "direct peer, no proxies configured",
			remoteAddr: "198.51.100.10:52012",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "203.0.113.6"},
			want:       "198.51.100.10",
		},
		{
			name:       "untrusted peer cannot spoof via headers",
			remoteAddr: "198.51.100.10:52012",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5"},
			trusted:    trusted,
			want:       "198.51.100.10",
		},
		{
			name:       "trusted peer forwards the real client",
			remoteAddr: "10.0.0.20:443",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5"},
			trusted:    trusted,
			want:       "203.0.113.5",
		},
		{
			name:       "multi-hop chain skips trusted hops from the right",
			remoteAddr: "10.0.0.20:443",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.10"},
			trusted:    trusted,
			want:       "203.0.113.5",
		},
		{
			name:       "x-real-ip fallback when xff is garbage",
			remoteAddr: "10.0.0.20:443",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip", "X-Real-IP": "203.0.113.7"},
			trusted:    trusted,
			want:       "203.0.113.7",
		},
		{
			name:       "fully trusted chain returns leftmost hop",
			remoteAddr: "10.0.0.20:443",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.5, 10.0.0.10"},
			trusted:    trusted,
			want:       "10.0.0.5",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://example.com/api/auth/login", nil)
			req.RemoteAddr = tc.remoteAddr
			for name, value := range tc.headers {
				req.Header.Set(name, value)
			}
			if got := ClientIP(req, tc.trusted); got != tc.want {
				t.Fatalf("client ip = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewTrustedProxies(t *testing.T) {
	if tp, err := NewTrustedProxies(nil); err != nil || tp != nil {
		t.Fatalf("empty input should yield nil allowlist, got %v, %v", tp, err)
	}
	if _, err := NewTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1", "2001:db8::1"}); err != nil {
		t.Fatalf("expected valid entries, got err: %v", err)
	}
	if _, err := NewTrustedProxies([]string{"bad-cidr"}); err == nil {
		t.Fatal("expected parse error for invalid entry")
	}
}
