package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetIPAddress(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"ipv4 with port", "203.0.113.7:54321", "", "203.0.113.7"},
		{"ipv6 with port", "[2001:db8::1]:54321", "", "2001:db8::1"},
		{"bare ipv6 loopback", "::1", "", "::1"},
		{"bare ipv4", "203.0.113.7", "", "203.0.113.7"},
		{"forwarded header wins", "203.0.113.7:54321", "198.51.100.9", "198.51.100.9"},
	}

	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = c.remoteAddr
		if c.forwarded != "" {
			r.Header.Set("X-Forwarded-For", c.forwarded)
		}

		if got := getIPAddress(r); got != c.want {
			t.Fatalf("%s: expected %q, got %q", c.name, c.want, got)
		}
	}
}
