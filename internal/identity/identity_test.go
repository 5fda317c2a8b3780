package identity

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"peer address", "192.0.2.7:54321", "", "192.0.2.7"},
		{"forwarded-for wins", "10.0.0.1:1234", "203.0.113.9", "203.0.113.9"},
		{"first forwarded hop", "10.0.0.1:1234", "203.0.113.9, 10.0.0.2", "203.0.113.9"},
		{"forwarded hop trimmed", "10.0.0.1:1234", "  203.0.113.9 , 10.0.0.2", "203.0.113.9"},
		{"unparseable peer falls through", "not-an-addr", "", "not-an-addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, FromRequest(r))
		})
	}
}
