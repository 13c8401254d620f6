package util

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "socket address without headers",
			remoteAddr: "1.1.1.1:5000",
			want:       "1.1.1.1",
		},
		{
			name:       "edge header wins over forwarded-for",
			headers:    map[string]string{"Fly-Client-IP": "2.2.2.2", "X-Forwarded-For": "3.3.3.3"},
			remoteAddr: "10.0.0.1:5000",
			want:       "2.2.2.2",
		},
		{
			name:       "cdn header wins over forwarded-for",
			headers:    map[string]string{"CF-Connecting-IP": "4.4.4.4", "X-Forwarded-For": "3.3.3.3"},
			remoteAddr: "10.0.0.1:5000",
			want:       "4.4.4.4",
		},
		{
			name:       "first forwarded-for hop",
			headers:    map[string]string{"X-Forwarded-For": "5.5.5.5, 10.0.0.2"},
			remoteAddr: "10.0.0.1:5000",
			want:       "5.5.5.5",
		},
		{
			name:       "ipv4-mapped ipv6 socket address",
			remoteAddr: "[::ffff:1.1.1.1]:5000",
			want:       "1.1.1.1",
		},
		{
			name:       "ipv4-mapped header value",
			headers:    map[string]string{"X-Real-IP": "::ffff:6.6.6.6"},
			remoteAddr: "10.0.0.1:5000",
			want:       "6.6.6.6",
		},
		{
			name:       "plain ipv6",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tc.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tc.want, ResolveClientIP(h, tc.remoteAddr))
		})
	}
}

func TestNormalizeIP(t *testing.T) {
	assert.Equal(t, "1.2.3.4", NormalizeIP(" ::ffff:1.2.3.4 "))
	assert.Equal(t, "", NormalizeIP("  "))
	assert.Equal(t, "not-an-ip", NormalizeIP("not-an-ip"))
}

func TestDescribeClient(t *testing.T) {
	assert.Equal(t, "unknown", DescribeClient(""))
	assert.Equal(t, "OBS Browser Source", DescribeClient("Mozilla/5.0 (Windows NT 10.0) Chrome/103.0 OBS/29.1.3"))
	assert.Equal(t, "Firefox", DescribeClient("Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"))
	assert.Equal(t, "Chrome", DescribeClient("Mozilla/5.0 AppleWebKit/537.36 Chrome/120.0 Safari/537.36"))
	assert.Equal(t, "other", DescribeClient("curl/8.0"))
}
