package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name, header, remote, want string
	}{
		{"单个地址", "8.8.8.8", "10.0.0.1:5000", "8.8.8.8"},
		{"多级代理取第一个", "203.0.113.7, 10.0.0.2, 10.0.0.3", "10.0.0.1:5000", "203.0.113.7"},
		{"首项带空格", "  1.1.1.1 ,2.2.2.2", "", "1.1.1.1"},
		{"请求头缺失回退远端地址", "", "192.0.2.10:443", "192.0.2.10:443"},
		{"首项为空回退远端地址", " , 8.8.8.8", "192.0.2.10:443", "192.0.2.10:443"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClientIP(tc.header, tc.remote))
		})
	}
}

func TestParseAddr(t *testing.T) {
	valid := map[string]string{
		"8.8.8.8":              "8.8.8.8",
		"8.8.8.8:80":           "8.8.8.8",
		"[2001:4860::8888]:80": "2001:4860::8888",
		"[::1]":                "::1",
		"::ffff:127.0.0.1":     "127.0.0.1",
		" 1.1.1.1 ":            "1.1.1.1",
	}
	for raw, want := range valid {
		addr, ok := ParseAddr(raw)
		if assert.True(t, ok, raw) {
			assert.Equal(t, want, addr.String(), raw)
		}
	}

	for _, raw := range []string{"", "unknown", "999.1.1.1", "8.8.8", "not an ip:80"} {
		_, ok := ParseAddr(raw)
		assert.False(t, ok, raw)
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]AddrClass{
		"127.0.0.1":       ClassLoopback,
		"127.8.9.10":      ClassLoopback,
		"::1":             ClassLoopback,
		"169.254.10.20":   ClassLinkLocal,
		"fe80::1":         ClassLinkLocal,
		"10.1.2.3":        ClassPrivate,
		"172.16.0.1":      ClassPrivate,
		"172.31.255.255":  ClassPrivate,
		"192.168.1.1":     ClassPrivate,
		"fd00::1":         ClassPrivate,
		"0.0.0.0":         ClassUnspecified,
		"224.0.0.251":     ClassMulticast,
		"8.8.8.8":         ClassPublic,
		"77.88.8.8":       ClassPublic,
		"172.32.0.1":      ClassPublic,
		"2001:4860::8888": ClassPublic,
	}
	for raw, want := range cases {
		addr, ok := ParseAddr(raw)
		if assert.True(t, ok, raw) {
			assert.Equal(t, want, Classify(addr), raw)
			assert.Equal(t, want == ClassPublic, Classify(addr).Routable(), raw)
		}
	}
}
