package geo

import (
	"net"
	"net/netip"
	"strings"
)

// ForwardedForHeader 代理转发时携带原始客户端地址的请求头
const ForwardedForHeader = "X-Forwarded-For"

// AddrClass 地址分类
type AddrClass int

const (
	ClassInvalid AddrClass = iota
	ClassUnspecified
	ClassLoopback
	ClassLinkLocal
	ClassPrivate
	ClassMulticast
	ClassPublic
)

func (c AddrClass) String() string {
	switch c {
	case ClassUnspecified:
		return "unspecified"
	case ClassLoopback:
		return "loopback"
	case ClassLinkLocal:
		return "link_local"
	case ClassPrivate:
		return "private"
	case ClassMulticast:
		return "multicast"
	case ClassPublic:
		return "public"
	}
	return "invalid"
}

// Routable 只有公网地址才会进入地理库查询
func (c AddrClass) Routable() bool {
	return c == ClassPublic
}

// ClientIP 返回客户端地址候选值：X-Forwarded-For 的第一项（最初的客户端），
// 请求头缺失时回退到连接的远端地址
func ClientIP(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return strings.TrimSpace(remoteAddr)
}

// ParseAddr 解析候选地址，兼容带端口和带方括号的写法；非法输入返回 false
func ParseAddr(raw string) (netip.Addr, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return netip.Addr{}, false
	}

	if addr, err := netip.ParseAddr(raw); err == nil {
		return addr.Unmap().WithZone(""), true
	}

	// 192.168.1.1:8080 或 [::1]:8080
	if host, _, err := net.SplitHostPort(raw); err == nil {
		if addr, err := netip.ParseAddr(host); err == nil {
			return addr.Unmap().WithZone(""), true
		}
	}

	// [::1]
	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		if addr, err := netip.ParseAddr(raw[1 : len(raw)-1]); err == nil {
			return addr.Unmap().WithZone(""), true
		}
	}

	return netip.Addr{}, false
}

// Classify 在任何查库之前对地址分类。回环、链路本地、私有网段
// (RFC1918 / fc00::/7) 没有公网路由意义，直接判定为不可解析
func Classify(addr netip.Addr) AddrClass {
	if !addr.IsValid() {
		return ClassInvalid
	}
	addr = addr.Unmap()

	switch {
	case addr.IsUnspecified():
		return ClassUnspecified
	case addr.IsLoopback():
		return ClassLoopback
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return ClassLinkLocal
	case addr.IsPrivate():
		return ClassPrivate
	case addr.IsMulticast():
		return ClassMulticast
	}
	return ClassPublic
}
