// Package endpoint 网络端点（数字地址 + 端口）的解析、格式化与排序
// Endpoint 是不可变的值类型
package endpoint

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// ErrInvalidAddress 文本不是数字形式的 IP 地址
var ErrInvalidAddress = errors.New("endpoint: invalid address")

// Family 排序用的地址族：IPv4 < IPv6 < 未解析
type Family uint8

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
	FamilyUnresolved
)

// Endpoint 地址 + 端口，零值表示未解析
type Endpoint struct {
	addr netip.Addr
	port uint16
}

// Parse 解析数字地址，不做域名解析，主机名返回 ErrInvalidAddress
// 空字符串得到 IPv4 通配地址
func Parse(text string) (Endpoint, error) {
	if text == "" {
		return Endpoint{addr: netip.IPv4Unspecified()}, nil
	}
	addr, err := netip.ParseAddr(text)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrInvalidAddress, text)
	}
	return Endpoint{addr: addr.Unmap()}, nil
}

// ParseHostPort 解析 "address:port"
func ParseHostPort(text string) (Endpoint, error) {
	host, portText, err := net.SplitHostPort(text)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	ep, err := Parse(host)
	if err != nil {
		return Endpoint{}, err
	}
	port, err := strconv.ParseUint(portText, 10, 16)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: port %q", ErrInvalidAddress, portText)
	}
	return ep.WithPort(uint16(port)), nil
}

// FromAddrPort 包装 netip.AddrPort
func FromAddrPort(ap netip.AddrPort) Endpoint {
	return Endpoint{addr: ap.Addr().Unmap(), port: ap.Port()}
}

// FromUDPAddr 转换 *net.UDPAddr，nil 得到零值
func FromUDPAddr(a *net.UDPAddr) Endpoint {
	if a == nil {
		return Endpoint{}
	}
	return FromAddrPort(a.AddrPort())
}

// WithPort 返回替换端口后的副本
func (e Endpoint) WithPort(port uint16) Endpoint {
	e.port = port
	return e
}

func (e Endpoint) Port() uint16     { return e.port }
func (e Endpoint) Addr() netip.Addr { return e.addr }

// Family 排序用的地址族
func (e Endpoint) Family() Family {
	switch {
	case !e.addr.IsValid():
		return FamilyUnresolved
	case e.addr.Is4():
		return FamilyIPv4
	default:
		return FamilyIPv6
	}
}

// IsMulticast 是否为组播地址
func (e Endpoint) IsMulticast() bool {
	return e.addr.IsValid() && e.addr.IsMulticast()
}

// UDPAddr 转成 net 包使用的地址，未解析时返回 nil
func (e Endpoint) UDPAddr() *net.UDPAddr {
	if !e.addr.IsValid() {
		return nil
	}
	return net.UDPAddrFromAddrPort(netip.AddrPortFrom(e.addr, e.port))
}

// Format 返回地址文本与端口，不会失败：无法解释的地址输出 "-"（用于日志）
func Format(e Endpoint) (string, uint16) {
	if !e.addr.IsValid() {
		return "-", e.port
	}
	return e.addr.String(), e.port
}

// String 输出 "addr:port"
func (e Endpoint) String() string {
	host, port := Format(e)
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}

// Compare 依次按地址族、地址字节、端口排序
func Compare(a, b Endpoint) int {
	fa, fb := a.Family(), b.Family()
	if fa != fb {
		if fa < fb {
			return -1
		}
		return 1
	}
	if fa != FamilyUnresolved {
		ab, bb := a.addr.AsSlice(), b.addr.AsSlice()
		if c := bytes.Compare(ab, bb); c != 0 {
			return c
		}
		if c := compareZone(a.addr.Zone(), b.addr.Zone()); c != 0 {
			return c
		}
	}
	switch {
	case a.port < b.port:
		return -1
	case a.port > b.port:
		return 1
	}
	return 0
}

func compareZone(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal 是否为同一端点
func Equal(a, b Endpoint) bool {
	return Compare(a, b) == 0
}
