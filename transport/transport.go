// Package transport 封装一个绑定到本地端点的 UDP socket，可加入 IPv4 组播组
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/net/ipv4"

	"lanarena/endpoint"
)

var (
	// ErrWouldBlock 接收超时仍无数据报，不算失败
	ErrWouldBlock = errors.New("transport: would block")
	// ErrBind 没有任何本地候选地址能绑定
	ErrBind = errors.New("transport: bind failed")
	// ErrClosed Close 之后返回
	ErrClosed = errors.New("transport: closed")
)

const (
	// MinTTL / MaxTTL 组播跳数上下限
	MinTTL = 1
	MaxTTL = 255
)

// Transport 持有一个 UDP socket
type Transport struct {
	conn  *net.UDPConn
	pc    *ipv4.PacketConn
	local endpoint.Endpoint

	mu          sync.Mutex
	recvTimeout time.Duration
	groups      []joined
	closed      bool
}

type joined struct {
	group *net.UDPAddr
	iface *net.Interface
}

// Bind 把 host 解析为 IPv4 候选地址并绑定第一个成功的；空 host 绑定通配地址
// socket 以 SO_REUSEADDR 打开，同一台机器上多个进程可共享组播端口
func Bind(ctx context.Context, host string, port uint16) (*Transport, error) {
	candidates, err := localCandidates(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %q: %v", ErrBind, host, err)
	}
	lc := net.ListenConfig{Control: reuseAddrControl}
	var errs error
	for _, addr := range candidates {
		laddr := net.JoinHostPort(addr.String(), strconv.Itoa(int(port)))
		pc, err := lc.ListenPacket(ctx, "udp4", laddr)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		conn := pc.(*net.UDPConn)
		return &Transport{
			conn:  conn,
			pc:    ipv4.NewPacketConn(conn),
			local: endpoint.FromUDPAddr(conn.LocalAddr().(*net.UDPAddr)),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s:%d: %v", ErrBind, hostOrWildcard(host), port, errs)
}

func hostOrWildcard(host string) string {
	if host == "" {
		return "0.0.0.0"
	}
	return host
}

func localCandidates(ctx context.Context, host string) ([]netip.Addr, error) {
	if host == "" {
		return []netip.Addr{netip.IPv4Unspecified()}, nil
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{addr.Unmap()}, nil
	}
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no IPv4 address for %q", host)
	}
	return addrs, nil
}

// LocalEndpoint 绑定的地址
func (t *Transport) LocalEndpoint() endpoint.Endpoint {
	return t.local
}

// JoinGroup 在给定的每个网卡上加入组播组（未给定时用系统默认网卡）
// 至少一个网卡加入成功即成功，否则返回全部错误
func (t *Transport) JoinGroup(group endpoint.Endpoint, ifaces ...*net.Interface) error {
	if !group.IsMulticast() || group.Family() != endpoint.FamilyIPv4 {
		return fmt.Errorf("transport: %s is not an IPv4 multicast group", group)
	}
	if len(ifaces) == 0 {
		ifaces = []*net.Interface{nil}
	}
	gaddr := group.UDPAddr()

	t.mu.Lock()
	defer t.mu.Unlock()
	var errs error
	ok := 0
	for _, ifi := range ifaces {
		if err := t.pc.JoinGroup(ifi, gaddr); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("join %s on %s: %w", group, ifaceName(ifi), err))
			continue
		}
		t.groups = append(t.groups, joined{group: gaddr, iface: ifi})
		ok++
	}
	if ok == 0 {
		return errs
	}
	return nil
}

// LeaveGroup 在所有已加入的网卡上退出组播组
func (t *Transport) LeaveGroup(group endpoint.Endpoint) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leaveLocked(group.UDPAddr())
}

func (t *Transport) leaveLocked(gaddr *net.UDPAddr) error {
	var errs error
	kept := t.groups[:0]
	for _, j := range t.groups {
		if gaddr != nil && !j.group.IP.Equal(gaddr.IP) {
			kept = append(kept, j)
			continue
		}
		if err := t.pc.LeaveGroup(j.iface, j.group); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	t.groups = kept
	return errs
}

func ifaceName(ifi *net.Interface) string {
	if ifi == nil {
		return "default interface"
	}
	return ifi.Name
}

// SetTimeToLive 设置组播跳数，裁剪到 [MinTTL, MaxTTL]
func (t *Transport) SetTimeToLive(n int) error {
	switch {
	case n < MinTTL:
		n = MinTTL
	case n > MaxTTL:
		n = MaxTTL
	}
	return t.pc.SetMulticastTTL(n)
}

// SetLoopback 自己发出的组播是否回环到本机
func (t *Transport) SetLoopback(on bool) error {
	return t.pc.SetMulticastLoopback(on)
}

// SetReceiveTimeout Receive 的等待上限；0 或负数表示一直等待
func (t *Transport) SetReceiveTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	t.recvTimeout = d
	t.mu.Unlock()
}

// Send 向 dest 发送一个数据报
func (t *Transport) Send(b []byte, dest endpoint.Endpoint) (int, error) {
	addr := dest.UDPAddr()
	if addr == nil {
		return 0, fmt.Errorf("transport: unresolved destination %s", dest)
	}
	n, err := t.conn.WriteToUDP(b, addr)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return n, ErrClosed
		}
		return n, err
	}
	return n, nil
}

// Receive 读取一个数据报到 buf，超时返回 ErrWouldBlock
// 超过 buf 的数据报会被截断：调用方把 buf 设为最大合法长度 + 1 以便识别
func (t *Transport) Receive(buf []byte) (int, endpoint.Endpoint, error) {
	t.mu.Lock()
	timeout := t.recvTimeout
	t.mu.Unlock()

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return 0, endpoint.Endpoint{}, ErrClosed
		}
		return 0, endpoint.Endpoint{}, err
	}
	n, src, err := t.conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrDeadlineExceeded):
			return 0, endpoint.Endpoint{}, ErrWouldBlock
		case errors.Is(err, net.ErrClosed):
			return 0, endpoint.Endpoint{}, ErrClosed
		}
		return 0, endpoint.Endpoint{}, err
	}
	return n, endpoint.FromAddrPort(src), nil
}

// SyscallConn 暴露底层 socket 供就绪轮询
func (t *Transport) SyscallConn() (syscall.RawConn, error) {
	return t.conn.SyscallConn()
}

// Close 退出所有组播组并关闭 socket
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return multierr.Combine(t.leaveLocked(nil), t.conn.Close())
}
