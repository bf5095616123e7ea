//go:build unix

// Package monitor 在一组 socket 上等待可读 / 可写
//
// 一次 poll 得到的就绪状态会保留并跨调用逐个发放：
// 输出缓冲很小的调用方也能让每个就绪 socket 恰好拿到一次，
// 而不是反复只拿到前几个
package monitor

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultCapacity 默认可跟踪的 socket 数
const DefaultCapacity = 64

var (
	// ErrCapacity 超出容量
	ErrCapacity = errors.New("monitor: capacity exceeded")
	// ErrNotRegistered Remove 未注册的 socket
	ErrNotRegistered = errors.New("monitor: not registered")
)

// Interest 关心的就绪类型
type Interest uint8

const (
	Read Interest = 1 << iota
	Write

	ReadWrite = Read | Write
)

// Pollable 能暴露底层 socket 的对象，如 *net.UDPConn、*transport.Transport
type Pollable interface {
	SyscallConn() (syscall.RawConn, error)
}

type entry struct {
	conn     Pollable
	fd       int
	interest Interest
	ready    Interest
}

// Monitor 归单个协程所有，非并发安全
type Monitor struct {
	entries  []entry
	capacity int
	pollfds  []unix.PollFd
}

// New 最多跟踪 capacity 个 socket；非正数使用 DefaultCapacity
func New(capacity int) *Monitor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Monitor{capacity: capacity}
}

// Len 已注册的 socket 数
func (m *Monitor) Len() int { return len(m.entries) }

// Add 以给定 interest 注册 conn；interest 为 0 时不做任何事
// 重复注册则替换 interest
func (m *Monitor) Add(conn Pollable, interest Interest) error {
	interest &= ReadWrite
	if interest == 0 {
		return nil
	}
	if i := m.index(conn); i >= 0 {
		m.entries[i].interest = interest
		m.entries[i].ready &= interest
		return nil
	}
	if len(m.entries) >= m.capacity {
		return fmt.Errorf("%w: %d sockets", ErrCapacity, m.capacity)
	}
	fd, err := rawFD(conn)
	if err != nil {
		return err
	}
	m.entries = append(m.entries, entry{conn: conn, fd: fd, interest: interest})
	return nil
}

// Remove 注销 conn，并丢弃其未发放的就绪状态
func (m *Monitor) Remove(conn Pollable) error {
	i := m.index(conn)
	if i < 0 {
		return ErrNotRegistered
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	return nil
}

func (m *Monitor) index(conn Pollable) int {
	for i := range m.entries {
		if m.entries[i].conn == conn {
			return i
		}
	}
	return -1
}

func rawFD(conn Pollable) (int, error) {
	rc, err := conn.SyscallConn()
	if err != nil {
		return -1, fmt.Errorf("monitor: raw conn: %w", err)
	}
	fd := -1
	if err := rc.Control(func(s uintptr) { fd = int(s) }); err != nil {
		return -1, fmt.Errorf("monitor: raw conn: %w", err)
	}
	return fd, nil
}

// Wait 把就绪 socket 写入 out 并返回个数
// 已知就绪的直接返回不阻塞；否则 poll 最多 timeout（负数为永久），
// 超时无就绪返回 0
func (m *Monitor) Wait(out []Pollable, timeout time.Duration) (int, error) {
	if n := m.drain(out); n > 0 {
		return n, nil
	}
	if len(out) == 0 {
		return 0, nil
	}

	m.pollfds = m.pollfds[:0]
	for _, e := range m.entries {
		var events int16
		if e.interest&Read != 0 {
			events |= unix.POLLIN
		}
		if e.interest&Write != 0 {
			events |= unix.POLLOUT
		}
		m.pollfds = append(m.pollfds, unix.PollFd{Fd: int32(e.fd), Events: events})
	}

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	n, err := unix.Poll(m.pollfds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("monitor: poll: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	for i, pfd := range m.pollfds {
		var ready Interest
		if pfd.Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) != 0 {
			ready |= Read
		}
		if pfd.Revents&unix.POLLOUT != 0 {
			ready |= Write
		}
		m.entries[i].ready = ready & m.entries[i].interest
	}
	return m.drain(out), nil
}

// drain 按注册顺序发放保留的就绪状态并清除
func (m *Monitor) drain(out []Pollable) int {
	n := 0
	for i := range m.entries {
		if n == len(out) {
			break
		}
		if m.entries[i].ready == 0 {
			continue
		}
		m.entries[i].ready = 0
		out[n] = m.entries[i].conn
		n++
	}
	return n
}
