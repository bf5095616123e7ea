// Package queue 定容阻塞 FIFO
package queue

import (
	"errors"
	"sync"
)

// ErrClosed 关闭且取空后 Dequeue 返回；Close 之后 Enqueue 返回
var ErrClosed = errors.New("queue: closed")

// Queue 环形缓冲，支持任意多生产者 / 消费者
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	notFull  sync.Cond
	data     []T
	head     int
	tail     int
	count    int
	closed   bool
}

// New 最多容纳 capacity 个元素（至少 1）
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue[T]{data: make([]T, capacity)}
	q.notEmpty.L = &q.mu
	q.notFull.L = &q.mu
	return q
}

// Cap 容量
func (q *Queue[T]) Cap() int {
	return len(q.data)
}

// Len 当前元素个数
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Enqueue 入队，队满时阻塞
func (q *Queue[T]) Enqueue(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == len(q.data) && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return ErrClosed
	}
	q.pushLocked(item)
	return nil
}

// TryEnqueue 有空位才入队，返回是否成功
func (q *Queue[T]) TryEnqueue(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.count == len(q.data) {
		return false
	}
	q.pushLocked(item)
	return true
}

func (q *Queue[T]) pushLocked(item T) {
	q.data[q.tail] = item
	q.tail = (q.tail + 1) % len(q.data)
	q.count++
	q.notEmpty.Signal()
}

// Dequeue 取出最早的元素，队空时阻塞
// Close 之前入队的元素仍会交付，之后返回 ErrClosed
func (q *Queue[T]) Dequeue() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	var zero T
	if q.count == 0 {
		return zero, ErrClosed
	}
	item := q.data[q.head]
	q.data[q.head] = zero
	q.head = (q.head + 1) % len(q.data)
	q.count--
	q.notFull.Signal()
	return item, nil
}

// Close 唤醒所有阻塞的生产者与消费者，可重复调用
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}
