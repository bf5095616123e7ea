package queue

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFIFOWraparound(t *testing.T) {
	q := New[string](3)
	for _, s := range []string{"a", "b", "c"} {
		if err := q.Enqueue(s); err != nil {
			t.Fatalf("enqueue %s: %v", s, err)
		}
	}
	if q.TryEnqueue("overflow") {
		t.Fatalf("expected TryEnqueue to fail when full")
	}
	for _, want := range []string{"a", "b"} {
		got, err := q.Dequeue()
		if err != nil || got != want {
			t.Fatalf("dequeue = %q %v, want %q", got, err, want)
		}
	}
	_ = q.Enqueue("d")
	_ = q.Enqueue("e")
	for _, want := range []string{"c", "d", "e"} {
		got, err := q.Dequeue()
		if err != nil || got != want {
			t.Fatalf("dequeue after wrap = %q %v, want %q", got, err, want)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("len = %d, want 0", q.Len())
	}
}

func TestEnqueueBlocksUntilDequeue(t *testing.T) {
	q := New[string](1)
	if err := q.Enqueue("A"); err != nil {
		t.Fatalf("enqueue A: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- q.Enqueue("B") }()

	select {
	case err := <-done:
		t.Fatalf("enqueue B returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	got, err := q.Dequeue()
	if err != nil || got != "A" {
		t.Fatalf("dequeue = %q %v, want A", got, err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("enqueue B: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("enqueue B still blocked after dequeue")
	}
	if got, _ := q.Dequeue(); got != "B" {
		t.Fatalf("dequeue = %q, want B", got)
	}
}

func TestCloseReleasesBlockedDequeue(t *testing.T) {
	q := New[int](1)
	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue()
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	q.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("dequeue still blocked after close")
	}
}

func TestCloseDrainsRemainingItems(t *testing.T) {
	q := New[int](4)
	_ = q.Enqueue(1)
	_ = q.Enqueue(2)
	q.Close()
	q.Close()
	if err := q.Enqueue(3); !errors.Is(err, ErrClosed) {
		t.Fatalf("enqueue after close = %v, want ErrClosed", err)
	}
	for _, want := range []int{1, 2} {
		got, err := q.Dequeue()
		if err != nil || got != want {
			t.Fatalf("dequeue = %d %v, want %d", got, err, want)
		}
	}
	if _, err := q.Dequeue(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed once drained, got %v", err)
	}
}

func TestCloseReleasesBlockedEnqueue(t *testing.T) {
	q := New[int](1)
	_ = q.Enqueue(1)
	done := make(chan error, 1)
	go func() { done <- q.Enqueue(2) }()
	time.Sleep(20 * time.Millisecond)
	q.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("enqueue still blocked after close")
	}
}

func TestManyProducersOneConsumer(t *testing.T) {
	const producers, each = 8, 200
	q := New[int](4)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				if err := q.Enqueue(i); err != nil {
					t.Errorf("enqueue: %v", err)
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		q.Close()
	}()

	received := 0
	for {
		if _, err := q.Dequeue(); err != nil {
			break
		}
		received++
	}
	if received != producers*each {
		t.Fatalf("received %d items, want %d", received, producers*each)
	}
}
