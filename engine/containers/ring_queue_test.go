package containers

import (
	"errors"
	"testing"
)

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d) error = %v", i, err)
		}
	}
	if !rq.IsFull() {
		t.Error("queue should be full")
	}
	if err := rq.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Enqueue on full queue error = %v, want ErrQueueFull", err)
	}

	if v, _ := rq.Peek(); v != 1 {
		t.Errorf("Peek() = %d, want 1", v)
	}
	for want := 1; want <= 3; want++ {
		got, err := rq.Dequeue()
		if err != nil || got != want {
			t.Errorf("Dequeue() = %d, %v; want %d", got, err, want)
		}
	}
	if _, err := rq.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("Dequeue on empty queue error = %v, want ErrQueueEmpty", err)
	}
}

func TestRingQueueWrapAround(t *testing.T) {
	rq := NewRingQueue[string](2)
	_ = rq.Enqueue("a")
	_ = rq.Enqueue("b")
	_, _ = rq.Dequeue()
	if err := rq.Enqueue("c"); err != nil {
		t.Fatalf("Enqueue after Dequeue error = %v", err)
	}
	for _, want := range []string{"b", "c"} {
		if got, _ := rq.Dequeue(); got != want {
			t.Errorf("Dequeue() = %q, want %q", got, want)
		}
	}
}

func TestRingQueueClear(t *testing.T) {
	rq := NewRingQueue[int](4)
	_ = rq.Enqueue(1)
	_ = rq.Enqueue(2)
	rq.Clear()
	if rq.Len() != 0 || !rq.IsEmpty() {
		t.Errorf("Len() after Clear = %d, want 0", rq.Len())
	}
	if rq.Cap() != 4 {
		t.Errorf("Cap() = %d, want 4", rq.Cap())
	}
	_ = rq.Enqueue(9)
	if got, _ := rq.Peek(); got != 9 {
		t.Errorf("Peek() after Clear = %d, want 9", got)
	}
}
