package systems

import (
	"errors"
	"sync"
	"testing"

	"github.com/spaghettifunk/meshforge/engine/core"
)

func TestNewJobSystemRejectsBadSizes(t *testing.T) {
	if _, err := NewJobSystem(0, 1); !errors.Is(err, ErrNoWorkers) || !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("NewJobSystem(0, 1) error = %v", err)
	}
	if _, err := NewJobSystem(1, -1); !errors.Is(err, ErrNegativeChannelSize) {
		t.Errorf("NewJobSystem(1, -1) error = %v", err)
	}
}

func TestJobSystemRunsEveryJob(t *testing.T) {
	js, err := NewJobSystem(4, 2)
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	sum, failures := 0, 0
	errOdd := errors.New("odd")
	for i := 1; i <= 10; i++ {
		n := i
		js.Submit(JobTask{
			Name: "square",
			Run: func() (interface{}, error) {
				if n%2 == 1 {
					return nil, errOdd
				}
				return n * n, nil
			},
			OnComplete: func(result interface{}) {
				mu.Lock()
				sum += result.(int)
				mu.Unlock()
			},
			OnFailure: func(err error) {
				if !errors.Is(err, errOdd) {
					t.Errorf("OnFailure got %v", err)
				}
				mu.Lock()
				failures++
				mu.Unlock()
			},
		})
	}
	js.Submit(JobTask{Name: "empty"})

	if err := js.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := js.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if sum != 4+16+36+64+100 || failures != 5 {
		t.Errorf("sum = %d, failures = %d", sum, failures)
	}
}
