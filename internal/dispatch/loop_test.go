package dispatch

import (
	"sync"
	"testing"
)

func TestLoop_RunsJobsInOrder(t *testing.T) {
	l := New(16)
	l.Start()

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup

	wg.Add(8)
	for i := 0; i < 8; i++ {
		i := i
		l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	l.Stop()

	for i, v := range got {
		if v != i {
			t.Fatalf("job %d ran out of order: %v", i, got)
		}
	}
}

func TestLoop_StopIsIdempotent(t *testing.T) {
	l := New(1)
	l.Start()
	l.Stop()
	l.Stop()

	// a post after stop is dropped, not a panic
	l.Post(func() { t.Fatal("job ran after stop") })
}

func TestLoop_SerializesAccess(t *testing.T) {
	l := New(128)
	l.Start()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				done := make(chan struct{})
				l.Post(func() {
					counter++ // safe only because the loop is serial
					close(done)
				})
				<-done
			}
		}()
	}
	wg.Wait()
	l.Stop()

	if counter != 100 {
		t.Fatalf("counter is %d, want 100", counter)
	}
}
