package lock

import (
	"testing"
	"time"
)

func TestLockUnlock(t *testing.T) {
	l := New(time.Second)
	c := l.Lock("test")
	l.Unlock("test", c)

	// A second Lock/Unlock cycle should not deadlock now that the first was
	// released.
	done := make(chan struct{})
	go func() {
		c2 := l.Lock("test2")
		l.Unlock("test2", c2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second Lock did not acquire after Unlock")
	}
}

func TestRLockConcurrent(t *testing.T) {
	l := New(time.Second)
	c1 := l.RLock("reader1")
	c2 := l.RLock("reader2")
	l.RUnlock("reader1", c1)
	l.RUnlock("reader2", c2)
}
