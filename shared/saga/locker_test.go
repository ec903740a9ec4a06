package saga

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLocker_SerialisesSameKey(t *testing.T) {
	locks := newKeyedLocker()

	unlock := locks.Lock("a")
	acquired := make(chan struct{})
	go func() {
		release := locks.Lock("a")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first is held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	<-acquired
}

func TestKeyedLocker_DifferentKeysDoNotBlock(t *testing.T) {
	locks := newKeyedLocker()
	unlockA := locks.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		locks.Lock("b")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyedLocker_ForgetsReleasedKeys(t *testing.T) {
	locks := newKeyedLocker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock("shared")()
		}()
	}
	wg.Wait()

	assert.Zero(t, locks.size())
}
