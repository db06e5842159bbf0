package cluster

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	key := Key{Name: "mdb", Namespace: "prod"}

	var concurrent int32
	var maxConcurrent int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.WithLock(key, func() {
				n := atomic.AddInt32(&concurrent, 1)
				for {
					old := atomic.LoadInt32(&maxConcurrent)
					if n <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&concurrent, -1)
			})
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxConcurrent, "reconciles for the same ClusterKey must never overlap")
}

func TestKeyedMutexAllowsDifferentKeysInParallel(t *testing.T) {
	km := NewKeyedMutex()
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 2; i++ {
		name := "a"
		if i == 1 {
			name = "b"
		}
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			km.WithLock(Key{Name: n, Namespace: "prod"}, func() {
				started <- struct{}{}
				<-release
			})
		}(name)
	}

	assert.Eventually(t, func() bool { return len(started) == 2 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
}
