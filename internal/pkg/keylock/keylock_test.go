package keylock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStripe_Bounded(t *testing.T) {
	seen := map[uint8]struct{}{}
	for i := 0; i < 50000; i++ {
		seen[Stripe(fmt.Sprintf("nope-%d", i))] = struct{}{}
	}
	assert.LessOrEqual(t, len(seen), Stripes)
	assert.Equal(t, Stripe("file-1"), Stripe("file-1"))
}

func TestLocks_SerializeSameID(t *testing.T) {
	l := New()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Lock("file-1")
			defer l.Unlock("file-1")

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}
