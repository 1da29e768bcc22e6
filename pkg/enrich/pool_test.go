package enrich

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_RoundRobin(t *testing.T) {
	p := NewPool([]string{"a", "b", "c"})

	got := []string{p.Next(), p.Next(), p.Next(), p.Next()}
	assert.Equal(t, []string{"a", "b", "c", "a"}, got)
}

func TestPool_SingleKey(t *testing.T) {
	p := NewPool([]string{"only"})

	assert.Equal(t, "only", p.Next())
	assert.Equal(t, "only", p.Next())
}

func TestPool_Empty(t *testing.T) {
	p := NewPool(nil)

	assert.Equal(t, "", p.Next())
	assert.Equal(t, 0, p.Size())
}

func TestPool_ConcurrentDistribution(t *testing.T) {
	p := NewPool([]string{"a", "b"})

	var mu sync.Mutex
	counts := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k := p.Next()
			mu.Lock()
			counts[k]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counts["a"])
	assert.Equal(t, 50, counts["b"])
}
