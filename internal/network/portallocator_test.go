package network

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindOpenPort_MonotonicPerHost(t *testing.T) {
	a := NewPortAllocator(30000)

	first := a.FindOpenPort(1, "hostA")
	second := a.FindOpenPort(1, "hostA")

	assert.Equal(t, 30000, first)
	assert.Equal(t, 30001, second)
}

func TestFindOpenPort_AdvancesByCount(t *testing.T) {
	a := NewPortAllocator(30000)

	first := a.FindOpenPort(5, "hostA")
	second := a.FindOpenPort(1, "hostA")

	assert.Equal(t, 30000, first)
	assert.Equal(t, 30005, second)
}

func TestFindOpenPort_SkipsUsedPorts(t *testing.T) {
	a := NewPortAllocator(30000)
	a.MarkUsed("hostA", 30000)
	a.MarkUsed("hostA", 30001)

	got := a.FindOpenPort(1, "hostA")

	assert.Equal(t, 30002, got)
}

func TestFindOpenPort_LocalhostAliasesShareSequence(t *testing.T) {
	a := NewPortAllocator(30000)

	first := a.FindOpenPort(1, "127.0.0.1")
	second := a.FindOpenPort(1, "::1")
	third := a.FindOpenPort(1, "localhost")

	assert.Equal(t, 30000, first)
	assert.Equal(t, 30001, second)
	assert.Equal(t, 30002, third)
}

func TestFindOpenPort_IndependentHosts(t *testing.T) {
	a := NewPortAllocator(30000)

	a.FindOpenPort(1, "hostA")
	second := a.FindOpenPort(1, "hostB")

	assert.Equal(t, 30000, second)
}

func TestFindOpenPort_DefaultStartingPort(t *testing.T) {
	a := NewPortAllocator(0)

	got := a.FindOpenPort(1, "hostA")

	assert.Equal(t, DefaultStartingPort, got)
}

func TestFindOpenPort_ConcurrentInterleavingStaysDisjoint(t *testing.T) {
	a := NewPortAllocator(30000)

	const n = 50
	results := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- a.FindOpenPort(1, "hostA")
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int]bool, n)
	for p := range results {
		assert.False(t, seen[p], "port %d returned more than once", p)
		seen[p] = true
	}
	assert.Len(t, seen, n)
}
