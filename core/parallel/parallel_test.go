package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelizeWorkersCoversEveryItemOnce(t *testing.T) {
	tests := []struct {
		name    string
		items   int
		workers int
	}{
		{"more items than workers", 1000, 7},
		{"more workers than items", 3, 16},
		{"single worker", 10, 1},
		{"uneven split", 101, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]int32, tt.items)
			ParallelizeWorkers(tt.items, tt.workers, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&seen[i], 1)
				}
			})
			for i, n := range seen {
				assert.Equal(t, int32(1), n, "item %d", i)
			}
		})
	}
}

func TestParallelizeEmpty(t *testing.T) {
	called := false
	Parallelize(0, func(start, end int) { called = true })
	ParallelizeWithThreshold(0, 10, func(start, end int) { called = true })
	assert.False(t, called)
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	var calls [][2]int
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		calls = append(calls, [2]int{start, end})
	})
	assert.Equal(t, [][2]int{{0, 5}}, calls)
}

func TestParallelizeSum(t *testing.T) {
	var total int64
	Parallelize(10000, func(start, end int) {
		var local int64
		for i := start; i < end; i++ {
			local += int64(i)
		}
		atomic.AddInt64(&total, local)
	})
	assert.Equal(t, int64(10000*9999/2), total)
}
