package concurrent

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool(t *testing.T) {
	wp := NewWorkerPool[int, int](3, 10)
	wp.Start(func(job int) int { return job * job })
	for i := 1; i <= 10; i++ {
		wp.AddJob(i)
	}
	wp.Close()
	wp.Wait()

	sum := 0
	for r := range wp.CollectResults() {
		sum += r
	}
	assert.Equal(t, 385, sum)
}

func TestMapOrdered(t *testing.T) {
	testCases := []struct {
		name    string
		workers int
		jobs    []int
	}{
		{name: "empty", workers: 4, jobs: nil},
		{name: "single worker", workers: 1, jobs: []int{3, 1, 2}},
		{name: "more workers than jobs", workers: 16, jobs: []int{5, 4}},
		{name: "zero workers", workers: 0, jobs: []int{1, 2, 3, 4, 5, 6, 7}},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			got := MapOrdered(tt.workers, tt.jobs, func(j int) int {
				calls.Add(1)
				return j * 10
			})
			want := make([]int, len(tt.jobs))
			for i, j := range tt.jobs {
				want[i] = j * 10
			}
			assert.Equal(t, want, got)
			assert.Equal(t, int32(len(tt.jobs)), calls.Load())
		})
	}
}
