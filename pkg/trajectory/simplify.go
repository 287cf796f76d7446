package trajectory

import (
	"github.com/racerstats/laptimer/pkg/geo"
)

const (
	DefaultEpsilonM = 10.0
)

/*
Simplify. Douglas-Peucker reduction of an ordered trace. a point survives when its perpendicular
distance (geo.PerpendicularDistance) to the chord of the enclosing subrange exceeds epsilon meters.
endpoints are always kept, relative order is preserved, and ties on the maximum distance go to the
lowest index. worst case O(n^2).

traces with fewer than 3 points are returned unchanged. the result never aliases the input.
*/
func Simplify(points []geo.Coordinate, epsilon float64) []geo.Coordinate {
	if len(points) < 3 {
		out := make([]geo.Coordinate, len(points))
		copy(out, points)
		return out
	}
	if epsilon < 0 || epsilon != epsilon {
		epsilon = 0
	}

	keep := SimplifyIndices(points, epsilon)
	out := make([]geo.Coordinate, 0, len(keep))
	for _, idx := range keep {
		out = append(out, points[idx])
	}
	return out
}

// SimplifyIndices returns the ascending indices of the points Simplify retains.
func SimplifyIndices(points []geo.Coordinate, epsilon float64) []int {
	n := len(points)
	if n < 3 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	mask := make([]bool, n)
	mask[0] = true
	mask[n-1] = true
	douglasPeucker(points, 0, n-1, epsilon, mask)

	idx := make([]int, 0, n)
	for i, k := range mask {
		if k {
			idx = append(idx, i)
		}
	}
	return idx
}

func douglasPeucker(points []geo.Coordinate, start, end int, epsilon float64, mask []bool) {
	if end <= start+1 {
		return
	}

	maxDistance := -1.0
	maxIndex := start + 1

	startPoint := points[start]
	endPoint := points[end]

	for i := start + 1; i < end; i++ {
		d := geo.PerpendicularDistance(points[i], startPoint, endPoint)
		if d > maxDistance {
			maxDistance = d
			maxIndex = i
		}
	}

	if maxDistance > epsilon {
		mask[maxIndex] = true
		douglasPeucker(points, start, maxIndex, epsilon, mask)
		douglasPeucker(points, maxIndex, end, epsilon, mask)
	}
}
