package geo

import (
	"github.com/golang/geo/s2"
)

func toS2(c Coordinate) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon))
}

// SegmentsCross reports whether the great-circle segments a1a2 and b1b2 cross at a point interior
// to both. touching endpoints and degenerate segments do not count.
func SegmentsCross(a1, a2, b1, b2 Coordinate) bool {
	if a1 == a2 || b1 == b2 {
		return false
	}
	return s2.CrossingSign(toS2(a1), toS2(a2), toS2(b1), toS2(b2)) == s2.Cross
}

// Bounds returns the south-west and north-east corners of the lat/lng rectangle enclosing points.
func Bounds(points []Coordinate) (Coordinate, Coordinate, bool) {
	if len(points) == 0 {
		return Coordinate{}, Coordinate{}, false
	}
	rect := s2.EmptyRect()
	for _, p := range points {
		rect = rect.AddPoint(s2.LatLngFromDegrees(p.Lat, p.Lon))
	}
	lo := rect.Lo()
	hi := rect.Hi()
	return NewCoordinate(lo.Lat.Degrees(), lo.Lng.Degrees()), NewCoordinate(hi.Lat.Degrees(), hi.Lng.Degrees()), true
}

// ProjectPointToLine snaps p onto the great-circle segment ab.
func ProjectPointToLine(a, b, p Coordinate) Coordinate {
	projection := s2.Project(toS2(p), toS2(a), toS2(b))
	ll := s2.LatLngFromPoint(projection)
	return NewCoordinate(ll.Lat.Degrees(), ll.Lng.Degrees())
}

// DistanceToSegment. meters from p to its projection on segment ab.
func DistanceToSegment(a, b, p Coordinate) float64 {
	if a == b {
		return Distance(a, p)
	}
	return Distance(p, ProjectPointToLine(a, b, p))
}
