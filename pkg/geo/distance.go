package geo

import (
	"math"

	"github.com/racerstats/laptimer/pkg/util"
)

// Coordinate is an immutable WGS84 position; Alt is meters and optional.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt,omitempty"`
}

func (c Coordinate) GetLat() float64 {
	return c.Lat
}

func (c Coordinate) GetLon() float64 {
	return c.Lon
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

func NewCoordinateWithAlt(lat, lon, alt float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
		Alt: alt,
	}
}

// IsOrigin reports whether c is the (0,0) sentinel that location sources emit before a fix.
func (c Coordinate) IsOrigin() bool {
	return c.Lat == 0 && c.Lon == 0
}

// Valid reports whether c lies in the WGS84 range.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180 &&
		util.IsFinite(c.Lat) && util.IsFinite(c.Lon)
}

const (
	EarthRadiusM = 6371000.0
)

// Distance. haversine great-circle distance in meters.
func Distance(a, b Coordinate) float64 {
	latOne := util.DegreeToRadians(a.Lat)
	latTwo := util.DegreeToRadians(b.Lat)
	dLat := util.DegreeToRadians(b.Lat - a.Lat)
	dLon := util.DegreeToRadians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(latOne)*math.Cos(latTwo)*sinLon*sinLon
	if h > 1 {
		h = 1
	}
	c := 2.0 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusM * c
}

/*
Bearing. initial bearing of the great-circle path from -> to, in radians within [-pi, pi].
coincident points give 0.
https://www.movable-type.co.uk/scripts/latlong.html
*/
func Bearing(from, to Coordinate) float64 {
	dLon := util.DegreeToRadians(to.Lon - from.Lon)

	lat1 := util.DegreeToRadians(from.Lat)
	lat2 := util.DegreeToRadians(to.Lat)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	if y == 0 && x == 0 {
		return 0
	}
	return math.Atan2(y, x)
}

// BearingDegrees. initial bearing normalized to [0, 360).
func BearingDegrees(from, to Coordinate) float64 {
	return math.Mod(util.RadiansToDegree(Bearing(from, to))+360, 360.0)
}

// PerpendicularDistance. cross-track distance (meters) of point from the chord lineStart->lineEnd,
// using the planar approximation |d(start,point) * sin(brg(start,point) - brg(start,end))|.
// valid for track-scale chords (a few km). a zero-length chord falls back to the distance from lineStart.
func PerpendicularDistance(point, lineStart, lineEnd Coordinate) float64 {
	d := Distance(lineStart, point)
	if d == 0 {
		return 0
	}
	if Distance(lineStart, lineEnd) == 0 {
		return d
	}

	angle := Bearing(lineStart, point) - Bearing(lineStart, lineEnd)
	res := math.Abs(d * math.Sin(angle))
	if !util.IsFinite(res) {
		return 0
	}
	return res
}

// DestinationPoint returns the point reached from (lat, lon) after dist meters on the given
// bearing (degrees).
func DestinationPoint(origin Coordinate, bearing float64, dist float64) Coordinate {

	dr := dist / EarthRadiusM

	bearing = util.DegreeToRadians(bearing)

	lat1 := util.DegreeToRadians(origin.Lat)
	lon1 := util.DegreeToRadians(origin.Lon)

	lat2Part1 := math.Sin(lat1) * math.Cos(dr)
	lat2Part2 := math.Cos(lat1) * math.Sin(dr) * math.Cos(bearing)

	lat2 := math.Asin(lat2Part1 + lat2Part2)

	lon2Part1 := math.Sin(bearing) * math.Sin(dr) * math.Cos(lat1)
	lon2Part2 := math.Cos(dr) - (math.Sin(lat1) * math.Sin(lat2))

	lon2 := lon1 + math.Atan2(lon2Part1, lon2Part2)

	return NewCoordinate(util.RadiansToDegree(lat2), normalizeLongitude(util.RadiansToDegree(lon2)))
}

// MidPoint. great-circle midpoint of a and b.
func MidPoint(a, b Coordinate) Coordinate {
	latOne := util.DegreeToRadians(a.Lat)
	longOne := util.DegreeToRadians(a.Lon)
	latTwo := util.DegreeToRadians(b.Lat)
	longTwo := util.DegreeToRadians(b.Lon)

	bx := math.Cos(latTwo) * math.Cos(longTwo-longOne)
	by := math.Cos(latTwo) * math.Sin(longTwo-longOne)
	denom := math.Sqrt((math.Cos(latOne)+bx)*(math.Cos(latOne)+bx) + by*by)
	lat := math.Atan2(math.Sin(latOne)+math.Sin(latTwo), denom)
	lon := longOne + math.Atan2(by, math.Cos(latOne)+bx)
	return NewCoordinateWithAlt(util.RadiansToDegree(lat), normalizeLongitude(util.RadiansToDegree(lon)),
		(a.Alt+b.Alt)/2)
}

// PathLength sums the distance between consecutive points.
func PathLength(points []Coordinate) float64 {
	length := 0.0
	for i := 1; i < len(points); i++ {
		length += Distance(points[i-1], points[i])
	}
	return length
}

// CumulativeDistances returns, for every point, the path length from points[0].
func CumulativeDistances(points []Coordinate) []float64 {
	dists := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		dists[i] = dists[i-1] + Distance(points[i-1], points[i])
	}
	return dists
}

// normalizeLongitude. long in degree
func normalizeLongitude(long float64) float64 {
	return math.Mod((long+540), 360) - 180.0
}
