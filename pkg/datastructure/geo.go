package datastructure

import "github.com/racerstats/laptimer/pkg/geo"

// BoundingBox is the lat/lon footprint of a trace, corners south-west and north-east.
type BoundingBox struct {
	SW geo.Coordinate `json:"sw"`
	NE geo.Coordinate `json:"ne"`
}

func BoundingBoxOf(points []geo.Coordinate) (BoundingBox, bool) {
	sw, ne, ok := geo.Bounds(points)
	if !ok {
		return BoundingBox{}, false
	}
	return BoundingBox{SW: sw, NE: ne}, true
}

// BoundingBoxAround is the square whose half-diagonal is radiusM around c.
func BoundingBoxAround(c geo.Coordinate, radiusM float64) BoundingBox {
	return BoundingBox{
		SW: geo.DestinationPoint(c, 225, radiusM),
		NE: geo.DestinationPoint(c, 45, radiusM),
	}
}

func (b BoundingBox) Min() [2]float64 {
	return [2]float64{b.SW.Lon, b.SW.Lat}
}

func (b BoundingBox) Max() [2]float64 {
	return [2]float64{b.NE.Lon, b.NE.Lat}
}

func (b BoundingBox) Center() geo.Coordinate {
	return geo.MidPoint(b.SW, b.NE)
}

func (b BoundingBox) Contains(c geo.Coordinate) bool {
	return c.Lat >= b.SW.Lat && c.Lat <= b.NE.Lat && c.Lon >= b.SW.Lon && c.Lon <= b.NE.Lon
}
