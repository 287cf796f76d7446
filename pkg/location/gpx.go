package location

import (
	"io"

	"github.com/racerstats/laptimer/pkg/util"
	"github.com/tkrajina/gpxgo/gpx"
)

/*
ReadGPX. flattens every track segment of a GPX document into fixes, in document order. speed is derived
from consecutive points through SpeedEnhancer; points without a timestamp inherit the previous one
plus one second so replay stays strictly ordered.
*/
func ReadGPX(r io.Reader) ([]Fix, error) {
	doc, err := gpx.Parse(r)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "parse gpx")
	}

	enhancer := NewSpeedEnhancer()
	fixes := make([]Fix, 0, 1024)
	var lastTs int64

	for _, track := range doc.Tracks {
		for _, segment := range track.Segments {
			for _, point := range segment.Points {
				ts := lastTs + 1000
				if !point.Timestamp.IsZero() {
					ts = point.Timestamp.UnixMilli()
				}
				if len(fixes) > 0 && ts <= lastTs {
					continue
				}

				fix := Fix{
					Timestamp: ts,
					Latitude:  point.Latitude,
					Longitude: point.Longitude,
					Source:    PhoneGPS,
				}
				if point.Elevation.NotNull() {
					fix.Altitude = point.Elevation.Value()
				}
				fixes = append(fixes, enhancer.Apply(fix))
				lastTs = ts
			}
		}
	}
	return fixes, nil
}
