package location

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/racerstats/laptimer/pkg/geo"
	"github.com/racerstats/laptimer/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDevicePacket(t *testing.T) {
	want := Fix{
		Timestamp: 1_700_000_000_000,
		Latitude:  -7.7956,
		Longitude: 110.3695,
		Speed:     27.5,
		Accuracy:  1.5,
		Altitude:  113.25,
		Bearing:   271.5,
		Source:    ExternalDevice,
	}
	got, err := ParseDevicePacket(EncodeDevicePacket(want), want.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseDevicePacketErrors(t *testing.T) {
	testCases := []struct {
		name    string
		payload []byte
		wantErr error
	}{
		{name: "empty", payload: nil, wantErr: ErrShortPacket},
		{name: "39 bytes", payload: make([]byte, 39), wantErr: ErrShortPacket},
		{name: "latitude out of range", payload: EncodeDevicePacket(Fix{Latitude: 91, Longitude: 0}), wantErr: ErrOutOfRange},
		{name: "longitude out of range", payload: EncodeDevicePacket(Fix{Latitude: 0, Longitude: -180.5}), wantErr: ErrOutOfRange},
		{name: "nan latitude", payload: EncodeDevicePacket(Fix{Latitude: math.NaN()}), wantErr: ErrOutOfRange},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDevicePacket(tt.payload, 0)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.Equal(t, util.ErrBadParamInput, util.ErrorCode(err))
		})
	}
}

func TestParseDevicePacketIgnoresTrailingBytes(t *testing.T) {
	b := append(EncodeDevicePacket(Fix{Latitude: 1, Longitude: 2}), 0xff, 0xff)
	fix, err := ParseDevicePacket(b, 5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, fix.Latitude)
	assert.Equal(t, int64(5), fix.Timestamp)
}

func TestSpeedEnhancer(t *testing.T) {
	start := geo.NewCoordinate(45, 7)
	ten := geo.DestinationPoint(start, 90, 10)

	testCases := []struct {
		name      string
		prev      *Fix
		fix       Fix
		wantSpeed float64
	}{
		{
			name:      "no previous keeps raw",
			fix:       Fix{Timestamp: 1000, Latitude: start.Lat, Longitude: start.Lon, Speed: 0},
			wantSpeed: 0,
		},
		{
			name:      "reported speed wins",
			prev:      &Fix{Timestamp: 0, Latitude: start.Lat, Longitude: start.Lon},
			fix:       Fix{Timestamp: 1000, Latitude: ten.Lat, Longitude: ten.Lon, Speed: 3},
			wantSpeed: 3,
		},
		{
			name:      "derived from displacement",
			prev:      &Fix{Timestamp: 0, Latitude: start.Lat, Longitude: start.Lon},
			fix:       Fix{Timestamp: 2000, Latitude: ten.Lat, Longitude: ten.Lon, Speed: 0},
			wantSpeed: 5,
		},
		{
			name:      "tiny displacement is standing still",
			prev:      &Fix{Timestamp: 0, Latitude: start.Lat, Longitude: start.Lon},
			fix:       Fix{Timestamp: 1000, Latitude: start.Lat, Longitude: start.Lon, Speed: -1},
			wantSpeed: 0,
		},
		{
			name:      "same timestamp keeps raw",
			prev:      &Fix{Timestamp: 1000, Latitude: start.Lat, Longitude: start.Lon},
			fix:       Fix{Timestamp: 1000, Latitude: ten.Lat, Longitude: ten.Lon, Speed: -1},
			wantSpeed: -1,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			e := NewSpeedEnhancer()
			if tt.prev != nil {
				e.Apply(*tt.prev)
			}
			got := e.Apply(tt.fix)
			assert.InDelta(t, tt.wantSpeed, got.Speed, 1e-3)
		})
	}
}

func TestSpeedEnhancerIgnoresStaleFix(t *testing.T) {
	start := geo.NewCoordinate(45, 7)
	ten := geo.DestinationPoint(start, 90, 10)
	far := geo.DestinationPoint(start, 270, 500)

	e := NewSpeedEnhancer()
	e.Apply(Fix{Timestamp: 2000, Latitude: start.Lat, Longitude: start.Lon})

	stale := e.Apply(Fix{Timestamp: 1000, Latitude: far.Lat, Longitude: far.Lon})
	assert.Equal(t, 0.0, stale.Speed)

	// speed is still derived from the fix at 2000
	got := e.Apply(Fix{Timestamp: 4000, Latitude: ten.Lat, Longitude: ten.Lon})
	assert.InDelta(t, 5, got.Speed, 1e-3)
}

func TestRateMeter(t *testing.T) {
	m := NewRateMeter(1000)
	assert.Equal(t, 0.0, m.Observe(0))
	assert.Equal(t, 2.0, m.Observe(100))
	m.Observe(200)
	m.Observe(300)
	assert.Equal(t, 5.0, m.Observe(400))
	// 0 and 100 fall out of the window
	assert.Equal(t, 4.0, m.Observe(1150))
	assert.Equal(t, 0.0, m.Observe(5000))

	m.Observe(5100)
	m.Reset()
	assert.Equal(t, 0.0, m.Observe(100))
}

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="laptimer-test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>test</name>
    <trkseg>
      <trkpt lat="45.000000" lon="7.000000"><ele>250.5</ele><time>2024-05-01T10:00:00Z</time></trkpt>
      <trkpt lat="45.000090" lon="7.000000"><ele>251</ele><time>2024-05-01T10:00:01Z</time></trkpt>
      <trkpt lat="45.000090" lon="7.000000"><time>2024-05-01T10:00:01Z</time></trkpt>
      <trkpt lat="45.000180" lon="7.000000"><time>2024-05-01T10:00:02Z</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestReadGPX(t *testing.T) {
	fixes, err := ReadGPX(strings.NewReader(sampleGPX))
	require.NoError(t, err)
	require.Len(t, fixes, 3, "duplicate timestamp is dropped")

	assert.Equal(t, int64(1714557600000), fixes[0].Timestamp)
	assert.Equal(t, 250.5, fixes[0].Altitude)
	assert.Equal(t, 0.0, fixes[0].Speed)
	// 0.00009 deg of latitude is ~10 m
	assert.InDelta(t, 10.0, fixes[1].Speed, 0.1)
	assert.InDelta(t, 10.0, fixes[2].Speed, 0.1)
	for i := 1; i < len(fixes); i++ {
		assert.Greater(t, fixes[i].Timestamp, fixes[i-1].Timestamp)
	}
}

func TestReadGPXInvalid(t *testing.T) {
	_, err := ReadGPX(strings.NewReader("not xml"))
	require.Error(t, err)
	assert.Equal(t, util.ErrBadParamInput, util.ErrorCode(err))
}
