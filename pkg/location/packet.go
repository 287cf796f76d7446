package location

import (
	"encoding/binary"
	"math"

	"github.com/racerstats/laptimer/pkg/util"
)

const (
	DevicePacketSize = 40
)

/*
ParseDevicePacket. decodes an external GPS device notification payload. little-endian layout:

	[0:8]   latitude  float64
	[8:16]  longitude float64
	[16:20] speed     float32 m/s
	[20:24] accuracy  float32 m
	[24:32] altitude  float64 m
	[32:36] bearing   float32 deg
	[36:40] reserved

the device carries no clock, the fix is stamped with now (unix ms).
*/
func ParseDevicePacket(b []byte, now int64) (Fix, error) {
	if len(b) < DevicePacketSize {
		return Fix{}, util.WrapErrorf(ErrShortPacket, util.ErrBadParamInput, "got %d bytes, need %d", len(b), DevicePacketSize)
	}

	le := binary.LittleEndian
	fix := Fix{
		Timestamp: now,
		Latitude:  math.Float64frombits(le.Uint64(b[0:8])),
		Longitude: math.Float64frombits(le.Uint64(b[8:16])),
		Speed:     float64(math.Float32frombits(le.Uint32(b[16:20]))),
		Accuracy:  float64(math.Float32frombits(le.Uint32(b[20:24]))),
		Altitude:  math.Float64frombits(le.Uint64(b[24:32])),
		Bearing:   float64(math.Float32frombits(le.Uint32(b[32:36]))),
		Source:    ExternalDevice,
	}

	if !(fix.Latitude >= -90 && fix.Latitude <= 90 && fix.Longitude >= -180 && fix.Longitude <= 180) {
		return Fix{}, util.WrapErrorf(ErrOutOfRange, util.ErrBadParamInput, "lat %v lon %v", fix.Latitude, fix.Longitude)
	}
	return fix, nil
}

// EncodeDevicePacket is the inverse of ParseDevicePacket, used by simulators and tests.
func EncodeDevicePacket(f Fix) []byte {
	b := make([]byte, DevicePacketSize)
	le := binary.LittleEndian
	le.PutUint64(b[0:8], math.Float64bits(f.Latitude))
	le.PutUint64(b[8:16], math.Float64bits(f.Longitude))
	le.PutUint32(b[16:20], math.Float32bits(float32(f.Speed)))
	le.PutUint32(b[20:24], math.Float32bits(float32(f.Accuracy)))
	le.PutUint64(b[24:32], math.Float64bits(f.Altitude))
	le.PutUint32(b[32:36], math.Float32bits(float32(f.Bearing)))
	return b
}
