// SPDX-License-Identifier: GPL-2.0-or-later

// Package novatek decodes the GPS records that Novatek based
// dashcams embed in their mp4 files.
package novatek

import (
	"encoding/binary"
	"math"
	"time"
)

// Record layout.
//
//	offset  size  type    field
//	 0      4     u32 BE  box size, equal to the record length
//	 4      4     ascii   box type "free"
//	 8      4     ascii   magic "GPS "
//	16      4     u32 LE  hour
//	20      4     u32 LE  minute
//	24      4     u32 LE  second
//	28      4     u32 LE  year - 2000
//	32      4     u32 LE  month
//	36      4     u32 LE  day
//	40      1     ascii   'A' if the receiver had a fix
//	41      1     ascii   latitude hemisphere N/S
//	42      1     ascii   longitude hemisphere E/W
//	44      4     f32 LE  latitude DDDmm.mmmm
//	48      4     f32 LE  longitude DDDmm.mmmm
//	52      4     f32 LE  speed, knots
//	56      4     f32 LE  bearing, degrees
const (
	offsetBoxSize  = 0
	offsetBoxType  = 4
	offsetMagic    = 8
	offsetHour     = 16
	offsetMinute   = 20
	offsetSecond   = 24
	offsetYear     = 28
	offsetMonth    = 32
	offsetDay      = 36
	offsetSatLock  = 40
	offsetLatHemi  = 41
	offsetLonHemi  = 42
	offsetLat      = 44
	offsetLon      = 48
	offsetSpeed    = 52
	offsetBearing  = 56
	offsetRest     = 60
	tagSize        = 4
	satLockAcquire = 'A'
)

// Record constants.
const (
	MinSize    = offsetRest
	BoxType    = "free"
	MagicWord  = "GPS "
	YearOffset = 2000
)

// LatitudeHemisphere N/S.
type LatitudeHemisphere uint8

// Latitude hemispheres.
const (
	North LatitudeHemisphere = 'N'
	South LatitudeHemisphere = 'S'
)

func (h LatitudeHemisphere) String() string {
	if h == South {
		return "South"
	}
	return "North"
}

// LongitudeHemisphere E/W.
type LongitudeHemisphere uint8

// Longitude hemispheres.
const (
	East LongitudeHemisphere = 'E'
	West LongitudeHemisphere = 'W'
)

func (h LongitudeHemisphere) String() string {
	if h == West {
		return "West"
	}
	return "East"
}

// GPS is a read-only view over a single GPS record.
// The buffer is not copied.
type GPS struct {
	buf []byte
}

// NewGPSUnchecked returns a view without validating it.
// Accessors may panic if the buffer is shorter than MinSize.
func NewGPSUnchecked(buf []byte) GPS {
	return GPS{buf: buf}
}

// NewGPS validates buf and returns a view over it.
func NewGPS(buf []byte) (GPS, error) {
	if err := Validate(buf); err != nil {
		return GPS{}, err
	}
	return GPS{buf: buf}, nil
}

// Validate checks that buf is a well formed record with a satellite lock.
// The checks run in a fixed order and the first failure is returned
// as a *RecordError.
func Validate(buf []byte) error {
	if len(buf) < MinSize {
		return &RecordError{Kind: KindMissingBytes}
	}

	g := NewGPSUnchecked(buf)
	if boxSize := int(g.BoxSize()); boxSize != len(buf) {
		return &RecordError{
			Kind:        KindInvalidBoxSize,
			BufferLen:   len(buf),
			DeclaredLen: boxSize,
		}
	}
	if typ := g.BoxType(); typ != BoxType {
		return &RecordError{
			Kind:     KindInvalidBoxType,
			Actual:   typ,
			Expected: BoxType,
		}
	}
	if magic := g.MagicWord(); magic != MagicWord {
		return &RecordError{
			Kind:     KindInvalidMagicWord,
			Actual:   magic,
			Expected: MagicWord,
		}
	}
	if !g.SatLock() {
		return &RecordError{Kind: KindNoSatLock}
	}
	if _, ok := g.LatitudeHemisphere(); !ok {
		return &RecordError{Kind: KindInvalidHemisphere}
	}
	if _, ok := g.LongitudeHemisphere(); !ok {
		return &RecordError{Kind: KindInvalidHemisphere}
	}
	return nil
}

// BoxSize self declared record length.
func (g GPS) BoxSize() uint32 {
	return binary.BigEndian.Uint32(g.buf[offsetBoxSize:])
}

// BoxType box type tag.
func (g GPS) BoxType() string {
	return string(g.buf[offsetBoxType : offsetBoxType+tagSize])
}

// MagicWord magic tag.
func (g GPS) MagicWord() string {
	return string(g.buf[offsetMagic : offsetMagic+tagSize])
}

func (g GPS) u32(offset int) uint32 {
	return binary.LittleEndian.Uint32(g.buf[offset:])
}

func (g GPS) f32(offset int) float32 {
	return math.Float32frombits(g.u32(offset))
}

// Hour of day, 0-23.
func (g GPS) Hour() uint32 { return g.u32(offsetHour) }

// Minute of hour.
func (g GPS) Minute() uint32 { return g.u32(offsetMinute) }

// Second of minute.
func (g GPS) Second() uint32 { return g.u32(offsetSecond) }

// Year full year.
func (g GPS) Year() uint32 { return YearOffset + g.u32(offsetYear) }

// Month 1-12.
func (g GPS) Month() uint32 { return g.u32(offsetMonth) }

// Day of month.
func (g GPS) Day() uint32 { return g.u32(offsetDay) }

// Time returns the wall clock time recorded by the device.
// The device does not store a time zone, the value is placed
// in time.UTC without any conversion.
func (g GPS) Time() time.Time {
	return time.Date(
		int(g.Year()),
		time.Month(g.Month()),
		int(g.Day()),
		int(g.Hour()),
		int(g.Minute()),
		int(g.Second()),
		0,
		time.UTC,
	)
}

// SatLock reports if the receiver had a fix.
func (g GPS) SatLock() bool {
	return g.buf[offsetSatLock] == satLockAcquire
}

// LatitudeHemisphere returns false if the flag is invalid.
func (g GPS) LatitudeHemisphere() (LatitudeHemisphere, bool) {
	switch h := LatitudeHemisphere(g.buf[offsetLatHemi]); h {
	case North, South:
		return h, true
	}
	return 0, false
}

// LongitudeHemisphere returns false if the flag is invalid.
func (g GPS) LongitudeHemisphere() (LongitudeHemisphere, bool) {
	switch h := LongitudeHemisphere(g.buf[offsetLonHemi]); h {
	case East, West:
		return h, true
	}
	return 0, false
}

// Latitude packed DDDmm.mmmm, magnitude only.
func (g GPS) Latitude() float32 { return g.f32(offsetLat) }

// Longitude packed DDDmm.mmmm, magnitude only.
func (g GPS) Longitude() float32 { return g.f32(offsetLon) }

// Speed in knots.
func (g GPS) Speed() float32 { return g.f32(offsetSpeed) }

// Bearing in degrees.
func (g GPS) Bearing() float32 { return g.f32(offsetBearing) }

// LatitudeDeg signed decimal degrees.
func (g GPS) LatitudeDeg() float64 {
	h, _ := g.LatitudeHemisphere()
	return DMSToDeg(float64(g.Latitude()), h == South)
}

// LongitudeDeg signed decimal degrees.
func (g GPS) LongitudeDeg() float64 {
	h, _ := g.LongitudeHemisphere()
	return DMSToDeg(float64(g.Longitude()), h == West)
}

// SpeedMPS speed in meters per second.
func (g GPS) SpeedMPS() float64 {
	return KnotsToMPS(float64(g.Speed()))
}

// Fix is a decoded and converted record.
type Fix struct {
	Time         time.Time
	LatitudeDeg  float64
	LongitudeDeg float64
	SpeedMPS     float64
	BearingDeg   float32
}

// Decode validates buf and converts it to a Fix.
func Decode(buf []byte) (Fix, error) {
	g, err := NewGPS(buf)
	if err != nil {
		return Fix{}, err
	}
	return g.Fix(), nil
}

// Fix converts the record.
func (g GPS) Fix() Fix {
	return Fix{
		Time:         g.Time(),
		LatitudeDeg:  g.LatitudeDeg(),
		LongitudeDeg: g.LongitudeDeg(),
		SpeedMPS:     g.SpeedMPS(),
		BearingDeg:   g.Bearing(),
	}
}
