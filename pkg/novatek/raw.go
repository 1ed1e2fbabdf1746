// SPDX-License-Identifier: GPL-2.0-or-later

package novatek

import (
	"encoding/binary"
	"math"
)

// Raw holds the fields of a record before encoding.
type Raw struct {
	Hour, Minute, Second uint32
	Year                 uint32 // Full year.
	Month, Day           uint32

	SatLock byte // 'A' when locked.
	LatHemi byte
	LonHemi byte

	Latitude  float32 // DDDmm.mmmm
	Longitude float32 // DDDmm.mmmm
	Speed     float32 // Knots.
	Bearing   float32

	// Trailing bytes after the fixed fields.
	Padding int
}

// Marshal encodes the record including its box header.
func (r Raw) Marshal() []byte {
	out := make([]byte, MinSize+r.Padding)

	binary.BigEndian.PutUint32(out[offsetBoxSize:], uint32(len(out)))
	copy(out[offsetBoxType:], BoxType)
	copy(out[offsetMagic:], MagicWord)

	le := binary.LittleEndian
	le.PutUint32(out[offsetHour:], r.Hour)
	le.PutUint32(out[offsetMinute:], r.Minute)
	le.PutUint32(out[offsetSecond:], r.Second)
	le.PutUint32(out[offsetYear:], r.Year-YearOffset)
	le.PutUint32(out[offsetMonth:], r.Month)
	le.PutUint32(out[offsetDay:], r.Day)

	out[offsetSatLock] = r.SatLock
	out[offsetLatHemi] = r.LatHemi
	out[offsetLonHemi] = r.LonHemi

	le.PutUint32(out[offsetLat:], math.Float32bits(r.Latitude))
	le.PutUint32(out[offsetLon:], math.Float32bits(r.Longitude))
	le.PutUint32(out[offsetSpeed:], math.Float32bits(r.Speed))
	le.PutUint32(out[offsetBearing:], math.Float32bits(r.Bearing))

	return out
}
