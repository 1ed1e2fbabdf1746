// SPDX-License-Identifier: GPL-2.0-or-later

// Package track converts extracted records to waypoints
// and writes them as GPX or NMEA.
package track

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"dashgps/pkg/extract"
)

// Fix and satellite values written for every waypoint.
// The records do not carry them.
const (
	FixType    = "2d"
	Satellites = 3
	Creator    = "dashcam-gps-extract"
)

// Waypoint output point.
type Waypoint struct {
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lon"`
	Time       time.Time `json:"time"` // UTC.
	Source     string    `json:"src"`
	SpeedMPS   float64   `json:"speed"`
	BearingDeg float32   `json:"bearing"`
	Fix        string    `json:"fix"`
	Satellites int       `json:"sat"`
}

// NewWaypoint creates a waypoint from a record. The record time is
// read as UTC, the device time zone is unknown and no offset is applied.
func NewWaypoint(r extract.Record) Waypoint {
	t := r.Time
	return Waypoint{
		Latitude:  r.LatitudeDeg,
		Longitude: r.LongitudeDeg,
		Time: time.Date(
			t.Year(), t.Month(), t.Day(),
			t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
			time.UTC,
		),
		Source:     r.SourceFile,
		SpeedMPS:   r.SpeedMPS,
		BearingDeg: r.BearingDeg,
		Fix:        FixType,
		Satellites: Satellites,
	}
}

// NewWaypoints converts records in order.
func NewWaypoints(records []extract.Record) []Waypoint {
	waypoints := make([]Waypoint, 0, len(records))
	for _, r := range records {
		waypoints = append(waypoints, NewWaypoint(r))
	}
	return waypoints
}

// Writer writes waypoints in a document format.
type Writer func(io.Writer, []Waypoint) error

// ErrUnknownFormat unknown output format.
var ErrUnknownFormat = errors.New("unknown output format")

// NewWriter returns the writer for "gpx" or "nmea".
func NewWriter(format string) (Writer, error) {
	switch strings.ToLower(format) {
	case "gpx", "":
		return WriteGPX, nil
	case "nmea":
		return WriteNMEA, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
