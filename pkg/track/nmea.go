// SPDX-License-Identifier: GPL-2.0-or-later

package track

import (
	"fmt"
	"io"
	"math"
	"strings"

	"dashgps/pkg/novatek"
)

// WriteNMEA writes one RMC sentence per waypoint.
func WriteNMEA(w io.Writer, waypoints []Waypoint) error {
	for _, wp := range waypoints {
		if _, err := io.WriteString(w, RMC(wp)+"\r\n"); err != nil {
			return err
		}
	}
	return nil
}

// RMC formats waypoint as a $GPRMC sentence.
func RMC(wp Waypoint) string {
	t := wp.Time
	lat, latHemi := nmeaCoordinate(wp.Latitude, 2, "N", "S")
	lon, lonHemi := nmeaCoordinate(wp.Longitude, 3, "E", "W")

	fields := []string{
		"GPRMC",
		fmt.Sprintf("%02d%02d%02d.00", t.Hour(), t.Minute(), t.Second()),
		"A",
		lat, latHemi,
		lon, lonHemi,
		fmt.Sprintf("%.2f", wp.SpeedMPS/novatek.KnotToMPS),
		fmt.Sprintf("%.2f", wp.BearingDeg),
		fmt.Sprintf("%02d%02d%02d", t.Day(), int(t.Month()), t.Year()%100),
		"", "",
		"A",
	}
	payload := strings.Join(fields, ",")
	return fmt.Sprintf("$%s*%02X", payload, checksum(payload))
}

// nmeaCoordinate formats decimal degrees as dddmm.mmmm.
func nmeaCoordinate(deg float64, degDigits int, pos, neg string) (string, string) {
	hemi := pos
	if deg < 0 {
		hemi = neg
		deg = -deg
	}
	whole := math.Floor(deg)
	minutes := (deg - whole) * 60
	// Rounding may carry into the next degree.
	if math.Round(minutes*10000) >= 600000 {
		whole++
		minutes = 0
	}
	return fmt.Sprintf("%0*d%07.4f", degDigits, int(whole), minutes), hemi
}

func checksum(payload string) byte {
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	return sum
}
