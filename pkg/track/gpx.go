// SPDX-License-Identifier: GPL-2.0-or-later

package track

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"
)

// GPX 1.0 is used since 1.1 dropped the speed element.
const (
	gpxVersion   = "1.0"
	gpxNamespace = "http://www.topografix.com/GPX/1/0"
)

type gpxDoc struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	XMLNS   string   `xml:"xmlns,attr"`
	Track   gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Segment gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat   string `xml:"lat,attr"`
	Lon   string `xml:"lon,attr"`
	Time  string `xml:"time"`
	Speed string `xml:"speed"`
	Src   string `xml:"src"`
	Fix   string `xml:"fix"`
	Sat   int    `xml:"sat"`
}

func formatDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteGPX writes a GPX document with a single track segment.
func WriteGPX(w io.Writer, waypoints []Waypoint) error {
	doc := gpxDoc{
		Version: gpxVersion,
		Creator: Creator,
		XMLNS:   gpxNamespace,
	}
	doc.Track.Segment.Points = make([]gpxPoint, 0, len(waypoints))
	for _, wp := range waypoints {
		doc.Track.Segment.Points = append(doc.Track.Segment.Points, gpxPoint{
			Lat:   formatDecimal(wp.Latitude),
			Lon:   formatDecimal(wp.Longitude),
			Time:  wp.Time.Format(time.RFC3339),
			Speed: formatDecimal(wp.SpeedMPS),
			Src:   wp.Source,
			Fix:   wp.Fix,
			Sat:   wp.Satellites,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode gpx: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
