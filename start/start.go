// SPDX-License-Identifier: GPL-2.0-or-later

// Package main extracts the GPS track from Novatek dashcam videos.
//
//	dashgps -o track.gpx './DCIM/*.MP4'
package main

import (
	"os"

	"dashgps"
)

// EX_SOFTWARE from sysexits.h.
const exitSoftware = 70

func main() {
	// Run logs the error.
	if err := dashgps.Run(); err != nil {
		os.Exit(exitSoftware)
	}
}
