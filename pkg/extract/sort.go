// SPDX-License-Identifier: GPL-2.0-or-later

package extract

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// SortMode how records are ordered after extraction.
type SortMode uint8

// Sorting modes.
const (
	// SortGPSDate sorts by the recorded timestamp.
	SortGPSDate SortMode = iota
	// SortFile sorts by source file name.
	SortFile
	// SortNone keeps file order, then block order.
	SortNone
)

// ErrUnsupportedSortMode unknown sort mode name.
var ErrUnsupportedSortMode = errors.New("unsupported sorting mode")

// ParseSortMode parses "file", "gps" or "none", case insensitive.
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(s) {
	case "file":
		return SortFile, nil
	case "gps":
		return SortGPSDate, nil
	case "none":
		return SortNone, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedSortMode, s)
}

func (m SortMode) String() string {
	switch m {
	case SortFile:
		return "file"
	case SortGPSDate:
		return "gps"
	case SortNone:
		return "none"
	}
	return fmt.Sprintf("SortMode(%d)", uint8(m))
}

// Sort orders records in place. Both sorting modes are stable,
// records that compare equal keep their relative order.
func Sort(records []Record, mode SortMode) {
	switch mode {
	case SortFile:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].SourceFile < records[j].SourceFile
		})
	case SortGPSDate:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Time.Before(records[j].Time)
		})
	case SortNone:
	}
}
