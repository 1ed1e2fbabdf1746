// SPDX-License-Identifier: GPL-2.0-or-later

package novatek

import (
	"errors"
	"fmt"
)

// Record validation errors.
var (
	ErrMissingBytes      = errors.New("buffer too small")
	ErrInvalidBoxSize    = errors.New("invalid box size")
	ErrInvalidBoxType    = errors.New("invalid box type")
	ErrInvalidMagicWord  = errors.New("invalid magic word")
	ErrNoSatLock         = errors.New("no satellite lock")
	ErrInvalidHemisphere = errors.New("invalid latitude (N/S) or longitude (E/W) hemisphere")
)

// ErrorKind identifies why a record was rejected.
type ErrorKind uint8

// Error kinds, in validation order.
const (
	KindMissingBytes ErrorKind = iota + 1
	KindInvalidBoxSize
	KindInvalidBoxType
	KindInvalidMagicWord
	KindNoSatLock
	KindInvalidHemisphere
)

var kindErrors = map[ErrorKind]error{
	KindMissingBytes:      ErrMissingBytes,
	KindInvalidBoxSize:    ErrInvalidBoxSize,
	KindInvalidBoxType:    ErrInvalidBoxType,
	KindInvalidMagicWord:  ErrInvalidMagicWord,
	KindNoSatLock:         ErrNoSatLock,
	KindInvalidHemisphere: ErrInvalidHemisphere,
}

// RecordError is returned when a buffer is not a valid GPS record.
// Match the kind with errors.Is against the Err* variables.
type RecordError struct {
	Kind ErrorKind

	// Set for KindInvalidBoxSize.
	BufferLen   int
	DeclaredLen int

	// Set for KindInvalidBoxType and KindInvalidMagicWord.
	Actual   string
	Expected string
}

func (e *RecordError) Error() string {
	switch e.Kind {
	case KindInvalidBoxSize:
		return fmt.Sprintf("%v: buffer length %d, box size %d",
			ErrInvalidBoxSize, e.BufferLen, e.DeclaredLen)
	case KindInvalidBoxType, KindInvalidMagicWord:
		return fmt.Sprintf("%v '%s', expected '%s'",
			kindErrors[e.Kind], e.Actual, e.Expected)
	}
	if err, exists := kindErrors[e.Kind]; exists {
		return err.Error()
	}
	return fmt.Sprintf("unknown record error kind: %d", e.Kind)
}

// Unwrap returns the sentinel error for the kind.
func (e *RecordError) Unwrap() error {
	return kindErrors[e.Kind]
}
