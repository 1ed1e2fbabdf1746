package mp4

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/icza/bitio"
)

const (
	headerSize      = 8
	largeHeaderSize = 16

	// Sanity limit, moov is read into memory.
	maxMoovSize = 64 << 20
)

// Errors.
var (
	ErrInvalidHeader = errors.New("invalid mp4 header")
	ErrNoGPSBox      = errors.New("no gps box")
	ErrInvalidGPSBox = errors.New("invalid gps box")
)

// BoxInfo position of a box in a file.
type BoxInfo struct {
	Offset     uint64
	Size       uint64 // Including header.
	HeaderSize uint64
	Type       BoxType
}

// readBoxInfo reads the box header at the current position.
// fileEnd is used when the box extends to the end of the file.
func readBoxInfo(r io.ReadSeeker, offset uint64, fileEnd uint64) (*BoxInfo, error) {
	var buf [largeHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:headerSize]); err != nil {
		return nil, err
	}

	info := &BoxInfo{
		Offset:     offset,
		Size:       uint64(binary.BigEndian.Uint32(buf[0:4])),
		HeaderSize: headerSize,
	}
	copy(info.Type[:], buf[4:8])

	switch info.Size {
	case 0:
		info.Size = fileEnd - offset
	case 1:
		if _, err := io.ReadFull(r, buf[headerSize:largeHeaderSize]); err != nil {
			return nil, err
		}
		info.Size = binary.BigEndian.Uint64(buf[headerSize:largeHeaderSize])
		info.HeaderSize = largeHeaderSize
	}

	if info.Size < info.HeaderSize {
		return nil, fmt.Errorf("%w: box '%v' at %d: size %d",
			ErrInvalidHeader, info.Type, offset, info.Size)
	}
	if info.Size > fileEnd-offset {
		return nil, fmt.Errorf("%w: box '%v' at %d: size %d exceeds file size %d",
			ErrInvalidHeader, info.Type, offset, info.Size, fileEnd)
	}
	return info, nil
}

// ReadBoxInfos returns the top level boxes of a file of the given size.
func ReadBoxInfos(r io.ReadSeeker, size uint64) ([]BoxInfo, error) {
	var infos []BoxInfo
	var offset uint64
	for offset < size {
		if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
			return nil, err
		}
		if size-offset < headerSize {
			return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidHeader, size-offset)
		}
		info, err := readBoxInfo(r, offset, size)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
			}
			return nil, err
		}
		infos = append(infos, *info)
		offset += info.Size
	}
	return infos, nil
}

// ReadGPSIndex finds and decodes the gps box inside moov.
// Returns ErrNoGPSBox if the file has a moov box without it.
func ReadGPSIndex(r io.ReadSeeker, size uint64) (*Gps, error) {
	infos, err := ReadBoxInfos(r, size)
	if err != nil {
		return nil, err
	}

	var moov *BoxInfo
	for i, info := range infos {
		if info.Type == TypeMoov {
			moov = &infos[i]
			break
		}
	}
	if moov == nil {
		return nil, fmt.Errorf("%w: moov box not found", ErrInvalidHeader)
	}

	payloadSize := moov.Size - moov.HeaderSize
	if payloadSize > maxMoovSize {
		return nil, fmt.Errorf("%w: moov size %d", ErrInvalidHeader, moov.Size)
	}
	if _, err := r.Seek(int64(moov.Offset+moov.HeaderSize), io.SeekStart); err != nil {
		return nil, err
	}
	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: read moov: %v", ErrInvalidHeader, err)
	}

	gps, err := findGPSBox(payload)
	if err != nil {
		return nil, err
	}
	return gps, nil
}

func findGPSBox(moov []byte) (*Gps, error) {
	children := bytes.NewReader(moov)
	infos, err := ReadBoxInfos(children, uint64(len(moov)))
	if err != nil {
		return nil, fmt.Errorf("moov: %w", err)
	}
	for _, info := range infos {
		if info.Type != TypeGps {
			continue
		}
		start := info.Offset + info.HeaderSize
		end := info.Offset + info.Size
		return UnmarshalGps(moov[start:end])
	}
	return nil, ErrNoGPSBox
}

// UnmarshalGps decodes a gps box payload, the header excluded.
func UnmarshalGps(payload []byte) (*Gps, error) {
	if len(payload) < gpsVersionSize {
		return nil, fmt.Errorf("%w: payload size %d", ErrInvalidGPSBox, len(payload))
	}

	r := bitio.NewReader(bytes.NewReader(payload))

	var gps Gps
	gps.VersionAndDate = r.TryReadBits(64)

	count := (len(payload) - gpsVersionSize) / gpsEntrySize
	gps.Blocks = make([]RawBlock, 0, count)
	for i := 0; i < count; i++ {
		offset := r.TryReadBits(32)
		size := r.TryReadBits(32)
		gps.Blocks = append(gps.Blocks, RawBlock{
			Offset: offset,
			Size:   uint32(size),
		})
	}
	if r.TryError != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGPSBox, r.TryError)
	}
	return &gps, nil
}

// Summary short description used in logs.
func (b *Gps) Summary() string {
	return fmt.Sprintf("version_and_date=0x%X, blocks=%d", b.VersionAndDate, len(b.Blocks))
}
