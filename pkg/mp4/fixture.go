package mp4

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// GPSFile describes a minimal Novatek style file.
type GPSFile struct {
	// Records are stored back to back in mdat, in order.
	Records [][]byte

	// Extra index entries appended after the records.
	ExtraBlocks []RawBlock

	// Omit the gps box from moov.
	NoGPSBox bool
}

// Marshal returns the file as ftyp, mdat and moov.
func (f GPSFile) Marshal() ([]byte, error) {
	ftyp := &Ftyp{
		MajorBrand:       [4]byte{'a', 'v', 'c', '1'},
		CompatibleBrands: [][4]byte{{'i', 's', 'o', 'm'}},
	}

	var data []byte
	var blocks []RawBlock
	offset := uint64(headerSize + ftyp.Size() + headerSize)
	for _, rec := range f.Records {
		blocks = append(blocks, RawBlock{
			Offset: offset + uint64(len(data)),
			Size:   uint32(len(rec)),
		})
		data = append(data, rec...)
	}
	blocks = append(blocks, f.ExtraBlocks...)

	moov := Boxes{Box: &Moov{}}
	if !f.NoGPSBox {
		moov.Children = []Boxes{{Box: &Gps{Blocks: blocks}}}
	}

	buf := &bytes.Buffer{}
	w := bitio.NewWriter(buf)
	if _, err := WriteSingleBox(w, ftyp); err != nil {
		return nil, fmt.Errorf("ftyp: %w", err)
	}
	if _, err := WriteSingleBox(w, &Mdat{Data: data}); err != nil {
		return nil, fmt.Errorf("mdat: %w", err)
	}
	if err := moov.Marshal(w); err != nil {
		return nil, fmt.Errorf("moov: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
