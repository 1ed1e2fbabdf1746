package mp4

import (
	"github.com/icza/bitio"
)

/*************************** ftyp ****************************/

// Ftyp is ISOBMFF ftyp box type.
type Ftyp struct {
	MajorBrand       [4]byte
	MinorVersion     uint32
	CompatibleBrands [][4]byte
}

// Type returns the BoxType.
func (*Ftyp) Type() BoxType { return TypeFtyp }

// Size returns the marshaled size in bytes.
func (b *Ftyp) Size() int {
	return 8 + len(b.CompatibleBrands)*4
}

// Marshal box to writer.
func (b *Ftyp) Marshal(w *bitio.Writer) error {
	w.TryWrite(b.MajorBrand[:])
	w.TryWriteBits(uint64(b.MinorVersion), 32)
	for _, brand := range b.CompatibleBrands {
		w.TryWrite(brand[:])
	}
	return w.TryError
}

/*************************** moov ****************************/

// Moov is ISOBMFF moov box type.
type Moov struct{}

// Type returns the BoxType.
func (*Moov) Type() BoxType { return TypeMoov }

// Size returns the marshaled size in bytes.
func (*Moov) Size() int { return 0 }

// Marshal is never called.
func (*Moov) Marshal(w *bitio.Writer) error { return nil }

/*************************** mdat ****************************/

// Mdat is ISOBMFF mdat box type.
type Mdat struct {
	Data []byte
}

// Type returns the BoxType.
func (*Mdat) Type() BoxType { return TypeMdat }

// Size returns the marshaled size in bytes.
func (b *Mdat) Size() int { return len(b.Data) }

// Marshal box to writer.
func (b *Mdat) Marshal(w *bitio.Writer) error {
	w.TryWrite(b.Data)
	return w.TryError
}

/*************************** free ****************************/

// Free is ISOBMFF free box type.
type Free struct {
	Data []byte
}

// Type returns the BoxType.
func (*Free) Type() BoxType { return TypeFree }

// Size returns the marshaled size in bytes.
func (b *Free) Size() int { return len(b.Data) }

// Marshal box to writer.
func (b *Free) Marshal(w *bitio.Writer) error {
	w.TryWrite(b.Data)
	return w.TryError
}

/*************************** gps ****************************/

// Gps is the Novatek GPS index, a moov child that lists where
// the GPS records are stored in the file.
//
//	versionAndDate uint64
//	blocks []{
//	  offset uint32
//	  size   uint32
//	}
type Gps struct {
	VersionAndDate uint64
	Blocks         []RawBlock
}

// RawBlock location of a single GPS record in the file.
type RawBlock struct {
	Offset uint64
	Size   uint32
}

const (
	gpsVersionSize = 8
	gpsEntrySize   = 8
)

// Type returns the BoxType.
func (*Gps) Type() BoxType { return TypeGps }

// Size returns the marshaled size in bytes.
func (b *Gps) Size() int {
	return gpsVersionSize + len(b.Blocks)*gpsEntrySize
}

// Marshal box to writer.
func (b *Gps) Marshal(w *bitio.Writer) error {
	w.TryWriteBits(b.VersionAndDate, 64)
	for _, block := range b.Blocks {
		w.TryWriteBits(block.Offset, 32)
		w.TryWriteBits(uint64(block.Size), 32)
	}
	return w.TryError
}
