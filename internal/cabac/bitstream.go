package cabac

import (
	"github.com/pkg/errors"
)

const maxSpanSize = 256 * 1024 * 1024

// BitStream is the byte cursor that feeds the arithmetic engine. The engine
// pulls one byte at start and big-endian 16-bit words afterwards; raw PCM
// samples are taken as whole byte runs between two arithmetic coded parts.
type BitStream struct {
	buf    []byte
	byteIx uint32
}

// NewBitStream constructs a stream over data. Inputs larger than 256 MB are
// ignored and result in an empty buffer.
func NewBitStream(data []byte) *BitStream {
	if len(data) > maxSpanSize {
		data = nil
	}
	return &BitStream{buf: data}
}

// ReadByte returns the next byte.
func (bs *BitStream) ReadByte() (byte, error) {
	if !bs.InBounds() {
		return 0, errors.Wrapf(ErrOutOfData, "reading byte at offset %d of %d", bs.byteIx, len(bs.buf))
	}
	value := bs.buf[bs.byteIx]
	bs.byteIx++
	return value, nil
}

// ReadWord reads a big-endian 16-bit value. It never reads a partial word.
func (bs *BitStream) ReadWord() (uint16, error) {
	if uint64(bs.byteIx)+2 > uint64(len(bs.buf)) {
		return 0, errors.Wrapf(ErrOutOfData, "reading word at offset %d of %d", bs.byteIx, len(bs.buf))
	}
	v := uint16(bs.buf[bs.byteIx])<<8 | uint16(bs.buf[bs.byteIx+1])
	bs.byteIx += 2
	return v, nil
}

// ReadBytes returns the next n bytes as a sub-slice of the underlying buffer.
func (bs *BitStream) ReadBytes(n int) ([]byte, error) {
	if n < 0 || uint64(bs.byteIx)+uint64(n) > uint64(len(bs.buf)) {
		return nil, errors.Wrapf(ErrOutOfData, "reading %d bytes at offset %d", n, bs.byteIx)
	}
	out := bs.buf[bs.byteIx : bs.byteIx+uint32(n)]
	bs.byteIx += uint32(n)
	return out, nil
}

// Offset returns the current byte index.
func (bs *BitStream) Offset() uint32 { return bs.byteIx }

// SetOffset moves the stream to offset, clamped to the buffer size.
func (bs *BitStream) SetOffset(offset uint32) {
	if offset > uint32(len(bs.buf)) {
		offset = uint32(len(bs.buf))
	}
	bs.byteIx = offset
}

// Len returns the size of the underlying buffer in bytes.
func (bs *BitStream) Len() int { return len(bs.buf) }

// InBounds reports whether the current byte index is within the buffer.
func (bs *BitStream) InBounds() bool {
	return bs.byteIx < uint32(len(bs.buf))
}
