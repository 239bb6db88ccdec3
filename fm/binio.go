package fm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// File format limits. Exceeding any of them fails both save and load.
const (
	maxInstruments    = 256
	maxPatterns       = 256
	maxPatternRows    = 256
	maxVectorElements = 4096
	maxStringLength   = 256
)

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// binWriter writes little-endian values. The first error sticks and
// turns later writes into no-ops.
type binWriter struct {
	w   io.Writer
	err error
	buf [8]byte
}

func (b *binWriter) write(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
}

func (b *binWriter) u8(v uint8) {
	b.buf[0] = v
	b.write(b.buf[:1])
}

func (b *binWriter) i8(v int8) {
	b.u8(uint8(v))
}

func (b *binWriter) u16(v uint16) {
	binary.LittleEndian.PutUint16(b.buf[:2], v)
	b.write(b.buf[:2])
}

func (b *binWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(b.buf[:4], v)
	b.write(b.buf[:4])
}

func (b *binWriter) f32(v float32) {
	b.u32(math.Float32bits(v))
}

func (b *binWriter) zeros(n int) {
	b.write(make([]byte, n))
}

func (b *binWriter) magic(m string) {
	b.write([]byte(m))
}

// count writes a u32 element count after checking it against limit.
func (b *binWriter) count(n, limit int, what string) {
	if b.err != nil {
		return
	}
	if n > limit {
		b.err = fmt.Errorf("%w: %d %s (max %d)", ErrTooLarge, n, what, limit)
		return
	}
	b.u32(uint32(n))
}

// str writes a u32 length followed by the raw bytes.
func (b *binWriter) str(s string) {
	b.count(len(s), maxStringLength, "string bytes")
	b.write([]byte(s))
}

// fail records err unless an earlier error is already held.
func (b *binWriter) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// binReader mirrors binWriter for decoding.
type binReader struct {
	r   io.Reader
	err error
	buf [8]byte
}

func (b *binReader) read(p []byte) {
	if b.err != nil {
		return
	}
	if _, err := io.ReadFull(b.r, p); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		b.err = err
	}
}

func (b *binReader) u8() uint8 {
	b.read(b.buf[:1])
	if b.err != nil {
		return 0
	}
	return b.buf[0]
}

func (b *binReader) i8() int8 {
	return int8(b.u8())
}

func (b *binReader) u16() uint16 {
	b.read(b.buf[:2])
	if b.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b.buf[:2])
}

func (b *binReader) u32() uint32 {
	b.read(b.buf[:4])
	if b.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b.buf[:4])
}

func (b *binReader) f32() float32 {
	return math.Float32frombits(b.u32())
}

func (b *binReader) skip(n int) {
	if b.err != nil {
		return
	}
	if _, err := io.CopyN(io.Discard, b.r, int64(n)); err != nil {
		b.err = io.ErrUnexpectedEOF
	}
}

// magic reads len(m) bytes and fails with ErrBadMagic on mismatch.
func (b *binReader) magic(m string) {
	p := make([]byte, len(m))
	b.read(p)
	if b.err == nil && string(p) != m {
		b.err = fmt.Errorf("%w: %q", ErrBadMagic, p)
	}
}

// count reads a u32 element count and checks it against limit.
func (b *binReader) count(limit int, what string) int {
	n := b.u32()
	if b.err != nil {
		return 0
	}
	if n > uint32(limit) {
		b.err = fmt.Errorf("%w: %d %s (max %d)", ErrTooLarge, n, what, limit)
		return 0
	}
	return int(n)
}

func (b *binReader) str() string {
	n := b.count(maxStringLength, "string bytes")
	if b.err != nil || n == 0 {
		return ""
	}
	p := make([]byte, n)
	b.read(p)
	if b.err != nil {
		return ""
	}
	return string(p)
}

func (b *binReader) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// expectEOF fails with ErrTrailingData if any byte remains.
func (b *binReader) expectEOF() {
	if b.err != nil {
		return
	}
	var one [1]byte
	n, err := b.r.Read(one[:])
	for n == 0 && err == nil {
		n, err = b.r.Read(one[:])
	}
	if n > 0 {
		b.err = ErrTrailingData
		return
	}
	if !errors.Is(err, io.EOF) {
		b.err = err
	}
}
