package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// chunkSize is the granularity Buffer grows its backing array by. Growth
// always rounds up to a multiple of chunkSize so repeated small writes
// don't reallocate on every call.
const chunkSize = 4096

// Buffer is a growable byte area with an independent read/write cursor,
// following spec §6: position, size, reserved, chunk-sized growth.
//
//   - position is the cursor; reads and writes both advance it.
//   - size is the high-water mark of bytes written (never shrinks on its
//     own; only SeekResize can lower it).
//   - reserved is the capacity of the backing array.
//
// A zero-value Buffer is ready to use.
type Buffer struct {
	data     []byte
	position int
	size     int
}

// NewBuffer returns an empty Buffer with at least capacity bytes reserved.
func NewBuffer(capacity int) *Buffer {
	b := &Buffer{}
	if capacity > 0 {
		b.data = make([]byte, 0, roundUp(capacity))
	}
	return b
}

// NewBufferFromBytes wraps an existing byte slice for reading: position
// starts at 0, size equals len(data) and reserved equals cap(data).
func NewBufferFromBytes(data []byte) *Buffer {
	return &Buffer{data: data, size: len(data)}
}

func roundUp(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + chunkSize - 1) / chunkSize * chunkSize
}

// Position returns the current cursor.
func (b *Buffer) Position() int { return b.position }

// Size returns the high-water mark of bytes written.
func (b *Buffer) Size() int { return b.size }

// Reserved returns the capacity of the backing array.
func (b *Buffer) Reserved() int { return cap(b.data) }

// Bytes returns the written region, data[0:Size()]. The returned slice
// aliases the Buffer's backing array; callers must not retain it across a
// subsequent write.
func (b *Buffer) Bytes() []byte { return b.data[:b.size] }

// ReserveForWrite grows the backing array, if necessary, so that
// Reserved() >= Position()+n. Position and Size are left unchanged.
func (b *Buffer) ReserveForWrite(n int) {
	need := b.position + n
	if need <= cap(b.data) {
		return
	}
	grown := make([]byte, b.size, roundUp(need))
	copy(grown, b.data[:b.size])
	b.data = grown
}

// Seek moves the cursor to p. It fails iff p > Size().
func (b *Buffer) Seek(p int) error {
	if p < 0 || p > b.size {
		return fmt.Errorf("wire: Seek(%d): out of range [0,%d]", p, b.size)
	}
	b.position = p
	return nil
}

// SeekResize moves the cursor to p and sets Size to p as well. It fails
// iff p > Reserved().
func (b *Buffer) SeekResize(p int) error {
	if p < 0 || p > cap(b.data) {
		return fmt.Errorf("wire: SeekResize(%d): out of range [0,%d]", p, cap(b.data))
	}
	b.position = p
	b.size = p
	if p > len(b.data) {
		b.data = b.data[:p]
	}
	return nil
}

// CheckForRead reports whether n bytes can be read from the current
// position without passing Size(); it fails iff Position()+n > Size().
func (b *Buffer) CheckForRead(n int) error {
	if b.position+n > b.size {
		return fmt.Errorf("wire: CheckForRead(%d): only %d bytes available", n, b.size-b.position)
	}
	return nil
}

// Write appends p at the current position, growing the buffer as needed,
// and advances the cursor by len(p). Size grows if the write passes the
// previous high-water mark.
func (b *Buffer) Write(p []byte) (int, error) {
	b.ReserveForWrite(len(p))
	if len(b.data) < b.position+len(p) {
		b.data = b.data[:b.position+len(p)]
	}
	copy(b.data[b.position:], p)
	b.position += len(p)
	if b.position > b.size {
		b.size = b.position
	}
	return len(p), nil
}

// Read copies len(p) bytes from the current position into p and advances
// the cursor. It fails if fewer than len(p) bytes remain before Size().
func (b *Buffer) Read(p []byte) (int, error) {
	if err := b.CheckForRead(len(p)); err != nil {
		return 0, err
	}
	copy(p, b.data[b.position:b.position+len(p)])
	b.position += len(p)
	return len(p), nil
}

// Primitive encodings are fixed-width little-endian (spec §6): the core
// doesn't care which endianness as long as both ends of a channel agree,
// so we pick one and hold to it throughout.

func (b *Buffer) WriteUint8(v uint8) error  { _, err := b.Write([]byte{v}); return err }
func (b *Buffer) WriteInt8(v int8) error    { return b.WriteUint8(uint8(v)) }
func (b *Buffer) WriteBool(v bool) error {
	if v {
		return b.WriteUint8(1)
	}
	return b.WriteUint8(0)
}

func (b *Buffer) WriteUint16(v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := b.Write(buf[:])
	return err
}

func (b *Buffer) WriteUint32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := b.Write(buf[:])
	return err
}

func (b *Buffer) WriteUint64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := b.Write(buf[:])
	return err
}

func (b *Buffer) WriteInt16(v int16) error { return b.WriteUint16(uint16(v)) }
func (b *Buffer) WriteInt32(v int32) error { return b.WriteUint32(uint32(v)) }
func (b *Buffer) WriteInt64(v int64) error { return b.WriteUint64(uint64(v)) }

func (b *Buffer) WriteFloat32(v float32) error { return b.WriteUint32(math.Float32bits(v)) }
func (b *Buffer) WriteFloat64(v float64) error { return b.WriteUint64(math.Float64bits(v)) }

// WriteString writes a 32-bit length-prefixed, UTF-8-encoded string.
func (b *Buffer) WriteString(s string) error {
	if err := b.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	_, err := b.Write([]byte(s))
	return err
}

func (b *Buffer) ReadUint8() (uint8, error) {
	var buf [1]byte
	if _, err := b.Read(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (b *Buffer) ReadInt8() (int8, error) {
	v, err := b.ReadUint8()
	return int8(v), err
}

func (b *Buffer) ReadBool() (bool, error) {
	v, err := b.ReadUint8()
	return v != 0, err
}

func (b *Buffer) ReadUint16() (uint16, error) {
	var buf [2]byte
	if _, err := b.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (b *Buffer) ReadUint32() (uint32, error) {
	var buf [4]byte
	if _, err := b.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (b *Buffer) ReadUint64() (uint64, error) {
	var buf [8]byte
	if _, err := b.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (b *Buffer) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}

func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

func (b *Buffer) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}

func (b *Buffer) ReadFloat32() (float32, error) {
	v, err := b.ReadUint32()
	return math.Float32frombits(v), err
}

func (b *Buffer) ReadFloat64() (float64, error) {
	v, err := b.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadString reads a 32-bit length-prefixed, UTF-8-encoded string.
func (b *Buffer) ReadString() (string, error) {
	n, err := b.ReadUint32()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := b.Read(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
