package protocol

import (
	"encoding/binary"
	"math"
)

// maxVarIntLen is the longest well-formed varint. A fifth byte with the
// continuation bit set is malformed.
const maxVarIntLen = 5

// EncodeVarInt encodes v in the Minecraft varint layout: seven data bits per
// byte, continuation flag in the high bit, least significant group first.
// Negative values are encoded as their unsigned two's-complement bit pattern
// and therefore always occupy five bytes.
func EncodeVarInt(v int32) []byte {
	u := uint32(v)
	if u < 0x80 {
		return []byte{byte(u)}
	}

	buf := make([]byte, 0, maxVarIntLen)
	for u >= 0x80 {
		buf = append(buf, byte(u)|0x80)
		u >>= 7
	}
	return append(buf, byte(u))
}

// EncodeLength encodes a payload length as a varint. It fails with
// ErrValueTooLarge when the value cannot be represented in five bytes.
func EncodeLength(n int) ([]byte, error) {
	if n < 0 || int64(n) > math.MaxUint32 {
		return nil, ErrValueTooLarge
	}
	return EncodeVarInt(int32(uint32(n))), nil
}

// DecodeVarInt reads a varint from buf starting at offset. It returns the
// decoded value and the number of bytes consumed.
//
// ErrShortBuffer means the varint is incomplete and the caller should wait
// for more bytes; ErrVarIntTooBig means the encoding itself is corrupt.
func DecodeVarInt(buf []byte, offset int) (int32, int, error) {
	if offset < 0 || offset >= len(buf) {
		return 0, 0, ErrShortBuffer
	}

	// Fast path for the overwhelmingly common single-byte case.
	if b := buf[offset]; b < 0x80 {
		return int32(b), 1, nil
	}

	var value uint32
	for i := 0; i < maxVarIntLen; i++ {
		if offset+i >= len(buf) {
			return 0, 0, ErrShortBuffer
		}
		b := buf[offset+i]
		value |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return int32(value), i + 1, nil
		}
	}
	return 0, 0, ErrVarIntTooBig
}

// AppendUint16 appends v as a big-endian unsigned short, the wire form of
// the handshake port field.
func AppendUint16(dst []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(dst, v)
}

// AppendString appends s as a varint length prefix followed by its UTF-8
// bytes, the wire form of protocol strings.
func AppendString(dst []byte, s string) []byte {
	dst = append(dst, EncodeVarInt(int32(len(s)))...)
	return append(dst, s...)
}
