package protocol

import (
	"errors"
	"fmt"
)

// Packet IDs used by the status exchange. Handshake, status request and
// status response all share ID zero in their respective connection states.
const (
	handshakePacketID      = 0x00
	statusRequestPacketID  = 0x00
	statusResponsePacketID = 0x00

	statusNextState = 1
)

// Frame prefixes the concatenated chunks with a varint of their total
// length. It is a pure function; the only failure mode is a payload too
// large for a five byte varint.
func Frame(chunks ...[]byte) ([]byte, error) {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}

	prefix, err := EncodeLength(total)
	if err != nil {
		return nil, fmt.Errorf("frame %d bytes: %w", total, err)
	}

	out := make([]byte, 0, len(prefix)+total)
	out = append(out, prefix...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out, nil
}

// parseStatusFrame attempts to decode one complete status response from the
// front of buf: [varint length][varint packet id][varint json length][json].
//
// On success it returns the JSON payload and the unconsumed remainder of
// buf, so pipelined data survives for a subsequent pass. ErrShortBuffer
// means the frame is not complete yet and the caller should append more
// bytes and retry; any other error is terminal.
func parseStatusFrame(buf []byte) (payload, rest []byte, err error) {
	length, lengthN, err := DecodeVarInt(buf, 0)
	if err != nil {
		return nil, buf, err
	}
	if length < 0 {
		return nil, buf, fmt.Errorf("%w: negative packet length %d", ErrMalformedResponse, length)
	}
	if lengthN+int(length) > len(buf) {
		return nil, buf, ErrShortBuffer
	}

	id, idN, err := DecodeVarInt(buf, lengthN)
	if err != nil {
		return nil, buf, fmt.Errorf("%w: packet id: %v", ErrMalformedResponse, err)
	}
	if id != statusResponsePacketID {
		return nil, buf, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrUnexpectedPacket, id, statusResponsePacketID)
	}

	jsonLen, jsonN, err := DecodeVarInt(buf, lengthN+idN)
	if err != nil {
		if errors.Is(err, ErrShortBuffer) {
			return nil, buf, err
		}
		return nil, buf, fmt.Errorf("%w: json length: %v", ErrMalformedResponse, err)
	}
	if jsonLen < 0 {
		return nil, buf, fmt.Errorf("%w: negative json length %d", ErrMalformedResponse, jsonLen)
	}

	start := lengthN + idN + jsonN
	end := start + int(jsonLen)
	if end > len(buf) {
		return nil, buf, ErrShortBuffer
	}

	return buf[start:end], buf[end:], nil
}
