package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte("status payload bytes")

	framed, err := Frame(payload[:6], payload[6:])
	require.NoError(t, err)

	length, n, err := DecodeVarInt(framed, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(len(payload)), length)
	assert.Equal(t, payload, framed[n:])
}

func TestFrameEmptyPayload(t *testing.T) {
	framed, err := Frame()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, framed)
}

// buildStatusResponse frames a status response packet the way a server
// would: [len][id=0][jsonLen][json].
func buildStatusResponse(t *testing.T, packetID int32, body string) []byte {
	t.Helper()
	framed, err := Frame(EncodeVarInt(packetID), AppendString(nil, body))
	require.NoError(t, err)
	return framed
}

func TestParseStatusFrame(t *testing.T) {
	body := `{"description":"A Minecraft Server"}`
	framed := buildStatusResponse(t, statusResponsePacketID, body)

	payload, rest, err := parseStatusFrame(framed)
	require.NoError(t, err)
	assert.Equal(t, body, string(payload))
	assert.Empty(t, rest)
}

func TestParseStatusFrameIncremental(t *testing.T) {
	body := `{"players":{"online":3,"max":20}}`
	framed := buildStatusResponse(t, statusResponsePacketID, body)

	// Every split point of the frame must either parse fully or report a
	// recoverable short buffer, never a terminal error.
	for cut := 0; cut < len(framed); cut++ {
		_, rest, err := parseStatusFrame(framed[:cut])
		require.ErrorIs(t, err, ErrShortBuffer, "cut at %d", cut)
		assert.Equal(t, framed[:cut], rest, "cut at %d", cut)
	}

	payload, rest, err := parseStatusFrame(framed)
	require.NoError(t, err)
	assert.Equal(t, body, string(payload))
	assert.Empty(t, rest)
}

func TestParseStatusFrameKeepsRemainder(t *testing.T) {
	first := buildStatusResponse(t, statusResponsePacketID, `{"a":1}`)
	second := buildStatusResponse(t, statusResponsePacketID, `{"b":2}`)
	combined := append(append([]byte{}, first...), second...)

	payload, rest, err := parseStatusFrame(combined)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(payload))

	payload, rest, err = parseStatusFrame(rest)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(payload))
	assert.Empty(t, rest)
}

func TestParseStatusFrameWrongPacketID(t *testing.T) {
	framed := buildStatusResponse(t, 0x01, `{}`)

	_, _, err := parseStatusFrame(framed)
	assert.ErrorIs(t, err, ErrUnexpectedPacket)
}

func TestParseStatusFrameCorruptLength(t *testing.T) {
	buf := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}
	_, _, err := parseStatusFrame(buf)
	assert.ErrorIs(t, err, ErrVarIntTooBig)
}
