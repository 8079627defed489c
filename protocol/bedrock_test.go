package protocol

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPong assembles an unconnected pong the way a server would, echoing
// the envelope layout of the ping so the MOTD length lands at offset 33.
func buildPong(motd string) []byte {
	buf := make([]byte, 0, pongMOTDOffset+len(motd))
	buf = append(buf, idUnconnectedPong)
	buf = binary.LittleEndian.AppendUint64(buf, 12345)             // timestamp
	buf = binary.LittleEndian.AppendUint64(buf, 0xDEADBEEF)        // server guid
	buf = append(buf, offlineMessageMagic[:]...)                   // magic
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(motd)))    // motd length
	return append(buf, motd...)
}

// mockBedrockServer answers every valid unconnected ping with respond's
// bytes, sent as-is.
type mockBedrockServer struct {
	t    *testing.T
	conn net.PacketConn
}

func newMockBedrockServer(t *testing.T, respond func(ping []byte) []byte) *mockBedrockServer {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &mockBedrockServer{t: t, conn: conn}
	go s.serve(respond)
	t.Cleanup(func() { _ = conn.Close() })
	return s
}

func (s *mockBedrockServer) Host() string { return "127.0.0.1" }

func (s *mockBedrockServer) Port() uint16 {
	return uint16(s.conn.LocalAddr().(*net.UDPAddr).Port)
}

func (s *mockBedrockServer) serve(respond func(ping []byte) []byte) {
	buf := make([]byte, 1500)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		if reply := respond(buf[:n]); reply != nil {
			_, _ = s.conn.WriteTo(reply, addr)
		}
	}
}

const fullMOTD = "MCPE;Dedicated Server;786;1.21.50;12;40;13253860892328930865;Bedrock level;Survival;1;19132;19133;0"

func TestBedrockStatus(t *testing.T) {
	server := newMockBedrockServer(t, func(ping []byte) []byte {
		require.Len(t, ping, unconnectedPingLen)
		require.Equal(t, byte(idUnconnectedPing), ping[0])
		require.Equal(t, offlineMessageMagic[:], ping[9:25])
		return buildPong(fullMOTD)
	})

	p := &BedrockProtocol{}
	status, err := p.Status(context.Background(), server.Host(), &Options{Port: server.Port(), Timeout: 2 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, "MCPE", status.Edition)
	assert.Equal(t, "Dedicated Server", status.Name)
	assert.Equal(t, 786, status.Version.Protocol)
	assert.Equal(t, "1.21.50", status.Version.Minecraft)
	assert.Equal(t, 12, status.Players.Online)
	assert.Equal(t, 40, status.Players.Max)
	assert.Equal(t, "Bedrock level", status.LevelName)
	assert.Equal(t, "Survival", status.GameMode)
	wireGUID := uint64(13253860892328930865)
	assert.Equal(t, int64(wireGUID), status.GUID) // unsigned form reinterpreted
	require.NotNil(t, status.IsNintendoLimited)
	assert.False(t, *status.IsNintendoLimited) // "1" means not limited
	require.NotNil(t, status.Port.V4)
	assert.Equal(t, uint16(19132), *status.Port.V4)
	require.NotNil(t, status.Port.V6)
	assert.Equal(t, uint16(19133), *status.Port.V6)
	require.NotNil(t, status.IsEditorModeEnabled)
	assert.False(t, *status.IsEditorModeEnabled)
}

func TestBedrockStatusMinimalRecord(t *testing.T) {
	server := newMockBedrockServer(t, func([]byte) []byte {
		return buildPong("MCPE;My Server;748;1.21.40;3;10;987654321;world;Creative")
	})

	p := &BedrockProtocol{}
	status, err := p.Status(context.Background(), server.Host(), &Options{Port: server.Port(), Timeout: 2 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, int64(987654321), status.GUID)
	assert.Equal(t, "Creative", status.GameMode)
	assert.Nil(t, status.IsNintendoLimited)
	assert.Nil(t, status.Port.V4)
	assert.Nil(t, status.Port.V6)
	assert.Nil(t, status.IsEditorModeEnabled)
}

func TestBedrockStatusUndersizedDatagram(t *testing.T) {
	server := newMockBedrockServer(t, func([]byte) []byte {
		return []byte{idUnconnectedPong, 0x01, 0x02}
	})

	p := &BedrockProtocol{}
	_, err := p.Status(context.Background(), server.Host(), &Options{Port: server.Port(), Timeout: 2 * time.Second})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestBedrockStatusWrongPacketID(t *testing.T) {
	server := newMockBedrockServer(t, func([]byte) []byte {
		pong := buildPong(fullMOTD)
		pong[0] = 0x1D
		return pong
	})

	p := &BedrockProtocol{}
	_, err := p.Status(context.Background(), server.Host(), &Options{Port: server.Port(), Timeout: 2 * time.Second})
	assert.ErrorIs(t, err, ErrUnexpectedPacket)
}

func TestBedrockStatusTimeout(t *testing.T) {
	server := newMockBedrockServer(t, func([]byte) []byte {
		return nil // swallow the ping
	})

	p := &BedrockProtocol{}
	_, err := p.Status(context.Background(), server.Host(), &Options{Port: server.Port(), Timeout: 100 * time.Millisecond})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestBedrockStatusMissingHost(t *testing.T) {
	p := &BedrockProtocol{}
	_, err := p.Status(context.Background(), "", &Options{})
	assert.ErrorIs(t, err, ErrMissingHost)
}

func TestBuildUnconnectedPingLayout(t *testing.T) {
	ping := buildUnconnectedPing()

	require.Len(t, ping, unconnectedPingLen)
	assert.Equal(t, byte(idUnconnectedPing), ping[0])
	assert.Equal(t, offlineMessageMagic[:], ping[9:25])

	// Two pings must differ in their client GUID.
	other := buildUnconnectedPing()
	assert.NotEqual(t, ping[25:33], other[25:33])
}

func TestParseMOTDRecord(t *testing.T) {
	t.Run("nintendo limited flag is inverted", func(t *testing.T) {
		status, err := parseMOTDRecord("MCPE;srv;786;1.21.50;0;10;1;world;Survival;0")
		require.NoError(t, err)
		require.NotNil(t, status.IsNintendoLimited)
		assert.True(t, *status.IsNintendoLimited)

		status, err = parseMOTDRecord("MCPE;srv;786;1.21.50;0;10;1;world;Survival;1")
		require.NoError(t, err)
		require.NotNil(t, status.IsNintendoLimited)
		assert.False(t, *status.IsNintendoLimited)
	})

	t.Run("editor mode flag", func(t *testing.T) {
		status, err := parseMOTDRecord(fullMOTD[:len(fullMOTD)-1] + "1")
		require.NoError(t, err)
		require.NotNil(t, status.IsEditorModeEnabled)
		assert.True(t, *status.IsEditorModeEnabled)
	})

	t.Run("five fields is the minimum", func(t *testing.T) {
		status, err := parseMOTDRecord("MCPE;srv;786;1.21.50;3")
		require.NoError(t, err)
		assert.Equal(t, 3, status.Players.Online)
		assert.Zero(t, status.Players.Max)

		_, err = parseMOTDRecord("MCPE;srv;786;1.21.50")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("corrupt numerics are malformed", func(t *testing.T) {
		_, err := parseMOTDRecord("MCPE;srv;not-a-number;1.21.50;3;10")
		assert.ErrorIs(t, err, ErrMalformedResponse)

		_, err = parseMOTDRecord("MCPE;srv;786;1.21.50;three;10")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("signed guid", func(t *testing.T) {
		status, err := parseMOTDRecord("MCPE;srv;786;1.21.50;0;10;-4611686018427387904")
		require.NoError(t, err)
		assert.Equal(t, int64(-4611686018427387904), status.GUID)
	})
}

func TestParseUnconnectedPongBounds(t *testing.T) {
	// Declared MOTD length running past the datagram end must be caught.
	pong := buildPong("MCPE;srv;786;1.21.50;0;10")
	binary.BigEndian.PutUint16(pong[pongMOTDLenOffset:], 512)

	_, err := parseUnconnectedPong(pong)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
