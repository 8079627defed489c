package protocol

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultBedrockPort is the Bedrock edition listen port.
const DefaultBedrockPort = 19132

const (
	idUnconnectedPing = 0x01
	idUnconnectedPong = 0x1C

	// unconnectedPingLen is the fixed outbound frame: id, timestamp,
	// magic, client GUID.
	unconnectedPingLen = 1 + 8 + 16 + 8

	// The pong envelope mirrors the ping layout, which pins the MOTD
	// length field to offset 33 and the MOTD payload to offset 35.
	pongMOTDLenOffset = 33
	pongMOTDOffset    = 35
)

// offlineMessageMagic marks RakNet unconnected (offline) messages.
var offlineMessageMagic = [16]byte{
	0x00, 0xFF, 0xFF, 0x00, 0xFE, 0xFE, 0xFE, 0xFE,
	0xFD, 0xFD, 0xFD, 0xFD, 0x12, 0x34, 0x56, 0x78,
}

// startTime anchors ping timestamps. The protocol never validates them, so
// a process-relative epoch is sufficient.
var startTime = time.Now()

// minMOTDFields is the smallest valid semicolon-delimited pong record:
// edition, name, protocol, version and online count must be present.
const minMOTDFields = 5

// BedrockProtocol implements the Bedrock edition status exchange: a RakNet
// unconnected ping datagram answered by an unconnected pong carrying a
// semicolon-delimited MOTD record.
type BedrockProtocol struct{}

func init() {
	registry.Register(&BedrockProtocol{})
	registry.RegisterAlias("mcpe", "bedrock")
	registry.RegisterAlias("raknet", "bedrock")
}

func (p *BedrockProtocol) Name() string {
	return "bedrock"
}

func (p *BedrockProtocol) DefaultPort() uint16 {
	return DefaultBedrockPort
}

// Query pings host and maps the response into the shared summary shape.
func (p *BedrockProtocol) Query(ctx context.Context, host string, opts *Options) (*ServerInfo, error) {
	start := time.Now()
	status, err := p.Status(ctx, host, opts)
	if err != nil {
		return nil, err
	}

	info := &ServerInfo{
		Name:    status.Name,
		Edition: p.Name(),
		Version: status.Version.Minecraft,
		Address: host,
		Port:    opts.port(DefaultBedrockPort),
		Players: PlayerCount{Online: status.Players.Online, Max: status.Players.Max},
		Ping:    int(time.Since(start).Milliseconds()),
		Online:  true,
		Extra: map[string]string{
			"protocol": strconv.Itoa(status.Version.Protocol),
			"edition":  status.Edition,
		},
	}
	if status.LevelName != "" {
		info.Extra["level_name"] = status.LevelName
	}
	if status.GameMode != "" {
		info.Extra["gamemode"] = status.GameMode
	}
	return info, nil
}

// Status performs a single unconnected ping round trip and returns the
// decoded pong. The datagram is accepted or rejected as a whole; exactly
// one outcome is delivered.
func (p *BedrockProtocol) Status(ctx context.Context, host string, opts *Options) (*BedrockStatus, error) {
	if host == "" {
		return nil, ErrMissingHost
	}

	port := opts.port(DefaultBedrockPort)
	timeout := opts.timeout()

	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	log.Debug().Str("addr", addr).Msg("bedrock: pinging")

	dialer := &net.Dialer{Timeout: timeout}
	rawConn, err := dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, terminalError(ctx, "connect", err)
	}
	conn := &guardedConn{Conn: rawConn}
	defer conn.release()

	stop := watchCancel(ctx, conn)
	defer stop()

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	if _, err := conn.Write(buildUnconnectedPing()); err != nil {
		return nil, terminalError(ctx, "write ping", err)
	}

	response := make([]byte, 4096)
	n, err := conn.Read(response)
	if err != nil {
		return nil, terminalError(ctx, "read pong", err)
	}

	status, err := parseUnconnectedPong(response[:n])
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("addr", addr).
		Int("online", status.Players.Online).
		Int("max", status.Players.Max).
		Str("version", status.Version.Minecraft).
		Msg("bedrock: pong decoded")
	return status, nil
}

// buildUnconnectedPing assembles the fixed 33-byte ping frame.
func buildUnconnectedPing() []byte {
	buf := make([]byte, 0, unconnectedPingLen)
	buf = append(buf, idUnconnectedPing)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(time.Since(startTime).Milliseconds()))
	buf = append(buf, offlineMessageMagic[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, rand.Uint64())
	return buf
}

// parseUnconnectedPong validates the pong envelope and decodes the MOTD
// record it carries.
func parseUnconnectedPong(data []byte) (*BedrockStatus, error) {
	if len(data) < pongMOTDOffset {
		return nil, fmt.Errorf("%w: pong of %d bytes", ErrMalformedResponse, len(data))
	}
	if data[0] != idUnconnectedPong {
		return nil, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrUnexpectedPacket, data[0], idUnconnectedPong)
	}

	motdLen := int(binary.BigEndian.Uint16(data[pongMOTDLenOffset:pongMOTDOffset]))
	if pongMOTDOffset+motdLen > len(data) {
		return nil, fmt.Errorf("%w: motd length %d exceeds datagram", ErrMalformedResponse, motdLen)
	}

	return parseMOTDRecord(string(data[pongMOTDOffset : pongMOTDOffset+motdLen]))
}

// parseMOTDRecord maps the semicolon-delimited record positionally:
// edition;name;protocol;version;online;max;guid;levelName;gamemode;
// nintendoLimited;portV4;portV6;editorMode. Fields past the first five are
// optional.
func parseMOTDRecord(record string) (*BedrockStatus, error) {
	fields := strings.Split(record, ";")
	if len(fields) < minMOTDFields {
		return nil, fmt.Errorf("%w: motd has %d fields, want at least %d", ErrMalformedResponse, len(fields), minMOTDFields)
	}

	status := &BedrockStatus{
		Edition: fields[0],
		Name:    fields[1],
		Version: BedrockVersion{Minecraft: fields[3]},
	}

	var err error
	if status.Version.Protocol, err = strconv.Atoi(fields[2]); err != nil {
		return nil, fmt.Errorf("%w: protocol version %q", ErrMalformedResponse, fields[2])
	}
	if status.Players.Online, err = strconv.Atoi(fields[4]); err != nil {
		return nil, fmt.Errorf("%w: online count %q", ErrMalformedResponse, fields[4])
	}

	if len(fields) > 5 {
		if status.Players.Max, err = strconv.Atoi(fields[5]); err != nil {
			return nil, fmt.Errorf("%w: max count %q", ErrMalformedResponse, fields[5])
		}
	}
	if len(fields) > 6 {
		if status.GUID, err = parseGUID(fields[6]); err != nil {
			return nil, fmt.Errorf("%w: guid %q", ErrMalformedResponse, fields[6])
		}
	}
	if len(fields) > 7 {
		status.LevelName = fields[7]
	}
	if len(fields) > 8 {
		status.GameMode = fields[8]
	}
	if len(fields) > 9 {
		// Observed protocol quirk: "0" means limited, "1" means not.
		switch fields[9] {
		case "0":
			status.IsNintendoLimited = boolPtr(true)
		case "1":
			status.IsNintendoLimited = boolPtr(false)
		}
	}
	if len(fields) > 10 && fields[10] != "" {
		if status.Port.V4, err = parsePort(fields[10]); err != nil {
			return nil, fmt.Errorf("%w: ipv4 port %q", ErrMalformedResponse, fields[10])
		}
	}
	if len(fields) > 11 && fields[11] != "" {
		if status.Port.V6, err = parsePort(fields[11]); err != nil {
			return nil, fmt.Errorf("%w: ipv6 port %q", ErrMalformedResponse, fields[11])
		}
	}
	if len(fields) > 12 && fields[12] != "" {
		mode, err := strconv.Atoi(fields[12])
		if err != nil {
			return nil, fmt.Errorf("%w: editor mode %q", ErrMalformedResponse, fields[12])
		}
		status.IsEditorModeEnabled = boolPtr(mode != 0)
	}

	return status, nil
}

// parseGUID reads the server GUID as a signed 64-bit integer, accepting the
// unsigned form some servers emit.
func parseGUID(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return v, nil
	}
	u, uerr := strconv.ParseUint(s, 10, 64)
	if uerr == nil {
		return int64(u), nil
	}
	return 0, err
}

func parsePort(s string) (*uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return nil, err
	}
	p := uint16(v)
	return &p, nil
}

func boolPtr(b bool) *bool { return &b }
