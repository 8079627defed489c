package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultJavaPort is the Java edition listen port.
const DefaultJavaPort = 25565

// JavaProtocol implements the Java edition Server List Ping exchange:
// a varint length-framed handshake and status request over TCP, answered
// with a length-framed JSON status response.
type JavaProtocol struct{}

func init() {
	registry.Register(&JavaProtocol{})
	registry.RegisterAlias("minecraft", "java")
}

func (p *JavaProtocol) Name() string {
	return "java"
}

func (p *JavaProtocol) DefaultPort() uint16 {
	return DefaultJavaPort
}

// Query pings host and maps the response into the shared summary shape.
func (p *JavaProtocol) Query(ctx context.Context, host string, opts *Options) (*ServerInfo, error) {
	start := time.Now()
	status, err := p.Status(ctx, host, opts)
	if err != nil {
		return nil, err
	}

	info := &ServerInfo{
		Name:    status.Description.Clean(),
		Edition: p.Name(),
		Version: status.Version.Name,
		Address: host,
		Port:    opts.port(DefaultJavaPort),
		Players: PlayerCount{Online: status.Players.Online, Max: status.Players.Max},
		Ping:    int(time.Since(start).Milliseconds()),
		Online:  true,
		Extra: map[string]string{
			"protocol": strconv.Itoa(status.Version.Protocol),
		},
	}
	if status.EnforcesSecureChat != nil {
		info.Extra["enforces_secure_chat"] = strconv.FormatBool(*status.EnforcesSecureChat)
	}
	return info, nil
}

// Status performs the full Server List Ping exchange and returns the
// decoded response. Exactly one outcome is delivered: a status or an error.
func (p *JavaProtocol) Status(ctx context.Context, host string, opts *Options) (*JavaStatus, error) {
	if host == "" {
		return nil, ErrMissingHost
	}

	port := opts.port(DefaultJavaPort)
	timeout := opts.timeout()

	var resolver SRVResolver
	if opts != nil {
		resolver = opts.Resolver
	}
	target, targetPort, err := resolveSRV(ctx, resolver, host, port)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(target, strconv.Itoa(int(targetPort)))
	log.Debug().Str("addr", addr).Str("host", host).Msg("java: connecting")

	dialer := &net.Dialer{Timeout: timeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
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
	if tc, ok := rawConn.(*net.TCPConn); ok {
		// Both request packets must leave immediately.
		_ = tc.SetNoDelay(true)
	}

	// The handshake carries the original caller-supplied host, never the
	// SRV target: servers route virtual hosts on this field.
	request, err := p.buildRequest(host, port, opts.protocolVersion())
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(request); err != nil {
		return nil, terminalError(ctx, "write request", err)
	}

	payload, err := p.readResponse(ctx, conn)
	if err != nil {
		return nil, err
	}

	var status JavaStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	log.Debug().
		Str("addr", addr).
		Int("online", status.Players.Online).
		Int("max", status.Players.Max).
		Str("version", status.Version.Name).
		Msg("java: status decoded")
	return &status, nil
}

// buildRequest frames the handshake and the zero-payload status request,
// each with its own length prefix.
func (p *JavaProtocol) buildRequest(host string, port uint16, protocolVersion int32) ([]byte, error) {
	var body []byte
	body = append(body, EncodeVarInt(handshakePacketID)...)
	body = append(body, EncodeVarInt(protocolVersion)...)
	body = AppendString(body, host)
	body = AppendUint16(body, port)
	body = append(body, EncodeVarInt(statusNextState)...)

	handshake, err := Frame(body)
	if err != nil {
		return nil, err
	}
	statusRequest, err := Frame(EncodeVarInt(statusRequestPacketID))
	if err != nil {
		return nil, err
	}
	return append(handshake, statusRequest...), nil
}

// readResponse accumulates incoming bytes and re-parses after every append
// until a complete status frame is assembled. An incomplete frame is not an
// error; EOF before a response is.
func (p *JavaProtocol) readResponse(ctx context.Context, conn net.Conn) ([]byte, error) {
	var pending []byte
	chunk := make([]byte, 4096)

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)

			payload, _, perr := parseStatusFrame(pending)
			if perr == nil {
				return payload, nil
			}
			if !errors.Is(perr, ErrShortBuffer) {
				return nil, perr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrPrematureClose
			}
			return nil, terminalError(ctx, "read response", err)
		}
	}
}
