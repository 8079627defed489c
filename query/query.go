// Package query exposes the value-level entry points for pinging Minecraft
// servers of either edition.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/craftping/craftping/protocol"
)

// Option is a functional option for configuring queries.
type Option func(*protocol.Options)

// Timeout bounds the whole exchange. The default is protocol.DefaultTimeout.
func Timeout(d time.Duration) Option {
	return func(o *protocol.Options) {
		o.Timeout = d
	}
}

// Port overrides the edition's default port (25565 Java, 19132 Bedrock).
func Port(port uint16) Option {
	return func(o *protocol.Options) {
		o.Port = port
	}
}

// ProtocolVersion sets the version advertised in the Java handshake.
// The default of -1 lets the server answer regardless of version.
func ProtocolVersion(v int32) Option {
	return func(o *protocol.Options) {
		o.ProtocolVersion = v
	}
}

// Resolver overrides the SRV resolver used by the Java client.
func Resolver(r protocol.SRVResolver) Option {
	return func(o *protocol.Options) {
		o.Resolver = r
	}
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() *protocol.Options {
	return &protocol.Options{
		Timeout:         protocol.DefaultTimeout,
		Port:            0, // edition default
		ProtocolVersion: protocol.DefaultProtocolVersion,
	}
}

func buildOptions(opts []Option) *protocol.Options {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// Java pings a Java edition server and returns its full decoded status.
func Java(ctx context.Context, host string, opts ...Option) (*protocol.JavaStatus, error) {
	if host == "" {
		return nil, protocol.ErrMissingHost
	}
	p := &protocol.JavaProtocol{}
	return p.Status(ctx, host, buildOptions(opts))
}

// Bedrock pings a Bedrock edition server and returns its full decoded
// status.
func Bedrock(ctx context.Context, host string, opts ...Option) (*protocol.BedrockStatus, error) {
	if host == "" {
		return nil, protocol.ErrMissingHost
	}
	p := &protocol.BedrockProtocol{}
	return p.Status(ctx, host, buildOptions(opts))
}

// Query pings host using the named edition ("java", "bedrock" or an alias)
// and returns the summary shape.
func Query(ctx context.Context, edition, host string, opts ...Option) (*protocol.ServerInfo, error) {
	proto, ok := protocol.GetProtocol(edition)
	if !ok {
		return nil, fmt.Errorf("unsupported edition: %s", edition)
	}
	if host == "" {
		return nil, protocol.ErrMissingHost
	}
	return proto.Query(ctx, host, buildOptions(opts))
}

// AutoDetect tries each edition in turn on a single host and returns the
// first answer. Java goes first: it is the more common deployment.
func AutoDetect(ctx context.Context, host string, opts ...Option) (*protocol.ServerInfo, error) {
	if host == "" {
		return nil, protocol.ErrMissingHost
	}
	options := buildOptions(opts)

	var lastErr error
	for _, edition := range []string{"java", "bedrock"} {
		proto, ok := protocol.GetProtocol(edition)
		if !ok {
			continue
		}
		info, err := proto.Query(ctx, host, options)
		if err == nil {
			return info, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("no responsive server found at %s: %w", host, lastErr)
}

// SupportedEditions returns every edition name and alias.
func SupportedEditions() []string {
	return protocol.AllEditionNames()
}

// DefaultPort returns the default port for an edition, or zero when the
// edition is unknown.
func DefaultPort(edition string) uint16 {
	if proto, ok := protocol.GetProtocol(edition); ok {
		return proto.DefaultPort()
	}
	return 0
}
