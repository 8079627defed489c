package protocol

import (
	"context"
	"time"
)

// Protocol is one edition's status query implementation.
type Protocol interface {
	// Query pings host and maps the edition-specific response into the
	// shared summary shape.
	Query(ctx context.Context, host string, opts *Options) (*ServerInfo, error)

	// Name returns the edition name ("java", "bedrock").
	Name() string

	// DefaultPort returns the port used when the caller supplies none.
	DefaultPort() uint16
}

// Options configures a single status query. The zero value of each field
// selects the documented default.
type Options struct {
	// Timeout bounds the whole exchange, from connect to decoded
	// response. Zero means DefaultTimeout.
	Timeout time.Duration

	// Port overrides the edition's default port. Zero means default.
	Port uint16

	// ProtocolVersion is sent in the Java handshake. Zero means
	// DefaultProtocolVersion (-1, "auto"). Bedrock ignores it.
	ProtocolVersion int32

	// Resolver overrides the SRV resolver used by the Java client.
	// Nil means net.DefaultResolver.
	Resolver SRVResolver
}

// DefaultTimeout bounds a query when the caller sets none.
const DefaultTimeout = 5 * time.Second

// DefaultProtocolVersion is the Java handshake version meaning "auto":
// servers answer status requests regardless of the advertised version.
const DefaultProtocolVersion = -1

func (o *Options) timeout() time.Duration {
	if o == nil || o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

func (o *Options) port(def uint16) uint16 {
	if o == nil || o.Port == 0 {
		return def
	}
	return o.Port
}

func (o *Options) protocolVersion() int32 {
	if o == nil || o.ProtocolVersion == 0 {
		return DefaultProtocolVersion
	}
	return o.ProtocolVersion
}

// Registry manages edition registration.
type Registry struct {
	protocols map[string]Protocol
	aliases   map[string]string
}

var registry = &Registry{
	protocols: make(map[string]Protocol),
	aliases:   make(map[string]string),
}

// Register adds an edition to the global registry.
func (r *Registry) Register(p Protocol) {
	r.protocols[p.Name()] = p
}

// RegisterAlias adds an alias for a registered edition.
func (r *Registry) RegisterAlias(alias, name string) {
	r.aliases[alias] = name
}

// Get retrieves an edition by name or alias.
func (r *Registry) Get(name string) (Protocol, bool) {
	if p, ok := r.protocols[name]; ok {
		return p, true
	}
	if primary, ok := r.aliases[name]; ok {
		p, ok := r.protocols[primary]
		return p, ok
	}
	return nil, false
}

// AllNames returns every registered edition name and alias.
func (r *Registry) AllNames() []string {
	names := make([]string, 0, len(r.protocols)+len(r.aliases))
	for name := range r.protocols {
		names = append(names, name)
	}
	for alias := range r.aliases {
		names = append(names, alias)
	}
	return names
}

// GetProtocol retrieves an edition from the global registry.
func GetProtocol(name string) (Protocol, bool) {
	return registry.Get(name)
}

// AllEditionNames returns every edition name and alias in the global
// registry.
func AllEditionNames() []string {
	return registry.AllNames()
}
