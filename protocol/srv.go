package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog/log"
)

// SRVResolver discovers an alternate host/port for a named service.
// *net.Resolver implements it.
type SRVResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (cname string, addrs []*net.SRV, err error)
}

// srvService is the service label of the Java edition SRV convention,
// _minecraft._tcp.<host>.
const srvService = "minecraft"

// shouldLookupSRV reports whether host can carry an SRV record. Literal IP
// addresses and loopback aliases never do.
func shouldLookupSRV(host string) bool {
	if net.ParseIP(host) != nil {
		return false
	}
	return host != "localhost"
}

// resolveSRV returns the effective dial target for host. A missing record
// is not an error: the caller-supplied host and port are returned
// unchanged. DNS failures other than "no such record" are fatal.
func resolveSRV(ctx context.Context, r SRVResolver, host string, port uint16) (string, uint16, error) {
	if !shouldLookupSRV(host) {
		return host, port, nil
	}
	if r == nil {
		r = net.DefaultResolver
	}

	_, addrs, err := r.LookupSRV(ctx, srvService, "tcp", host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return host, port, nil
		}
		return "", 0, fmt.Errorf("srv lookup for %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return host, port, nil
	}

	target := strings.TrimSuffix(addrs[0].Target, ".")
	log.Debug().
		Str("host", host).
		Str("target", target).
		Uint16("port", addrs[0].Port).
		Msg("srv record found")
	return target, addrs[0].Port, nil
}
