// Package rdns resolves node addresses to hostnames with PTR queries.
//
// Lookups never fail outward: any error (timeout, NXDOMAIN, SERVFAIL, no PTR
// answer) yields the address itself, which is the conservative hostname the
// rest of the pipeline expects.
package rdns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/netcrawl/netcrawl/internal/domain"
)

// ResolvConf is read when no nameservers are configured.
const ResolvConf = "/etc/resolv.conf"

var (
	errNoPTR    = errors.New("no PTR record in answer")
	errNotIP    = errors.New("address is not an IP literal")
	errNoServer = errors.New("no nameserver configured")
)

// Resolver issues PTR queries against a fixed list of nameservers, trying
// them in order until one answers. It holds no per-lookup state and is safe
// for concurrent use.
type Resolver struct {
	client  *dns.Client
	servers []string
	log     *zap.Logger
}

// New creates a resolver. Servers may omit the port (53 is assumed); an
// empty list falls back to the nameservers in /etc/resolv.conf.
func New(servers []string, timeout time.Duration, log *zap.Logger) (*Resolver, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(servers) == 0 {
		conf, err := dns.ClientConfigFromFile(ResolvConf)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", ResolvConf, err)
		}
		for _, s := range conf.Servers {
			servers = append(servers, net.JoinHostPort(s, conf.Port))
		}
	}
	if len(servers) == 0 {
		return nil, errNoServer
	}

	normalized := make([]string, len(servers))
	for i, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized[i] = s
	}

	return &Resolver{
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		servers: normalized,
		log:     log,
	}, nil
}

// Hostname returns the PTR name for addr with the trailing dot trimmed, or
// addr itself when resolution fails.
func (r *Resolver) Hostname(ctx context.Context, addr domain.Address) string {
	name, err := r.lookup(ctx, addr)
	if err != nil {
		r.log.Debug("reverse lookup failed", zap.Stringer("addr", addr), zap.Error(err))
		return string(addr)
	}
	return name
}

func (r *Resolver) lookup(ctx context.Context, addr domain.Address) (string, error) {
	if addr.IsOnion() || addr.IP() == nil {
		return "", errNotIP
	}
	arpa, err := dns.ReverseAddr(string(addr))
	if err != nil {
		return "", err
	}

	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		in, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", server, err)
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			return "", fmt.Errorf("%s: %s", server, dns.RcodeToString[in.Rcode])
		}
		for _, rr := range in.Answer {
			if ptr, ok := rr.(*dns.PTR); ok {
				return strings.TrimSuffix(ptr.Ptr, "."), nil
			}
		}
		return "", errNoPTR
	}
	return "", lastErr
}
