package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/netcrawl/netcrawl/internal/domain"
	"github.com/netcrawl/netcrawl/internal/infra/redisstore"
)

// fakeGeo returns a fixed country for IPs and the Tor org for onions.
type fakeGeo struct {
	mu    sync.Mutex
	calls []domain.Address
}

func (g *fakeGeo) Lookup(addr domain.Address) domain.GeoIP {
	g.mu.Lock()
	g.calls = append(g.calls, addr)
	g.mu.Unlock()

	if addr.IsOnion() {
		return domain.GeoIP{Org: domain.StringPtr(domain.OnionOrg)}
	}
	asn := uint(64500)
	return domain.GeoIP{
		City:        domain.StringPtr("Amsterdam"),
		CountryCode: domain.StringPtr("NL"),
		Latitude:    52.3759,
		Longitude:   4.8975,
		Timezone:    domain.StringPtr("Europe/Amsterdam"),
		ASN:         &asn,
		Org:         domain.StringPtr("Example BV"),
	}
}

// fakeNames resolves from a table, falls back to the address, and blocks
// forever on addresses listed in hang until release is closed.
type fakeNames struct {
	mu      sync.Mutex
	table   map[domain.Address]string
	hang    map[domain.Address]bool
	release chan struct{}
	calls   []domain.Address
}

func newFakeNames(t *testing.T) *fakeNames {
	f := &fakeNames{
		table:   map[domain.Address]string{},
		hang:    map[domain.Address]bool{},
		release: make(chan struct{}),
	}
	t.Cleanup(func() { close(f.release) })
	return f
}

func (f *fakeNames) Hostname(ctx context.Context, addr domain.Address) string {
	f.mu.Lock()
	f.calls = append(f.calls, addr)
	hang := f.hang[addr]
	name, ok := f.table[addr]
	f.mu.Unlock()

	if hang {
		<-f.release
	}
	if !ok {
		return string(addr)
	}
	return name
}

func (f *fakeNames) called() []domain.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Address, len(f.calls))
	copy(out, f.calls)
	return out
}

// fakeBus is an in-memory EventBus.
type fakeBus struct {
	mu        sync.Mutex
	triggers  chan string
	published []int64
	done      chan int64
}

func newFakeBus() *fakeBus {
	return &fakeBus{triggers: make(chan string, 16), done: make(chan int64, 16)}
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (domain.Subscription, error) {
	return &fakeSub{ch: b.triggers}, nil
}

func (b *fakeBus) Publish(ctx context.Context, channel string, token int64) error {
	b.mu.Lock()
	b.published = append(b.published, token)
	b.mu.Unlock()
	b.done <- token
	return nil
}

type fakeSub struct{ ch chan string }

func (s *fakeSub) Next(ctx context.Context) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case p := <-s.ch:
		var tok int64
		if _, err := fmt.Sscanf(p, "%d", &tok); err != nil {
			return 0, fmt.Errorf("%w: %q", domain.ErrBadToken, p)
		}
		return tok, nil
	}
}

func (s *fakeSub) Close() error { return nil }

// newRedis starts miniredis and opens a store on it.
func newRedis(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := redisstore.Open(context.Background(), redisstore.Options{Address: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func addNode(t *testing.T, mr *miniredis.Miniredis, n domain.Node) {
	t.Helper()
	data, err := json.Marshal(n)
	require.NoError(t, err)
	_, err = mr.SAdd(redisstore.ReachableKey, string(data))
	require.NoError(t, err)
}
