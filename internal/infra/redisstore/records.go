package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/netcrawl/netcrawl/internal/domain"
)

// RemainingTTL reads the TTL of every address's record in one pipeline.
// Missing keys (-2) and keys without expiry (-1) come back negative, which
// the classifier treats as expired.
func (s *Store) RemainingTTL(ctx context.Context, addrs []domain.Address) (map[domain.Address]time.Duration, error) {
	out := make(map[domain.Address]time.Duration, len(addrs))
	if len(addrs) == 0 {
		return out, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.DurationCmd, len(addrs))
	for i, a := range addrs {
		cmds[i] = pipe.TTL(ctx, ResolveKey(a))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, unavailable("ttl", err)
	}
	for i, a := range addrs {
		out[a] = cmds[i].Val()
	}
	return out, nil
}

// Commit writes all updates in one MULTI/EXEC transaction so readers never
// observe a partial cycle. A record's TTL is reset only together with its
// hostname.
func (s *Store) Commit(ctx context.Context, updates []domain.Update, ttl time.Duration) error {
	if len(updates) == 0 {
		return nil
	}

	type prepared struct {
		key   string
		geoip []byte
		host  *string
	}
	batch := make([]prepared, 0, len(updates))
	for _, u := range updates {
		p := prepared{key: ResolveKey(u.Address), host: u.Hostname}
		if u.GeoIP != nil {
			data, err := json.Marshal(u.GeoIP)
			if err != nil {
				return fmt.Errorf("encode geoip %s: %w", u.Address, err)
			}
			p.geoip = data
		}
		batch = append(batch, p)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range batch {
			if p.geoip != nil {
				pipe.HSet(ctx, p.key, fieldGeoIP, p.geoip, fieldSchema, domain.RecordSchema)
			}
			if p.host != nil {
				pipe.HSet(ctx, p.key, fieldHostname, *p.host, fieldSchema, domain.RecordSchema)
				pipe.Expire(ctx, p.key, ttl)
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// Records reads the resolve records of addrs in one pipeline. Addresses
// without a record get a zero ResolveRecord (nil hostname, default geoip).
// A record that fails to decode is returned as an error wrapping
// domain.ErrMalformedRecord in the per-address error map.
func (s *Store) Records(ctx context.Context, addrs []domain.Address) (map[domain.Address]domain.ResolveRecord, map[domain.Address]error, error) {
	recs := make(map[domain.Address]domain.ResolveRecord, len(addrs))
	bad := make(map[domain.Address]error)
	if len(addrs) == 0 {
		return recs, bad, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(addrs))
	for i, a := range addrs {
		cmds[i] = pipe.HMGet(ctx, ResolveKey(a), fieldHostname, fieldGeoIP, fieldSchema)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, nil, unavailable("records", err)
	}

	for i, a := range addrs {
		rec, err := decodeRecord(cmds[i].Val())
		if err != nil {
			bad[a] = err
			continue
		}
		recs[a] = rec
	}
	return recs, bad, nil
}

func decodeRecord(vals []interface{}) (domain.ResolveRecord, error) {
	var rec domain.ResolveRecord
	if len(vals) != 3 {
		return rec, fmt.Errorf("%w: %d fields", domain.ErrMalformedRecord, len(vals))
	}
	if v, ok := vals[2].(string); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n != domain.RecordSchema {
			return rec, fmt.Errorf("%w: %q", domain.ErrUnknownSchema, v)
		}
	}
	if h, ok := vals[0].(string); ok {
		rec.Hostname = &h
	}
	if g, ok := vals[1].(string); ok {
		geoip, err := domain.DecodeGeoIP([]byte(g))
		if err != nil {
			return rec, err
		}
		rec.GeoIP = geoip
	}
	return rec, nil
}
