package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/netcrawl/netcrawl/internal/domain"
	"github.com/netcrawl/netcrawl/internal/infra/metrics"
)

// ReachableNodes decodes the reachable-node set. Members that fail to decode
// are logged and skipped; one bad descriptor never aborts the read. Nodes
// come back sorted by address then port.
func (s *Store) ReachableNodes(ctx context.Context) ([]domain.Node, error) {
	members, err := s.client.SMembers(ctx, ReachableKey).Result()
	if err != nil {
		return nil, unavailable("reachable set", err)
	}

	nodes := make([]domain.Node, 0, len(members))
	for _, m := range members {
		n, err := domain.DecodeNode([]byte(m))
		if err != nil {
			metrics.MalformedNodes.Inc()
			s.log.Warn("skipping node descriptor", zap.String("member", m), zap.Error(err))
			continue
		}
		nodes = append(nodes, n)
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Address != nodes[j].Address {
			return nodes[i].Address < nodes[j].Address
		}
		return nodes[i].Port < nodes[j].Port
	})
	return nodes, nil
}

// Heights reads the block height of every node; unknown heights are 0.
func (s *Store) Heights(ctx context.Context, nodes []domain.Node) ([]int64, error) {
	out := make([]int64, len(nodes))
	if len(nodes) == 0 {
		return out, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(nodes))
	for i, n := range nodes {
		cmds[i] = pipe.Get(ctx, HeightKey(n))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable("heights", err)
	}

	for i, cmd := range cmds {
		v, err := cmd.Result()
		if err != nil {
			continue
		}
		h, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.log.Debug("bad height", zap.String("key", HeightKey(nodes[i])), zap.String("value", v))
			continue
		}
		out[i] = h
	}
	return out, nil
}

// NodePeers returns the stored peer list of ip:port as raw JSON, or
// domain.ErrNotFound when no mapping exists.
func (s *Store) NodePeers(ctx context.Context, ip string, port int) (json.RawMessage, error) {
	v, err := s.client.Get(ctx, NodeMapKey(ip, port)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("node map", err)
	}
	if !json.Valid(v) {
		return nil, domain.ErrMalformedRecord
	}
	return json.RawMessage(v), nil
}
