package domain

import (
	"encoding/json"
	"fmt"
)

// nodeFields is the fixed arity of a reachable-node descriptor.
const nodeFields = 7

// Node is one entry of the reachable-node set maintained by the discovery
// stage. On the wire it is the JSON array
// [address, port, version, user_agent, timestamp, services, tls].
type Node struct {
	Address   Address
	Port      int
	Version   int
	UserAgent string
	Timestamp int64
	Services  uint64
	TLS       bool
}

// MarshalJSON encodes the node as its fixed 7-element array.
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{
		string(n.Address), n.Port, n.Version, n.UserAgent, n.Timestamp, n.Services, n.TLS,
	})
}

// UnmarshalJSON decodes a 7-element descriptor array, checking arity and the
// type of every element.
func (n *Node) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeNode(data)
	if err != nil {
		return err
	}
	*n = decoded
	return nil
}

// DecodeNode decodes a serialized reachable-node descriptor. Every failure
// wraps ErrMalformedNode.
func DecodeNode(data []byte) (Node, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Node{}, fmt.Errorf("%w: %v", ErrMalformedNode, err)
	}
	if len(raw) != nodeFields {
		return Node{}, fmt.Errorf("%w: %d fields, want %d", ErrMalformedNode, len(raw), nodeFields)
	}

	var (
		n    Node
		addr string
	)
	targets := []struct {
		name string
		dst  interface{}
	}{
		{"address", &addr},
		{"port", &n.Port},
		{"version", &n.Version},
		{"user_agent", &n.UserAgent},
		{"timestamp", &n.Timestamp},
		{"services", &n.Services},
	}
	for i, t := range targets {
		if isNull(raw[i]) {
			return Node{}, fmt.Errorf("%w: %s is null", ErrMalformedNode, t.name)
		}
		if err := json.Unmarshal(raw[i], t.dst); err != nil {
			return Node{}, fmt.Errorf("%w: %s: %v", ErrMalformedNode, t.name, err)
		}
	}
	if addr == "" {
		return Node{}, fmt.Errorf("%w: empty address", ErrMalformedNode)
	}
	n.Address = Address(addr)

	tls, err := decodeFlag(raw[6])
	if err != nil {
		return Node{}, fmt.Errorf("%w: tls: %v", ErrMalformedNode, err)
	}
	n.TLS = tls
	return n, nil
}

// decodeFlag accepts a JSON bool or the integers 0 and 1.
func decodeFlag(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var i int
	if err := json.Unmarshal(raw, &i); err != nil {
		return false, err
	}
	switch i {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("flag out of range: %d", i)
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
