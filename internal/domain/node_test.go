package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNode_Valid(t *testing.T) {
	n, err := DecodeNode([]byte(`["203.0.113.5", 8333, 70016, "/Satoshi:25.0.0/", 1700000000, 1033, false]`))
	require.NoError(t, err)

	assert.Equal(t, Address("203.0.113.5"), n.Address)
	assert.Equal(t, 8333, n.Port)
	assert.Equal(t, 70016, n.Version)
	assert.Equal(t, "/Satoshi:25.0.0/", n.UserAgent)
	assert.Equal(t, int64(1700000000), n.Timestamp)
	assert.Equal(t, uint64(1033), n.Services)
	assert.False(t, n.TLS)
}

func TestDecodeNode_IntegerFlag(t *testing.T) {
	n, err := DecodeNode([]byte(`["xyz1234567890abcd.onion", 8333, 1, "ua", 1, 0, 1]`))
	require.NoError(t, err)
	assert.True(t, n.TLS)
	assert.True(t, n.Address.IsOnion())
}

func TestDecodeNode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `("1.2.3.4", 8333)`},
		{"object", `{"address": "1.2.3.4"}`},
		{"too few fields", `["1.2.3.4", 8333, 1, "ua", 1, 0]`},
		{"too many fields", `["1.2.3.4", 8333, 1, "ua", 1, 0, false, 9]`},
		{"port as string", `["1.2.3.4", "8333", 1, "ua", 1, 0, false]`},
		{"null address", `[null, 8333, 1, "ua", 1, 0, false]`},
		{"empty address", `["", 8333, 1, "ua", 1, 0, false]`},
		{"negative services", `["1.2.3.4", 8333, 1, "ua", 1, -1, false]`},
		{"flag out of range", `["1.2.3.4", 8333, 1, "ua", 1, 0, 2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeNode([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedNode), "error %v should wrap ErrMalformedNode", err)
		})
	}
}

func TestNode_EncodeDecode(t *testing.T) {
	in := Node{Address: "2001:db8::1", Port: 18333, Version: 70015, UserAgent: "/x/", Timestamp: 42, Services: 9, TLS: true}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Node
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestAddressSet_Dedupes(t *testing.T) {
	nodes := []Node{
		{Address: "203.0.113.5", Port: 8333},
		{Address: "203.0.113.5", Port: 18333},
		{Address: "198.51.100.7", Port: 8333},
	}
	assert.Equal(t, []Address{"203.0.113.5", "198.51.100.7"}, AddressSet(nodes))
}

func TestAddress_IsOnion(t *testing.T) {
	assert.True(t, Address("xyz1234567890abcd.onion").IsOnion())
	assert.False(t, Address("203.0.113.5").IsOnion())
	assert.False(t, Address("onion.example.com").IsOnion())
	assert.Nil(t, Address("xyz1234567890abcd.onion").IP())
	assert.NotNil(t, Address("2001:db8::1").IP())
}
