package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoIP_EncodesFixedTuple(t *testing.T) {
	asn := uint(64496)
	g := GeoIP{
		City:        StringPtr("Amsterdam"),
		CountryCode: StringPtr("NL"),
		Latitude:    52.3759,
		Longitude:   4.8975,
		Timezone:    StringPtr("Europe/Amsterdam"),
		ASN:         &asn,
		Org:         StringPtr("Example BV"),
	}
	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `["Amsterdam","NL",52.3759,4.8975,"Europe/Amsterdam",64496,"Example BV"]`, string(data))

	back, err := DecodeGeoIP(data)
	require.NoError(t, err)
	assert.Equal(t, g, back)
	assert.True(t, back.Resolved())
}

func TestGeoIP_Defaults(t *testing.T) {
	data, err := json.Marshal(GeoIP{})
	require.NoError(t, err)
	assert.JSONEq(t, `[null,null,0,0,null,null,null]`, string(data))

	g, err := DecodeGeoIP(data)
	require.NoError(t, err)
	assert.False(t, g.Resolved())
}

func TestDecodeGeoIP_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"python tuple", `(None, None, 0.0, 0.0, None, None, None)`},
		{"empty", ``},
		{"object", `{"city":"Berlin"}`},
		{"null", `null`},
		{"six fields", `[null,null,0,0,null,null]`},
		{"null latitude", `[null,null,null,0,null,null,null]`},
		{"asn as string", `[null,null,0,0,null,"AS1",null]`},
		{"city as number", `[1,null,0,0,null,null,null]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeGeoIP([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord))
		})
	}
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "x", Deref(StringPtr("x")))
	assert.Equal(t, "", Deref(nil))
}
