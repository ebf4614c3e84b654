package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	c, ok = ByName("go-json")
	require.True(t, ok)
	assert.Equal(t, "go-json", c.Name())

	_, ok = ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecCompatibility(t *testing.T) {
	// GoJSON output must decode under JSON and vice versa; persisted records
	// survive a codec switch.
	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	in := record{Name: "vault", Count: 3}

	raw, err := GoJSON{}.Marshal(in)
	require.NoError(t, err)

	var out record
	require.NoError(t, JSON{}.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestMustMarshal(t *testing.T) {
	assert.NotPanics(t, func() {
		MustMarshal(nil, map[string]string{"k": "v"})
	})
	assert.Panics(t, func() {
		MustMarshal(Default, func() {}) // functions are not serializable
	})
}
