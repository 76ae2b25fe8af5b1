package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return c
}

func TestNewCodec_KeyLength(t *testing.T) {
	_, err := NewCodec([]byte("short"))
	require.Error(t, err)

	_, err = NewCodec(make([]byte, 65))
	require.Error(t, err)

	c, err := NewCodec(make([]byte, 16))
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestMint_Format(t *testing.T) {
	c := testCodec(t)

	m, err := c.Mint()
	require.NoError(t, err)

	parts := strings.Split(m.External, ".")
	require.Len(t, parts, 3)
	assert.Equal(t, "pat", parts[0])
	assert.Equal(t, m.ID, parts[1])
	assert.Equal(t, m.Secret, parts[2])
	assert.Len(t, m.ID, idLength)
	assert.Len(t, m.Secret, secretLen*2)
	assert.Equal(t, c.Hash(m.Secret), m.Hash)
}

func TestMint_RoundTripsThroughParse(t *testing.T) {
	c := testCodec(t)

	m, err := c.Mint()
	require.NoError(t, err)

	p, err := c.Parse(m.External)
	require.NoError(t, err)
	assert.Equal(t, m.ID, p.ID)
	assert.Equal(t, m.Secret, p.Secret)
	assert.Equal(t, m.Hash, c.Hash(p.Secret))
}

func TestMint_UniqueAcrossTrials(t *testing.T) {
	c := testCodec(t)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		m, err := c.Mint()
		require.NoError(t, err)
		require.False(t, seen[m.Hash], "duplicate hash after %d mints", i)
		seen[m.Hash] = true
	}
}

func TestHash_Deterministic(t *testing.T) {
	c := testCodec(t)

	assert.Equal(t, c.Hash("secret"), c.Hash("secret"))
	assert.NotEqual(t, c.Hash("secret"), c.Hash("secret2"))
}

func TestHash_KeyDependent(t *testing.T) {
	c1 := testCodec(t)
	c2, err := NewCodec([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	assert.NotEqual(t, c1.Hash("secret"), c2.Hash("secret"))
}

func TestParse_Malformed(t *testing.T) {
	c := testCodec(t)

	m, err := c.Mint()
	require.NoError(t, err)

	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"garbage", "not a token"},
		{"wrong prefix", "key." + m.ID + "." + m.Secret},
		{"missing parts", "pat." + m.ID},
		{"extra parts", m.External + ".x"},
		{"short id", "pat.abc." + m.Secret},
		{"uppercase id", "pat." + strings.ToUpper(m.ID) + "." + m.Secret},
		{"short secret", "pat." + m.ID + ".abcdef"},
		{"non-hex secret", "pat." + m.ID + "." + strings.Repeat("z", secretLen*2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Parse(tc.input)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
