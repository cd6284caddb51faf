package intent

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagTable_Shape(t *testing.T) {
	require.Len(t, FlagDefinitions(), 28)

	table := Flags()
	seen := make(map[uint32]bool)
	for _, f := range table {
		assert.False(t, seen[f.Value], "duplicate key 0x%x", f.Value)
		seen[f.Value] = true
	}
	// Receiver definitions reuse five activity bits.
	assert.Len(t, table, 23)

	name, ok := FlagName(0x10000000)
	require.True(t, ok)
	assert.Equal(t, "FLAG_RECEIVER_FOREGROUND", name)

	name, ok = FlagName(0x08000000)
	require.True(t, ok)
	assert.Equal(t, "FLAG_RECEIVER_REGISTERED_ONLY_BEFORE_BOOT", name)

	_, ok = FlagName(0x00000040)
	assert.False(t, ok)
}

func TestDecodeFlags_Zero(t *testing.T) {
	got := DecodeFlags(0)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDecodeFlags_TableOrder(t *testing.T) {
	got := DecodeFlags(0x10000000 | 0x00000001 | 0x00004000)
	assert.Equal(t, []string{
		"FLAG_GRANT_READ_URI_PERMISSION",
		"FLAG_RECEIVER_FOREGROUND",
		"FLAG_ACTIVITY_TASK_ON_HOME",
	}, got)
}

func TestDecodeFlags_UnknownBitsIgnored(t *testing.T) {
	assert.Empty(t, DecodeFlags(0x00000040|0x80000000))
	assert.Equal(t, uint32(0x80000040), UnknownFlagBits(0x80000041))
}

func TestDecodeFlags_AnySubset(t *testing.T) {
	table := Flags()
	rng := rand.New(rand.NewSource(7))
	const noise = uint32(0x80000000 | 0x00000040 | 0x00001000)

	for i := 0; i < 500; i++ {
		var mask uint32
		var want []string
		for _, f := range table {
			if rng.Intn(2) == 0 {
				mask |= f.Value
				want = append(want, f.Name)
			}
		}
		if want == nil {
			want = []string{}
		}
		assert.Equal(t, want, DecodeFlags(mask|noise), "mask 0x%x", mask)
	}
}
