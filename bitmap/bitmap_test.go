package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fresh(nbits uint32) *Bitmap {
	blk := make([]byte, 4096)
	for i := range blk {
		blk[i] = 0xff
	}
	b := New(blk, 0)
	b.Init(nbits)
	return b
}

func TestInitClearsOnlyInRange(t *testing.T) {
	assert := assert.New(t)
	b := fresh(10)
	for i := uint32(0); i < 10; i++ {
		assert.False(b.IsSet(i))
	}
	// bits beyond nbits must stay allocated so Alloc never picks them
	assert.True(b.IsSet(10))
	assert.True(b.IsSet(63))
}

func TestAllocSmallestIndex(t *testing.T) {
	assert := assert.New(t)
	b := fresh(8)
	i, ok := b.Alloc(8)
	assert.True(ok)
	assert.Equal(uint32(0), i)

	i, ok = b.Alloc(8)
	assert.True(ok)
	assert.Equal(uint32(1), i)

	b.Free(0)
	i, ok = b.Alloc(8)
	assert.True(ok)
	assert.Equal(uint32(0), i, "smallest free index must be reused before advancing")
}

func TestAllocExhausted(t *testing.T) {
	assert := assert.New(t)
	b := fresh(4)
	for i := 0; i < 4; i++ {
		_, ok := b.Alloc(4)
		assert.True(ok)
	}
	_, ok := b.Alloc(4)
	assert.False(ok)
}

func TestSetIsSet(t *testing.T) {
	assert := assert.New(t)
	b := fresh(16)
	assert.False(b.IsSet(5))
	b.Set(5, true)
	assert.True(b.IsSet(5))
	b.Set(5, false)
	assert.False(b.IsSet(5))
}

func TestPopCount(t *testing.T) {
	assert := assert.New(t)
	b := fresh(16)
	b.Alloc(16)
	b.Alloc(16)
	b.Alloc(16)
	assert.Equal(uint32(3), b.PopCount(16))
}
