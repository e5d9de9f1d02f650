package image

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsfs/layout"
)

func tempImage(t *testing.T, blocks int) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "vsfs-image-*.img")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(int64(blocks)*layout.BlockSize))
	return f.Name()
}

func TestOpenRejectsMisalignedSize(t *testing.T) {
	path := tempImage(t, 1)
	require.NoError(t, os.Truncate(path, layout.BlockSize+1))
	_, err := Open(path)
	assert.Error(t, err)
}

func TestOpenMapsWholeImage(t *testing.T) {
	path := tempImage(t, 4)
	im, err := Open(path)
	require.NoError(t, err)
	defer im.Close()

	assert.Equal(t, int64(4*layout.BlockSize), im.Size())
	assert.Len(t, im.Bytes, 4*layout.BlockSize)
}

func TestBlockView(t *testing.T) {
	path := tempImage(t, 4)
	im, err := Open(path)
	require.NoError(t, err)
	defer im.Close()

	blk := im.Block(2)
	require.Len(t, blk, layout.BlockSize)
	blk[0] = 0x42
	// the block view aliases the underlying mapping
	assert.Equal(t, byte(0x42), im.Bytes[2*layout.BlockSize])
}

func TestWritesPersistAcrossReopen(t *testing.T) {
	path := tempImage(t, 2)
	im, err := Open(path)
	require.NoError(t, err)
	im.Block(0)[10] = 0x7a
	require.NoError(t, im.Close())

	im2, err := Open(path)
	require.NoError(t, err)
	defer im2.Close()
	assert.Equal(t, byte(0x7a), im2.Block(0)[10])
}
