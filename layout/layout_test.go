package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordSizes(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(128, InodeSize, "inode record must be 128 bytes to keep 32 inodes per block")
	assert.Equal(256, DirentSize)
	assert.Equal(32, InodesPerBlock)
	assert.Equal(16, DirentsPerBlock)
	assert.Equal(1046, MaxFileBlocks)
}

func TestSuperblockRoundTrip(t *testing.T) {
	assert := assert.New(t)
	sb := Superblock{
		Magic:      Magic,
		Size:       1 << 20,
		NumInodes:  64,
		FreeInodes: 63,
		NumBlocks:  256,
		FreeBlocks: 250,
		DataRegion: 5,
	}
	buf := make([]byte, BlockSize)
	sb.Encode(buf)
	got := DecodeSuperblock(buf)
	assert.Equal(sb, got)
}

func TestInodeRoundTrip(t *testing.T) {
	assert := assert.New(t)
	ino := Inode{
		Mode:      ModeRegular | 0644,
		Nlink:     1,
		Size:      6,
		Blocks:    1,
		MtimeSec:  1000,
		MtimeNsec: 2000,
		Indirect:  0,
	}
	ino.Direct[0] = 5
	buf := make([]byte, InodeSize)
	ino.Encode(buf)
	got := DecodeInode(buf)
	assert.Equal(ino, got)
}

func TestDirentRoundTrip(t *testing.T) {
	assert := assert.New(t)
	var d Dirent
	d.Ino = 3
	d.SetName("hello")
	buf := make([]byte, DirentSize)
	d.Encode(buf)
	got := DecodeDirent(buf)
	assert.Equal(uint32(3), got.Ino)
	assert.Equal("hello", got.DirentName())
}

func TestModeHelpers(t *testing.T) {
	assert := assert.New(t)
	assert.True(IsDir(ModeDir | 0777))
	assert.False(IsRegular(ModeDir | 0777))
	assert.True(IsRegular(ModeRegular | 0644))
	assert.False(IsDir(ModeRegular | 0644))
}

func TestInodeTableBlocks(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint32(2), InodeTableBlocks(64))
	assert.Equal(uint32(1), InodeTableBlocks(1))
	assert.Equal(uint32(1), InodeTableBlocks(32))
	assert.Equal(uint32(2), InodeTableBlocks(33))
}
