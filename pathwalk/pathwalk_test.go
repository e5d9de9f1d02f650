package pathwalk

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsfs/common"
	"vsfs/layout"
	"vsfs/mkfs"
	"vsfs/vsfsctx"
)

func mountFresh(t *testing.T, nblocks int, nInodes uint32) *vsfsctx.Context {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "vsfs-pathwalk-*.img")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Truncate(int64(nblocks)*layout.BlockSize))
	f.Close()

	require.NoError(t, mkfs.Format(path, nInodes, mkfs.Options{}))
	ctx, err := vsfsctx.Mount(path)
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Unmount() })
	return ctx
}

func TestResolveRoot(t *testing.T) {
	ctx := mountFresh(t, 256, 64)
	ino, err := Resolve(ctx, "/")
	require.NoError(t, err)
	assert.EqualValues(t, common.RootInum, ino)
}

func TestResolveMissingEntry(t *testing.T) {
	ctx := mountFresh(t, 256, 64)
	_, err := Resolve(ctx, "/missing")
	assert.Error(t, err)
}

func TestResolveRejectsMultiComponentPaths(t *testing.T) {
	ctx := mountFresh(t, 256, 64)
	_, err := Resolve(ctx, "/a/b")
	assert.Error(t, err)
}

func TestFindByNameResolvesDotAndDotDotToRoot(t *testing.T) {
	ctx := mountFresh(t, 256, 64)
	slot, ino, ok := FindByName(ctx, ".")
	require.True(t, ok)
	assert.Equal(t, 0, slot)
	assert.EqualValues(t, common.RootInum, ino)

	slot, ino, ok = FindByName(ctx, "..")
	require.True(t, ok)
	assert.Equal(t, 1, slot)
	assert.EqualValues(t, common.RootInum, ino)
}

func TestFindFreeSlotSkipsDotEntries(t *testing.T) {
	ctx := mountFresh(t, 256, 64)
	slot, ok := FindFreeSlot(ctx)
	require.True(t, ok)
	assert.Equal(t, 2, slot)
}

func TestFindByNameAfterManualInsert(t *testing.T) {
	ctx := mountFresh(t, 256, 64)
	blk := RootDirBlock(ctx)

	var d layout.Dirent
	d.Ino = 5
	d.SetName("hello")
	d.Encode(EntryView(blk, 2))

	slot, ino, ok := FindByName(ctx, "hello")
	require.True(t, ok)
	assert.Equal(t, 2, slot)
	assert.EqualValues(t, 5, ino)

	resolved, err := Resolve(ctx, "/hello")
	require.NoError(t, err)
	assert.EqualValues(t, 5, resolved)
}
