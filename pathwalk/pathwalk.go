// Package pathwalk resolves absolute paths within vsfs's flat,
// single-directory namespace and provides the linear directory-block
// scan that path resolution, create, unlink and readdir all share.
//
// Grounded on original_source/src/vsfs.c's path_lookup (exact
// semantics: reject non-absolute paths, "/" is the root, otherwise a
// linear scan of the root block comparing raw name bytes), shaped the
// way jnwhiteh-minixfs/fs/dirops.go structures a directory scan as a
// small set of composable helpers instead of one monolithic function.
package pathwalk

import (
	"strings"

	"vsfs/common"
	"vsfs/layout"
	"vsfs/vsfserr"
	"vsfs/vsfsctx"
)

// RootDirBlock returns the view of the root directory's single data
// block; a directory owns exactly one data block.
func RootDirBlock(ctx *vsfsctx.Context) []byte {
	root := ctx.ReadInode(common.RootInum)
	return ctx.DataBlock(root.Direct[0])
}

// EntryView returns the byte range of directory-entry slot idx within
// a directory block.
func EntryView(blk []byte, idx int) []byte {
	return blk[idx*layout.DirentSize : (idx+1)*layout.DirentSize]
}

// Resolve translates an absolute path into an inode number. Only "/"
// and "/NAME" (a single path component) are legal; the kernel bridge
// guarantees it never asks vsfs to resolve anything deeper, since the
// namespace is flat.
func Resolve(ctx *vsfsctx.Context, path string) (uint32, error) {
	if path == "/" {
		return common.RootInum, nil
	}
	if len(path) == 0 || path[0] != '/' || strings.Contains(path[1:], "/") {
		return 0, vsfserr.NotFound
	}

	name := path[1:]
	slot, ino, ok := FindByName(ctx, name)
	_ = slot
	if !ok {
		return 0, vsfserr.NotFound
	}
	return ino, nil
}

// FindByName scans the root directory block for an entry whose name
// matches name exactly (raw byte comparison), and reports its slot
// index and inode number.
func FindByName(ctx *vsfsctx.Context, name string) (slot int, ino uint32, ok bool) {
	blk := RootDirBlock(ctx)
	for i := 0; i < layout.DirentsPerBlock; i++ {
		d := layout.DecodeDirent(EntryView(blk, i))
		if d.Ino != layout.InoMax && d.DirentName() == name {
			return i, d.Ino, true
		}
	}
	return 0, 0, false
}

// FindFreeSlot scans the root directory block for the first entry
// whose inode field is InoMax (a free slot).
func FindFreeSlot(ctx *vsfsctx.Context) (slot int, ok bool) {
	blk := RootDirBlock(ctx)
	for i := 0; i < layout.DirentsPerBlock; i++ {
		d := layout.DecodeDirent(EntryView(blk, i))
		if d.Ino == layout.InoMax {
			return i, true
		}
	}
	return 0, false
}
