// Package vsfsctx is the mounted-volume handle: the mapped image plus
// derived views into its superblock, both bitmaps, and the inode
// table.
//
// Grounded on other_examples/mit-pdos-go-nfsd__super.go's FsSuper,
// which derives every region's start block from a handful of stored
// constants (NBlockBitmap, NInodeBitmap, nInodeBlk); vsfs's regions
// are fixed at format time instead of computed from a buffer-cache
// size, so Context reads them straight out of the decoded superblock.
// The context is passed as an explicit receiver rather than stashed
// in a process-wide static.
package vsfsctx

import (
	"fmt"

	"vsfs/bitmap"
	"vsfs/image"
	"vsfs/layout"
)

// Context is the pairing of an open image, its mapping, and the
// derived pointers into it: the mounted volume.
type Context struct {
	Img         *image.Image
	InodeBitmap *bitmap.Bitmap
	DataBitmap  *bitmap.Bitmap
}

// Mount opens path, maps it, and validates the superblock magic. The
// returned Context owns the mapping until Unmount is called.
func Mount(path string) (*Context, error) {
	im, err := image.Open(path)
	if err != nil {
		return nil, err
	}

	sb := layout.DecodeSuperblock(im.Block(layout.SuperblockNum))
	if sb.Magic != layout.Magic {
		im.Close()
		return nil, fmt.Errorf("vsfsctx: %s does not contain a vsfs volume (bad magic)", path)
	}
	if sb.Size != uint64(im.Size()) {
		im.Close()
		return nil, fmt.Errorf("vsfsctx: superblock size %d does not match image size %d", sb.Size, im.Size())
	}

	ib := bitmap.New(im.Block(layout.InodeBitmapNum), sb.NumInodes)
	db := bitmap.New(im.Block(layout.DataBitmapNum), sb.NumBlocks)

	return &Context{Img: im, InodeBitmap: ib, DataBitmap: db}, nil
}

// Unmount releases the mapping and any derived state.
func (c *Context) Unmount() error {
	return c.Img.Close()
}

// Superblock decodes the current superblock (block 0).
func (c *Context) Superblock() layout.Superblock {
	return layout.DecodeSuperblock(c.Img.Block(layout.SuperblockNum))
}

// PutSuperblock writes sb back to block 0.
func (c *Context) PutSuperblock(sb layout.Superblock) {
	sb.Encode(c.Img.Block(layout.SuperblockNum))
}

// InodeView borrows inode inum's record directly out of the mapping;
// writes through the returned slice are visible immediately, the
// "view" form the design notes call for.
func (c *Context) InodeView(inum uint32) []byte {
	blk, off := layout.InodeLocation(inum)
	b := c.Img.Block(blk)
	return b[off : off+layout.InodeSize]
}

// ReadInode decodes a copy of inode inum, safe to mutate without
// affecting the on-disk record until WriteInode is called.
func (c *Context) ReadInode(inum uint32) layout.Inode {
	return layout.DecodeInode(c.InodeView(inum))
}

// WriteInode encodes ino back over inode inum's record.
func (c *Context) WriteInode(inum uint32, ino layout.Inode) {
	ino.Encode(c.InodeView(inum))
}

// DataBlock returns the view of absolute block number bn. Direct and
// indirect pointers stored in an inode are absolute block numbers into
// the whole image (the same numbering space the data bitmap covers),
// not offsets relative to the data region.
func (c *Context) DataBlock(bn uint32) []byte {
	return c.Img.Block(bn)
}
