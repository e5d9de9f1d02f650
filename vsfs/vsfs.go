// Package vsfs implements the file operations invoked by a kernel
// bridge: getattr, readdir, create, unlink, truncate, read, write,
// utimens and statfs, plus the block-addressing function they all
// funnel through.
//
// Grounded on original_source/src/vsfs.c's operation bodies, translated
// from FUSE's void*/errno-return style to Go functions over an explicit
// *vsfsctx.Context receiver, styled after jnwhiteh-minixfs/fs/syscalls.go's
// separation of one function per POSIX call.
package vsfs

import (
	"log"
	"time"

	"vsfs/common"
	"vsfs/layout"
	"vsfs/pathwalk"
	"vsfs/vsfserr"
	"vsfs/vsfsctx"
)

// debug is the verbosity threshold for dprintf; at 1 it logs entry to
// create/unlink/truncate/write, and raising it to 5 adds the allocator
// detail logged by create and unlink.
const debug uint64 = 1

func dprintf(level uint64, format string, a ...interface{}) {
	if level <= debug {
		log.Printf(format, a...)
	}
}

// roundUpBlocks returns ceil(n / sz), used to convert a byte size into
// a block count.
func roundUpBlocks(n, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func minU64(n, m uint64) uint64 {
	if n < m {
		return n
	}
	return m
}

// Statvfs is the subset of struct statvfs that statfs reports.
type Statvfs struct {
	Bsize   uint32
	Blocks  uint32
	Bfree   uint32
	Files   uint32
	Ffree   uint32
	NameMax uint32
}

// Stat is the subset of struct stat that getattr reports.
type Stat struct {
	Mode   uint32
	Nlink  uint32
	Size   uint64
	Blocks uint64 // 512-byte units
	Mtime  time.Time
}

// Statfs reports global volume statistics. It takes no path, since the
// result is the same for every path, and it never fails.
func Statfs(ctx *vsfsctx.Context) Statvfs {
	sb := ctx.Superblock()
	return Statvfs{
		Bsize:   layout.BlockSize,
		Blocks:  sb.NumBlocks,
		Bfree:   sb.FreeBlocks,
		Files:   sb.NumInodes,
		Ffree:   sb.FreeInodes,
		NameMax: layout.NameMax,
	}
}

// Getattr resolves path and reports its inode's attributes.
func Getattr(ctx *vsfsctx.Context, path string) (Stat, error) {
	if len(path) >= layout.NameMax+1 {
		return Stat{}, vsfserr.NameTooLong
	}
	ino, err := pathwalk.Resolve(ctx, path)
	if err != nil {
		return Stat{}, err
	}
	inode := ctx.ReadInode(ino)
	return Stat{
		Mode:   inode.Mode,
		Nlink:  inode.Nlink,
		Size:   inode.Size,
		Blocks: roundUpBlocks(inode.Size, 512),
		Mtime:  time.Unix(inode.MtimeSec, inode.MtimeNsec),
	}, nil
}

// DirSink receives one directory-entry name per call and reports
// whether it accepted it; returning false signals "full", matching
// FUSE's filler() contract.
type DirSink func(name string) (accepted bool)

// Readdir walks the root directory ("/" is the only legal path)
// yielding each live entry's name to sink. Entries "." and ".." are
// hidden, matching a driver whose create never injects them for new
// files.
func Readdir(ctx *vsfsctx.Context, path string, sink DirSink) error {
	blk := pathwalk.RootDirBlock(ctx)
	for i := 0; i < layout.DirentsPerBlock; i++ {
		d := layout.DecodeDirent(pathwalk.EntryView(blk, i))
		if d.Ino == layout.InoMax {
			continue
		}
		name := d.DirentName()
		if name == "." || name == ".." {
			continue
		}
		if !sink(name) {
			return vsfserr.OutOfMemory
		}
	}
	return nil
}

// baseName returns the final path component of an absolute
// single-level path (e.g. "/hello" -> "hello").
func baseName(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path[1:]
	}
	return path
}

// Create allocates a new regular-file (or, in principle, other-mode)
// inode named by path's final component and links it into the root
// directory. The bridge guarantees path does not already exist and
// that its parent (the root) does.
func Create(ctx *vsfsctx.Context, path string, mode uint32) error {
	dprintf(1, "vsfs: create %s mode %o\n", path, mode)
	name := baseName(path)
	if len(name) >= layout.NameMax {
		return vsfserr.NameTooLong
	}

	sb := ctx.Superblock()
	if sb.FreeInodes == 0 {
		return vsfserr.NoSpace
	}
	slot, ok := pathwalk.FindFreeSlot(ctx)
	if !ok {
		return vsfserr.NoSpace
	}

	inum, ok := ctx.InodeBitmap.Alloc(sb.NumInodes)
	if !ok {
		return vsfserr.NoSpace
	}
	sb.FreeInodes--
	dprintf(5, "vsfs: create %s allocated inode %d, free_inodes %d -> %d\n", path, inum, sb.FreeInodes+1, sb.FreeInodes)

	now := time.Now()
	inode := layout.Inode{
		Mode:      mode,
		Nlink:     1,
		Size:      0,
		Blocks:    0,
		MtimeSec:  now.Unix(),
		MtimeNsec: int64(now.Nanosecond()),
	}
	ctx.WriteInode(inum, inode)

	blk := pathwalk.RootDirBlock(ctx)
	var d layout.Dirent
	d.Ino = inum
	d.SetName(name)
	d.Encode(pathwalk.EntryView(blk, slot))

	root := ctx.ReadInode(common.RootInum)
	root.MtimeSec = now.Unix()
	root.MtimeNsec = int64(now.Nanosecond())
	ctx.WriteInode(common.RootInum, root)

	ctx.PutSuperblock(sb)
	return nil
}

// freeInodeBlocks releases every data block (and, if present, the
// indirect block itself) an inode owns, and returns how many blocks
// were freed.
func freeInodeBlocks(ctx *vsfsctx.Context, inode layout.Inode) uint32 {
	var freed uint32
	direct := minU64(uint64(inode.Blocks), layout.Direct)
	for i := uint64(0); i < direct; i++ {
		ctx.DataBitmap.Free(inode.Direct[i])
		freed++
	}
	if inode.Blocks > layout.Direct {
		indirectBlk := ctx.DataBlock(inode.Indirect)
		n := inode.Blocks - layout.Direct
		for i := uint32(0); i < n; i++ {
			bn := decodeIndirectEntry(indirectBlk, i)
			ctx.DataBitmap.Free(bn)
			freed++
		}
		ctx.DataBitmap.Free(inode.Indirect)
		freed++
	}
	return freed
}

// Unlink removes the directory entry named by path's final component
// and drops its inode's link count, destroying the inode (and its
// data blocks) once the count reaches zero.
func Unlink(ctx *vsfsctx.Context, path string) error {
	dprintf(1, "vsfs: unlink %s\n", path)
	name := baseName(path)
	slot, inum, ok := pathwalk.FindByName(ctx, name)
	if !ok {
		return vsfserr.NotFound
	}

	inode := ctx.ReadInode(inum)
	inode.Nlink--

	sb := ctx.Superblock()
	if inode.Nlink == 0 {
		freed := freeInodeBlocks(ctx, inode)
		sb.FreeBlocks += freed
		ctx.InodeBitmap.Free(inum)
		sb.FreeInodes++
		inode = layout.Inode{}
		dprintf(5, "vsfs: unlink %s dropped last link, freed %d blocks and inode %d\n", path, freed, inum)
	}
	ctx.WriteInode(inum, inode)

	blk := pathwalk.RootDirBlock(ctx)
	var cleared layout.Dirent
	cleared.Ino = layout.InoMax
	cleared.Encode(pathwalk.EntryView(blk, slot))

	now := time.Now()
	root := ctx.ReadInode(common.RootInum)
	root.MtimeSec = now.Unix()
	root.MtimeNsec = int64(now.Nanosecond())
	ctx.WriteInode(common.RootInum, root)

	ctx.PutSuperblock(sb)
	return nil
}

// Truncate resizes the file named by path to newSize, allocating or
// freeing data blocks (and the indirect block, on the DIRECT+1
// boundary) as needed, and zeroing any newly exposed range.
func Truncate(ctx *vsfsctx.Context, path string, newSize uint64) error {
	dprintf(1, "vsfs: truncate %s to %d\n", path, newSize)
	newBlocks := uint32(roundUpBlocks(newSize, layout.BlockSize))
	if newBlocks > layout.MaxFileBlocks {
		return vsfserr.TooLarge
	}

	name := baseName(path)
	_, inum, ok := pathwalk.FindByName(ctx, name)
	if !ok {
		return vsfserr.NotFound
	}
	inode := ctx.ReadInode(inum)

	if newSize == inode.Size {
		return nil
	}

	sb := ctx.Superblock()

	if newBlocks > inode.Blocks {
		grown, err := growInode(ctx, &inode, newBlocks, &sb)
		if err != nil {
			// growInode has already returned any of its own partial
			// allocations to the free map before reporting failure.
			return err
		}
		sb.FreeBlocks -= grown
	} else if newBlocks < inode.Blocks {
		freed := shrinkInode(ctx, &inode, newBlocks)
		sb.FreeBlocks += freed
	}

	if newSize > inode.Size {
		zeroRange(ctx, &inode, inode.Size, newSize)
	}

	now := time.Now()
	inode.Size = newSize
	inode.Blocks = newBlocks
	inode.MtimeSec = now.Unix()
	inode.MtimeNsec = int64(now.Nanosecond())
	ctx.WriteInode(inum, inode)
	ctx.PutSuperblock(sb)
	return nil
}

// growInode allocates (target - inode.Blocks) data blocks, plus the
// indirect block if this call crosses the DIRECT boundary, appending
// them to inode.Direct/inode.Indirect in place. On failure it frees
// everything it allocated during this call before returning, leaving
// inode and the bitmaps as if the call never happened.
func growInode(ctx *vsfsctx.Context, inode *layout.Inode, target uint32, sb *layout.Superblock) (uint32, error) {
	var allocated []uint32
	allocatedIndirect := false

	rollback := func() {
		for i, bn := range allocated {
			ctx.DataBitmap.Free(bn)
			if cur := inode.Blocks + uint32(i); cur < layout.Direct {
				inode.Direct[cur] = common.NullBnum
			}
		}
		if allocatedIndirect {
			ctx.DataBitmap.Free(inode.Indirect)
			inode.Indirect = common.NullBnum
		}
	}

	needIndirect := target > layout.Direct && inode.Blocks <= layout.Direct
	if needIndirect {
		bn, ok := ctx.DataBitmap.Alloc(sb.NumBlocks)
		if !ok {
			rollback()
			return 0, vsfserr.NoSpace
		}
		inode.Indirect = bn
		allocatedIndirect = true
	}

	var indirectBlk []byte
	if inode.Indirect != common.NullBnum {
		indirectBlk = ctx.DataBlock(inode.Indirect)
	}

	for cur := inode.Blocks; cur < target; cur++ {
		bn, ok := ctx.DataBitmap.Alloc(sb.NumBlocks)
		if !ok {
			rollback()
			return 0, vsfserr.NoSpace
		}
		allocated = append(allocated, bn)
		if cur < layout.Direct {
			inode.Direct[cur] = bn
		} else {
			encodeIndirectEntry(indirectBlk, cur-layout.Direct, bn)
		}
	}

	total := uint32(len(allocated))
	if allocatedIndirect {
		total++
	}
	return total, nil
}

// shrinkInode frees the tail blocks from inode.Blocks down to target,
// in reverse order, and releases the indirect block itself once the
// file drops to DIRECT or fewer blocks.
func shrinkInode(ctx *vsfsctx.Context, inode *layout.Inode, target uint32) uint32 {
	var freed uint32
	var indirectBlk []byte
	if inode.Indirect != common.NullBnum {
		indirectBlk = ctx.DataBlock(inode.Indirect)
	}

	for cur := inode.Blocks; cur > target; cur-- {
		idx := cur - 1
		if idx < layout.Direct {
			ctx.DataBitmap.Free(inode.Direct[idx])
			inode.Direct[idx] = common.NullBnum
		} else {
			bn := decodeIndirectEntry(indirectBlk, idx-layout.Direct)
			ctx.DataBitmap.Free(bn)
		}
		freed++
	}

	if target <= layout.Direct && inode.Blocks > layout.Direct {
		ctx.DataBitmap.Free(inode.Indirect)
		inode.Indirect = common.NullBnum
		freed++
	}
	return freed
}

// zeroRange zeros bytes [from, to) of inode's data, covering the tail
// of the last block already allocated at from and every newly
// allocated block up to to.
func zeroRange(ctx *vsfsctx.Context, inode *layout.Inode, from, to uint64) {
	for off := from; off < to; {
		blkStart := (off / layout.BlockSize) * layout.BlockSize
		blkEnd := blkStart + layout.BlockSize
		end := minU64(to, blkEnd)

		bn := blockNumber(ctx, inode, uint32(off/layout.BlockSize))
		blk := ctx.DataBlock(bn)
		r0 := off % layout.BlockSize
		r1 := end - blkStart
		for i := r0; i < r1; i++ {
			blk[i] = 0
		}
		off = end
	}
}

// blockNumber resolves the b-th logical block of inode to an absolute
// block number.
func blockNumber(ctx *vsfsctx.Context, inode *layout.Inode, b uint32) uint32 {
	if b < layout.Direct {
		return inode.Direct[b]
	}
	indirectBlk := ctx.DataBlock(inode.Indirect)
	return decodeIndirectEntry(indirectBlk, b-layout.Direct)
}

// Address resolves (inode, offset) to the byte range within its data
// block. The caller (kernel bridge) guarantees [offset, offset+size)
// lies within a single block.
func Address(ctx *vsfsctx.Context, inode layout.Inode, offset uint64) []byte {
	b := uint32(offset / layout.BlockSize)
	r := offset % layout.BlockSize
	bn := blockNumber(ctx, &inode, b)
	return ctx.DataBlock(bn)[r:]
}

// Read copies up to size bytes starting at offset from the file named
// by path, returning fewer than size bytes at EOF.
func Read(ctx *vsfsctx.Context, path string, size uint64, offset uint64) ([]byte, error) {
	name := baseName(path)
	_, inum, ok := pathwalk.FindByName(ctx, name)
	if !ok {
		return nil, vsfserr.NotFound
	}
	inode := ctx.ReadInode(inum)

	if offset >= inode.Size {
		return nil, nil
	}
	n := minU64(size, inode.Size-offset)
	src := Address(ctx, inode, offset)
	out := make([]byte, n)
	copy(out, src[:n])
	return out, nil
}

// Write copies buf into the file named by path at offset, extending
// (and zero-filling) the file first if the write would grow it.
func Write(ctx *vsfsctx.Context, path string, buf []byte, offset uint64) (uint64, error) {
	dprintf(1, "vsfs: write %s %d bytes at offset %d\n", path, len(buf), offset)
	name := baseName(path)
	_, inum, ok := pathwalk.FindByName(ctx, name)
	if !ok {
		return 0, vsfserr.NotFound
	}
	inode := ctx.ReadInode(inum)

	if offset > inode.Size {
		return 0, vsfserr.TooLarge
	}

	size := uint64(len(buf))
	if offset+size > inode.Size {
		if err := Truncate(ctx, path, offset+size); err != nil {
			return 0, err
		}
		inode = ctx.ReadInode(inum)
	}

	dst := Address(ctx, inode, offset)
	copy(dst[:size], buf)

	now := time.Now()
	inode.MtimeSec = now.Unix()
	inode.MtimeNsec = int64(now.Nanosecond())
	ctx.WriteInode(inum, inode)

	return size, nil
}

// TimeSpec mirrors the bridge's utimens argument: either OMIT (leave
// unchanged), NOW (wall-clock time), or an explicit (seconds,
// nanoseconds) pair.
type TimeSpec struct {
	Omit bool
	Now  bool
	Sec  int64
	Nsec int64
}

// Utimens updates the mtime of the file named by path.
func Utimens(ctx *vsfsctx.Context, path string, ts TimeSpec) error {
	if ts.Omit {
		return nil
	}
	ino, err := pathwalk.Resolve(ctx, path)
	if err != nil {
		return err
	}
	inode := ctx.ReadInode(ino)
	if ts.Now {
		now := time.Now()
		inode.MtimeSec = now.Unix()
		inode.MtimeNsec = int64(now.Nanosecond())
	} else {
		inode.MtimeSec = ts.Sec
		inode.MtimeNsec = ts.Nsec
	}
	ctx.WriteInode(ino, inode)
	return nil
}

func encodeIndirectEntry(blk []byte, idx uint32, bn uint32) {
	off := idx * 4
	blk[off] = byte(bn)
	blk[off+1] = byte(bn >> 8)
	blk[off+2] = byte(bn >> 16)
	blk[off+3] = byte(bn >> 24)
}

func decodeIndirectEntry(blk []byte, idx uint32) uint32 {
	off := idx * 4
	return uint32(blk[off]) | uint32(blk[off+1])<<8 | uint32(blk[off+2])<<16 | uint32(blk[off+3])<<24
}
