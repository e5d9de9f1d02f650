// Package layout defines the compile-time constants and on-disk record
// layouts of a vsfs image: the superblock, the inode, and the directory
// entry, plus the fixed block-number conventions that place them in the
// image. It follows the style of a constants file that keeps every
// magic number in one place, generalized from log-relative block
// numbering to vsfs's superblock-relative numbering.
//
// All records are encoded little-endian via encoding/binary at a fixed
// byte offset, whatever the host's byte order; the encoding does not
// follow the native byte order of a big-endian host.
package layout

import "encoding/binary"

// BlockSize is the fixed size of every block in the image.
const BlockSize = 4096

// NameMax is the size of a directory entry's name field, including the
// trailing NUL, so the longest name an entry can hold is NameMax-1
// bytes.
const NameMax = 252

// Direct is the number of direct block pointers carried in an inode.
// It falls out of the fixed 128-byte inode record: 128 bytes minus the
// fixed header (mode, nlink, size, blocks, mtime) leaves room for
// exactly Direct+1 four-byte block numbers (Direct direct pointers plus
// the indirect pointer).
const Direct = 22

// indirectPtrsPerBlock is how many 4-byte block numbers fit in one
// indirect block.
const indirectPtrsPerBlock = BlockSize / 4

// MaxFileBlocks is the largest number of data blocks a single file may
// own: Direct direct blocks plus a full indirect block's worth.
const MaxFileBlocks = Direct + indirectPtrsPerBlock

// InoMax is the sentinel inode number marking a free directory-entry
// slot. It is never a legal inode number.
const InoMax uint32 = 0xFFFFFFFF

// MaxInodes bounds how many inodes a single-block inode bitmap can
// track; the formatter enforces this in addition to the InoMax bound,
// since the inode bitmap occupies exactly one block.
const MaxInodes = BlockSize * 8

// BlkMin/BlkMax bound admissible image sizes, in blocks. BlkMin is the
// smallest image that can hold a superblock, both bitmaps, one inode
// table block, and one root directory data block. BlkMax is bounded by
// the data bitmap occupying exactly one block (BlockSize*8 addressable
// bits).
const (
	BlkMin = 5
	BlkMax = BlockSize * 8
)

// Magic identifies a formatted vsfs image ("vsfs" packed into a
// uint32).
const Magic uint32 = 0x76736673

// InodeSize is the fixed on-disk size of one inode record.
const InodeSize = 128

// DirentSize is the fixed on-disk size of one directory entry.
const DirentSize = 256

// InodesPerBlock is how many inode records fit in one block.
const InodesPerBlock = BlockSize / InodeSize

// DirentsPerBlock is how many directory entries fit in one block.
const DirentsPerBlock = BlockSize / DirentSize

// Fixed block-number conventions, set at format time.
const (
	SuperblockNum   uint32 = 0
	InodeBitmapNum  uint32 = 1
	DataBitmapNum   uint32 = 2
	InodeTableStart uint32 = 3
)

// Mode bits. vsfs only ever distinguishes regular files from
// directories; permission bits are stored but never enforced.
const (
	ModeFmt     uint32 = 0o170000
	ModeDir     uint32 = 0o040000
	ModeRegular uint32 = 0o100000
)

// IsDir reports whether mode names a directory.
func IsDir(mode uint32) bool { return mode&ModeFmt == ModeDir }

// IsRegular reports whether mode names a regular file.
func IsRegular(mode uint32) bool { return mode&ModeFmt == ModeRegular }

// InodeTableBlocks returns the number of blocks needed to hold nInodes
// inode records, rounded up.
func InodeTableBlocks(nInodes uint32) uint32 {
	return (nInodes + InodesPerBlock - 1) / InodesPerBlock
}

// InodeLocation returns the block number and byte offset within that
// block of inode inum's record. Shared by the formatter (which has no
// mounted Context yet) and vsfsctx.Context.
func InodeLocation(inum uint32) (blk uint32, off int) {
	blk = InodeTableStart + inum/InodesPerBlock
	off = int(inum%InodesPerBlock) * InodeSize
	return
}

// Superblock is the copy form of block 0: global parameters and the
// running free-space counters.
type Superblock struct {
	Magic      uint32
	Size       uint64 // image size in bytes
	NumInodes  uint32
	FreeInodes uint32
	NumBlocks  uint32
	FreeBlocks uint32
	DataRegion uint32 // first data-region block number
}

// Encode writes sb's byte-exact representation into dst, which must be
// at least SuperblockEncodedSize (32) bytes.
func (sb *Superblock) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], sb.Magic)
	binary.LittleEndian.PutUint64(dst[4:12], sb.Size)
	binary.LittleEndian.PutUint32(dst[12:16], sb.NumInodes)
	binary.LittleEndian.PutUint32(dst[16:20], sb.FreeInodes)
	binary.LittleEndian.PutUint32(dst[20:24], sb.NumBlocks)
	binary.LittleEndian.PutUint32(dst[24:28], sb.FreeBlocks)
	binary.LittleEndian.PutUint32(dst[28:32], sb.DataRegion)
}

// DecodeSuperblock parses a Superblock out of src (a view into block 0).
func DecodeSuperblock(src []byte) Superblock {
	var sb Superblock
	sb.Magic = binary.LittleEndian.Uint32(src[0:4])
	sb.Size = binary.LittleEndian.Uint64(src[4:12])
	sb.NumInodes = binary.LittleEndian.Uint32(src[12:16])
	sb.FreeInodes = binary.LittleEndian.Uint32(src[16:20])
	sb.NumBlocks = binary.LittleEndian.Uint32(src[20:24])
	sb.FreeBlocks = binary.LittleEndian.Uint32(src[24:28])
	sb.DataRegion = binary.LittleEndian.Uint32(src[28:32])
	return sb
}

// SuperblockEncodedSize is how many bytes Encode/DecodeSuperblock
// touch; the rest of block 0 is unused padding.
const SuperblockEncodedSize = 32

// Inode is the copy form of one inode-table record.
type Inode struct {
	Mode      uint32
	Nlink     uint32
	Size      uint64
	Blocks    uint32
	MtimeSec  int64
	MtimeNsec int64
	Direct    [Direct]uint32
	Indirect  uint32
}

// Encode writes ino's byte-exact representation into dst, which must be
// at least InodeSize bytes.
func (ino *Inode) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], ino.Mode)
	binary.LittleEndian.PutUint32(dst[4:8], ino.Nlink)
	binary.LittleEndian.PutUint64(dst[8:16], ino.Size)
	binary.LittleEndian.PutUint32(dst[16:20], ino.Blocks)
	binary.LittleEndian.PutUint64(dst[20:28], uint64(ino.MtimeSec))
	binary.LittleEndian.PutUint64(dst[28:36], uint64(ino.MtimeNsec))
	off := 36
	for i := 0; i < Direct; i++ {
		binary.LittleEndian.PutUint32(dst[off:off+4], ino.Direct[i])
		off += 4
	}
	binary.LittleEndian.PutUint32(dst[off:off+4], ino.Indirect)
}

// DecodeInode parses an Inode out of src (a view into the inode table).
func DecodeInode(src []byte) Inode {
	var ino Inode
	ino.Mode = binary.LittleEndian.Uint32(src[0:4])
	ino.Nlink = binary.LittleEndian.Uint32(src[4:8])
	ino.Size = binary.LittleEndian.Uint64(src[8:16])
	ino.Blocks = binary.LittleEndian.Uint32(src[16:20])
	ino.MtimeSec = int64(binary.LittleEndian.Uint64(src[20:28]))
	ino.MtimeNsec = int64(binary.LittleEndian.Uint64(src[28:36]))
	off := 36
	for i := 0; i < Direct; i++ {
		ino.Direct[i] = binary.LittleEndian.Uint32(src[off : off+4])
		off += 4
	}
	ino.Indirect = binary.LittleEndian.Uint32(src[off : off+4])
	return ino
}

// Dirent is the copy form of one directory-entry slot.
type Dirent struct {
	Ino  uint32
	Name [NameMax]byte
}

// Encode writes d's byte-exact representation into dst, which must be
// at least DirentSize bytes.
func (d *Dirent) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], d.Ino)
	copy(dst[4:4+NameMax], d.Name[:])
}

// DecodeDirent parses a Dirent out of src (a view into a directory
// data block).
func DecodeDirent(src []byte) Dirent {
	var d Dirent
	d.Ino = binary.LittleEndian.Uint32(src[0:4])
	copy(d.Name[:], src[4:4+NameMax])
	return d
}

// DirentName returns the entry's name as a Go string, truncated at the
// first NUL byte.
func (d *Dirent) DirentName() string {
	n := 0
	for n < len(d.Name) && d.Name[n] != 0 {
		n++
	}
	return string(d.Name[:n])
}

// SetName packs name into d.Name, zero-padding the remainder. It
// panics if name (plus its NUL terminator) doesn't fit in NameMax
// bytes; callers must check length first (see vsfs.Create).
func (d *Dirent) SetName(name string) {
	if len(name) >= NameMax {
		panic("layout: name too long for a dirent")
	}
	var buf [NameMax]byte
	copy(buf[:], name)
	d.Name = buf
}
