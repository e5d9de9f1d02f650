// Package common holds the block/inode number types shared across the
// mounted-volume packages, the way a small shared constants package
// anchors log and inode numbering in a journaled file system.
package common

// Bnum identifies a block within the image; Inum identifies a slot in
// the inode table. Both are plain numeric types rather than structs
// since neither carries sub-block offset information the way an
// address type would for a journaled object.
type Bnum = uint32
type Inum = uint32

const (
	// NullBnum never appears as a live block pointer; a zeroed inode
	// uses it to mean "no block here yet".
	NullBnum Bnum = 0
	// RootInum is the always-allocated root directory inode.
	RootInum Inum = 0
)
