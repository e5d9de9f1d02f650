// Package mkfs formats a pre-sized, already-existing image file into a
// valid empty vsfs volume.
//
// Grounded on original_source/src/mkfs.c step for step: fill-then-init
// both bitmaps, mark the fixed metadata blocks and the inode table
// allocated, allocate and populate the root directory's single data
// block, and write the superblock last so a failure never leaves a
// half-written superblock over a previously valid volume.
package mkfs

import (
	"fmt"
	"log"
	"time"

	"vsfs/bitmap"
	"vsfs/common"
	"vsfs/image"
	"vsfs/layout"
)

// debug is the verbosity threshold for dprintf; the formatter only logs
// at level 0, so raising it shows nothing more.
const debug uint64 = 0

func dprintf(level uint64, format string, a ...interface{}) {
	if level <= debug {
		log.Printf(format, a...)
	}
}

// Options controls formatting behavior beyond the required inode
// count, mirroring mkfs.c's -f/-z flags.
type Options struct {
	Force bool // overwrite an existing volume
	Zero  bool // zero the image before formatting
}

// IsPresent reports whether im already contains a formatted vsfs
// volume, by checking block 0's magic field.
func IsPresent(im *image.Image) bool {
	sb := layout.DecodeSuperblock(im.Block(layout.SuperblockNum))
	return sb.Magic == layout.Magic
}

// Format formats the image at path into an empty vsfs volume with
// nInodes inodes. It refuses to overwrite a present volume unless
// opts.Force is set, and validates n_inodes/image size before writing
// anything so a rejected format leaves the image untouched.
func Format(path string, nInodes uint32, opts Options) error {
	im, err := image.Open(path)
	if err != nil {
		return err
	}
	defer im.Close()

	nblks := uint32(im.Size() / layout.BlockSize)

	if nInodes == 0 || nInodes >= layout.InoMax || nInodes > layout.MaxInodes {
		return fmt.Errorf("mkfs: invalid inode count %d", nInodes)
	}
	if nblks < layout.BlkMin || nblks > layout.BlkMax {
		return fmt.Errorf("mkfs: image has %d blocks, out of admissible range [%d, %d]", nblks, layout.BlkMin, layout.BlkMax)
	}

	if !opts.Force && IsPresent(im) {
		return fmt.Errorf("mkfs: %s already contains a vsfs volume; use -f to overwrite", path)
	}

	tableBlocks := layout.InodeTableBlocks(nInodes)
	dataRegion := layout.InodeTableStart + tableBlocks
	if dataRegion >= nblks {
		return fmt.Errorf("mkfs: %d inodes need %d inode-table blocks, leaving no room for data in a %d-block image", nInodes, tableBlocks, nblks)
	}

	if opts.Zero {
		for i := range im.Bytes {
			im.Bytes[i] = 0
		}
	}

	dprintf(0, "mkfs: formatting %s: %d blocks, %d inodes, %d inode-table blocks\n", path, nblks, nInodes, tableBlocks)

	// Step 3: inode bitmap. Fill with 1s so bits outside [0, nInodes)
	// stay marked allocated, then clear the legal range.
	ib := bitmap.New(im.Block(layout.InodeBitmapNum), nInodes)
	fill(ib, nInodes)
	ib.Init(nInodes)

	// Step 4: data bitmap, same fill-then-init, then mark the fixed
	// metadata blocks (superblock, both bitmaps, inode table)
	// allocated.
	db := bitmap.New(im.Block(layout.DataBitmapNum), nblks)
	fill(db, nblks)
	db.Init(nblks)
	db.Set(layout.SuperblockNum, true)
	db.Set(layout.InodeBitmapNum, true)
	db.Set(layout.DataBitmapNum, true)
	for i := uint32(0); i < tableBlocks; i++ {
		db.Set(layout.InodeTableStart+i, true)
	}

	// Step 5: mark the root inode allocated.
	ib.Set(common.RootInum, true)

	// Step 6: initialize the root inode.
	now := time.Now()
	root := layout.Inode{
		Mode:      layout.ModeDir | 0777,
		Nlink:     2,
		Size:      layout.BlockSize,
		Blocks:    1,
		MtimeSec:  now.Unix(),
		MtimeNsec: int64(now.Nanosecond()),
	}

	// Step 7: allocate the root directory's one data block.
	rootBlk, ok := db.Alloc(nblks)
	if !ok {
		return fmt.Errorf("mkfs: no free data block for the root directory")
	}
	root.Direct[0] = rootBlk

	// Step 8: populate the root directory block: "." and "..", both
	// pointing at inode 0, then mark the remaining slots free.
	dirBlk := im.Block(rootBlk)
	writeDirent(dirBlk, 0, common.RootInum, ".")
	writeDirent(dirBlk, 1, common.RootInum, "..")
	for i := 2; i < layout.DirentsPerBlock; i++ {
		writeDirent(dirBlk, i, layout.InoMax, "")
	}

	blk, off := layout.InodeLocation(common.RootInum)
	itableBlk := im.Block(blk)
	root.Encode(itableBlk[off : off+layout.InodeSize])

	// Step 9: write the superblock last, so a failure anywhere above
	// this point leaves any prior volume's superblock untouched.
	sb := layout.Superblock{
		Magic:      layout.Magic,
		Size:       uint64(im.Size()),
		NumInodes:  nInodes,
		FreeInodes: nInodes - 1,
		NumBlocks:  nblks,
		FreeBlocks: nblks - dataRegion - 1, // everything before the data region, plus the root dir block
		DataRegion: dataRegion,
	}
	sb.Encode(im.Block(layout.SuperblockNum))

	return nil
}

func fill(b *bitmap.Bitmap, nbits uint32) {
	for i := uint32(0); i < nbits; i++ {
		b.Set(i, true)
	}
	// also fill the tail of the block so any stray higher bit reads as
	// allocated even before Init narrows Nbits down.
	for i := nbits; i < layout.BlockSize*8; i++ {
		b.Set(i, true)
	}
}

func writeDirent(blk []byte, slot int, ino uint32, name string) {
	var d layout.Dirent
	d.Ino = ino
	d.SetName(name)
	d.Encode(blk[slot*layout.DirentSize : (slot+1)*layout.DirentSize])
}
