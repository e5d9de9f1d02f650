// Package image maps a pre-sized vsfs image file into memory. It is the
// leaf-most component: the rest of the mounted-volume stack only ever
// sees the contiguous byte region it exposes.
//
// Grounded on a disk-backed component that opens a backing file with
// golang.org/x/sys/unix and serves block reads/writes with
// Pread/Pwrite. vsfs has no buffer cache and no journal, so instead of
// per-block I/O the whole image is mapped once with unix.Mmap and
// handed out as a single []byte, memory-mapped by the running process.
package image

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"vsfs/layout"
)

// Image is an open, memory-mapped vsfs image file.
type Image struct {
	file  *os.File
	Bytes []byte // the whole mapped region
}

// Open maps path into memory. The file must already exist and be a
// whole number of layout.BlockSize blocks; image creation and sizing
// are the caller's responsibility.
func Open(path string) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := st.Size()
	if size == 0 || size%layout.BlockSize != 0 {
		f.Close()
		return nil, fmt.Errorf("image: %s is not a whole number of %d-byte blocks (size %d)", path, layout.BlockSize, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("image: mmap %s: %w", path, err)
	}

	return &Image{file: f, Bytes: data}, nil
}

// Size returns the size of the mapped image, in bytes.
func (im *Image) Size() int64 {
	return int64(len(im.Bytes))
}

// Block returns the region of the mapping covering block bn.
func (im *Image) Block(bn uint32) []byte {
	off := uint64(bn) * layout.BlockSize
	return im.Bytes[off : off+layout.BlockSize]
}

// Close flushes the mapping's dirty pages to the backing file and
// releases both the mapping and the file descriptor. vsfs provides no
// explicit write barrier during normal operation and relies on the OS
// page cache to flush on unmap; Msync here makes that flush happen
// synchronously instead of leaving it to page reclaim.
func (im *Image) Close() error {
	if im.Bytes == nil {
		return nil
	}
	if err := unix.Msync(im.Bytes, unix.MS_SYNC); err != nil {
		unix.Munmap(im.Bytes)
		im.Bytes = nil
		im.file.Close()
		return fmt.Errorf("image: msync: %w", err)
	}
	err := unix.Munmap(im.Bytes)
	im.Bytes = nil
	if cerr := im.file.Close(); err == nil {
		err = cerr
	}
	return err
}
