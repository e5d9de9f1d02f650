// Package vsfserr defines the error kinds a file operation can return
// to the kernel bridge, each backed by a real POSIX errno from
// golang.org/x/sys/unix so the bridge can hand back exactly the
// negated value it expects.
//
// Grounded on jnwhiteh-minixfs/common/errors.go's package of named
// sentinel errors, adapted from hand-written Minix error strings to
// real POSIX errno constants, since the bridge contract requires
// negated POSIX numbers, not arbitrary strings.
package vsfserr

import (
	"golang.org/x/sys/unix"
)

// Error wraps a POSIX errno with the vsfs-level name for the kind of
// failure it represents.
type Error struct {
	Name  string
	Errno unix.Errno
}

func (e *Error) Error() string { return e.Name + ": " + e.Errno.Error() }

// Errno_ returns the negated POSIX error number the bridge contract
// expects on failure.
func (e *Error) Errno_() int { return -int(e.Errno) }

var (
	// NameTooLong: path length exceeds admissible bounds.
	NameTooLong = &Error{"NAME-TOO-LONG", unix.ENAMETOOLONG}
	// NotFound: path resolves to no entry.
	NotFound = &Error{"NOT-FOUND", unix.ENOENT}
	// NoSpace: inode or data bitmap has no free slot.
	NoSpace = &Error{"NO-SPACE", unix.ENOSPC}
	// TooLarge: requested size would exceed MaxFileBlocks*BlockSize.
	TooLarge = &Error{"TOO-LARGE", unix.EFBIG}
	// OutOfMemory: the directory-fill sink reported full.
	OutOfMemory = &Error{"OUT-OF-MEMORY", unix.ENOMEM}
)

// ToErrno extracts the negated POSIX errno from err for handing back
// to the kernel bridge, or 0 if err is nil.
func ToErrno(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := err.(*Error); ok {
		return e.Errno_()
	}
	return -int(unix.EIO)
}
