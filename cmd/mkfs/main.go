// Command mkfs formats a pre-sized image file into an empty vsfs
// volume.
package main

import (
	"flag"
	"fmt"
	"os"

	"vsfs/mkfs"
)

func ferr(f string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, f, a...)
}

func usage() {
	ferr("usage: mkfs -i N [-f] [-z] IMAGE\n")
	flag.PrintDefaults()
}

func main() {
	var nInodes uint
	var force bool
	var zero bool
	var help bool

	flag.UintVar(&nInodes, "i", 0, "number of inodes to allocate")
	flag.BoolVar(&force, "f", false, "overwrite an existing volume")
	flag.BoolVar(&zero, "z", false, "zero the image before formatting")
	flag.BoolVar(&help, "h", false, "show this help message")
	flag.Parse()

	if help {
		usage()
		os.Exit(0)
	}

	if nInodes == 0 {
		ferr("mkfs: -i is required\n")
		usage()
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) != 1 {
		ferr("mkfs: exactly one image path is required\n")
		usage()
		os.Exit(1)
	}

	err := mkfs.Format(args[0], uint32(nInodes), mkfs.Options{Force: force, Zero: zero})
	if err != nil {
		ferr("mkfs: %v\n", err)
		os.Exit(1)
	}
}
