// Command vsfsd is the kernel bridge's driver: it mounts an image and
// runs a line-oriented command loop exercising the vsfs package's file
// operations, standing in for the actual FUSE bridge.
//
// Grounded on a read-command/dispatch loop and a per-syscall function
// grouping; the "info" command is a supplemented introspection feature.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"vsfs/layout"
	"vsfs/pathwalk"
	"vsfs/vsfs"
	"vsfs/vsfsctx"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: vsfsd [-h] IMAGE\n")
	flag.PrintDefaults()
}

func main() {
	var help bool
	flag.BoolVar(&help, "h", false, "show this help message")
	flag.Parse()

	if help {
		usage()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "vsfsd: missing image path\n")
		usage()
		os.Exit(1)
	}

	ctx, err := vsfsctx.Mount(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "vsfsd: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Unmount()

	runLoop(ctx, os.Stdin, os.Stdout)
}

func runLoop(ctx *vsfsctx.Context, in *os.File, out *os.File) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		dispatch(ctx, out, fields)
	}
}

func dispatch(ctx *vsfsctx.Context, out *os.File, args []string) {
	switch strings.ToLower(args[0]) {
	case "statfs":
		sv := vsfs.Statfs(ctx)
		fmt.Fprintf(out, "bsize=%d blocks=%d bfree=%d files=%d ffree=%d namemax=%d\n",
			sv.Bsize, sv.Blocks, sv.Bfree, sv.Files, sv.Ffree, sv.NameMax)

	case "stat":
		if len(args) != 2 {
			fmt.Fprintln(out, "usage: stat PATH")
			return
		}
		st, err := vsfs.Getattr(ctx, args[1])
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "mode=%o nlink=%d size=%d blocks=%d mtime=%s\n",
			st.Mode, st.Nlink, st.Size, st.Blocks, st.Mtime)

	case "readdir":
		if len(args) != 2 {
			fmt.Fprintln(out, "usage: readdir PATH")
			return
		}
		err := vsfs.Readdir(ctx, args[1], func(name string) bool {
			fmt.Fprintln(out, name)
			return true
		})
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}

	case "create":
		if len(args) != 2 {
			fmt.Fprintln(out, "usage: create PATH")
			return
		}
		if err := vsfs.Create(ctx, args[1], layout.ModeRegular|0644); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}

	case "unlink":
		if len(args) != 2 {
			fmt.Fprintln(out, "usage: unlink PATH")
			return
		}
		if err := vsfs.Unlink(ctx, args[1]); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}

	case "truncate":
		if len(args) != 3 {
			fmt.Fprintln(out, "usage: truncate PATH SIZE")
			return
		}
		size, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Fprintln(out, "usage: truncate PATH SIZE")
			return
		}
		if err := vsfs.Truncate(ctx, args[1], size); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}

	case "write":
		if len(args) != 4 {
			fmt.Fprintln(out, "usage: write PATH OFFSET DATA")
			return
		}
		offset, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Fprintln(out, "usage: write PATH OFFSET DATA")
			return
		}
		n, err := vsfs.Write(ctx, args[1], []byte(args[3]), offset)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "wrote %d bytes\n", n)

	case "read":
		if len(args) != 4 {
			fmt.Fprintln(out, "usage: read PATH OFFSET SIZE")
			return
		}
		offset, err1 := strconv.ParseUint(args[2], 10, 64)
		size, err2 := strconv.ParseUint(args[3], 10, 64)
		if err1 != nil || err2 != nil {
			fmt.Fprintln(out, "usage: read PATH OFFSET SIZE")
			return
		}
		data, err := vsfs.Read(ctx, args[1], size, offset)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "%q\n", data)

	case "info":
		if len(args) != 2 {
			fmt.Fprintln(out, "usage: info PATH")
			return
		}
		printInfo(ctx, out, args[1])

	default:
		fmt.Fprintf(out, "unknown command %q\n", args[0])
	}
}

// printInfo reports an inode's raw fields, a supplemented introspection
// command not part of the kernel bridge surface.
func printInfo(ctx *vsfsctx.Context, out *os.File, path string) {
	inum, err := pathwalk.Resolve(ctx, path)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	inode := ctx.ReadInode(inum)
	fmt.Fprintf(out, "inode: %d\n", inum)
	fmt.Fprintf(out, "size: %d\n", inode.Size)
	fmt.Fprintf(out, "nlink: %d\n", inode.Nlink)
	fmt.Fprintf(out, "blocks: %d\n", inode.Blocks)
	fmt.Fprintf(out, "is directory: %v\n", layout.IsDir(inode.Mode))
	direct := inode.Blocks
	if direct > layout.Direct {
		direct = layout.Direct
	}
	fmt.Fprintf(out, "direct block addresses: %v\n", inode.Direct[:direct])
	if inode.Blocks > layout.Direct {
		fmt.Fprintf(out, "indirect block: %d\n", inode.Indirect)
	}
}
