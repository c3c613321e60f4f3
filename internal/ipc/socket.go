// Package ipc provides the low-level control-socket plumbing shared by the
// channel layer: socketpair creation and exact-length reads and writes on
// raw descriptors.
package ipc

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Socketpair returns a connected pair of stream sockets. Both descriptors
// are close-on-exec; the one headed for a child process is re-armed for
// inheritance by exec.Cmd.ExtraFiles.
func Socketpair() (*os.File, *os.File, error) {
	fds, err := sockPair()
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}
	return os.NewFile(uintptr(fds[0]), "ctrl[0]"), os.NewFile(uintptr(fds[1]), "ctrl[1]"), nil
}

// WriteFull writes all of p to fd, retrying on short writes and EINTR.
func WriteFull(fd int, p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("socket write: %w", err)
		}
		p = p[n:]
	}
	return nil
}

// ReadFull reads exactly len(p) bytes from fd. A peer close before any byte
// of the current read surfaces as io.EOF; a close mid-message surfaces as
// io.ErrUnexpectedEOF.
func ReadFull(fd int, p []byte) error {
	got := 0
	for got < len(p) {
		n, err := unix.Read(fd, p[got:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("socket read: %w", err)
		}
		if n == 0 {
			if got == 0 {
				return io.EOF
			}
			return io.ErrUnexpectedEOF
		}
		got += n
	}
	return nil
}
