//go:build linux

package ipc

import "golang.org/x/sys/unix"

// sockPair creates the pair with SOCK_CLOEXEC set atomically.
func sockPair() ([2]int, error) {
	return unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
}
