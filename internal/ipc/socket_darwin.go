//go:build darwin

package ipc

import "golang.org/x/sys/unix"

// sockPair creates the pair and sets close-on-exec after the fact; Darwin
// has no SOCK_CLOEXEC flag for socketpair.
func sockPair() ([2]int, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return fds, err
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	return fds, nil
}
