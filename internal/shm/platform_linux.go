//go:build linux

package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Create allocates an anonymous shareable region backed by memfd_create.
// The reservation is virtual; pages are committed on first touch, so large
// sizes are cheap until written.
func Create(opts MapOptions) (*Mapping, error) {
	fd, err := unix.MemfdCreate(opts.Name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create %q: %w", opts.Name, err)
	}
	if err := unix.Ftruncate(fd, int64(opts.Size)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("ftruncate to %d: %w", opts.Size, err)
	}
	f := os.NewFile(uintptr(fd), opts.Name)
	m, err := mapFile(f, int(opts.Size))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Mapping{Mem: m, File: f}, nil
}

// Map maps an inherited region descriptor. The size comes from fstat, so the
// caller only needs the file itself.
func Map(f *os.File) (*Mapping, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat region fd: %w", err)
	}
	m, err := mapFile(f, int(info.Size()))
	if err != nil {
		return nil, err
	}
	return &Mapping{Mem: m, File: f}, nil
}

// Unmap releases this process's view. The backing memory is freed by the
// kernel once every mapping and descriptor is gone.
func Unmap(mp *Mapping) error {
	if mp == nil || mp.Mem == nil {
		return nil
	}
	if err := unix.Munmap(mp.Mem); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	mp.Mem = nil
	return mp.File.Close()
}

func mapFile(f *os.File, size int) ([]byte, error) {
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return mem, nil
}
