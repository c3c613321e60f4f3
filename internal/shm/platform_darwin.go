//go:build darwin

package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Create allocates an anonymous shareable region. Darwin has no memfd, so
// the region is backed by an unlinked temporary file: invisible in the
// filesystem, reclaimed by the kernel when the last descriptor goes away.
func Create(opts MapOptions) (*Mapping, error) {
	f, err := os.CreateTemp("", "shmtask-"+opts.Name+"-*")
	if err != nil {
		return nil, fmt.Errorf("create region file: %w", err)
	}
	if err := os.Remove(f.Name()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("unlink region file: %w", err)
	}
	if err := f.Truncate(int64(opts.Size)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("truncate to %d: %w", opts.Size, err)
	}
	m, err := mapFile(f, int(opts.Size))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Mapping{Mem: m, File: f}, nil
}

// Map maps an inherited region descriptor.
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

// Unmap releases this process's view.
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
