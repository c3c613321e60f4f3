package shm

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// dupFile hands Attach its own descriptor for the region, the way a child
// process would receive one.
func dupFile(t *testing.T, r *Region) *os.File {
	t.Helper()
	fd, err := unix.Dup(int(r.File().Fd()))
	require.NoError(t, err)
	return os.NewFile(uintptr(fd), "region-dup")
}

func TestRegionWriteRead(t *testing.T) {
	r, err := Create("test-region", 4096)
	require.NoError(t, err)
	defer func() { _ = r.Release() }()

	payload := []byte("the quick brown fox")
	assert.NoError(t, r.WriteAt(128, payload))

	got := make([]byte, len(payload))
	assert.NoError(t, r.ReadAt(128, got))
	assert.True(t, bytes.Equal(payload, got))
}

func TestRegionCapacityBounds(t *testing.T) {
	r, err := Create("test-bounds", 1024)
	require.NoError(t, err)
	defer func() { _ = r.Release() }()

	assert.ErrorIs(t, r.WriteAt(1020, []byte("12345")), ErrCapacity)
	assert.ErrorIs(t, r.ReadAt(1024, make([]byte, 1)), ErrCapacity)

	// An exact fit at the boundary is fine.
	assert.NoError(t, r.WriteAt(1019, []byte("12345")))
}

func TestRegionZeroCapacity(t *testing.T) {
	_, err := Create("test-zero", 0)
	assert.ErrorIs(t, err, ErrAllocation)
}

func TestRegionSharedAcrossMappings(t *testing.T) {
	// Two mappings of the same backing descriptor see each other's
	// writes, which is what the channel layer relies on across
	// processes.
	r1, err := Create("test-shared", 4096)
	require.NoError(t, err)
	defer func() { _ = r1.Release() }()

	r2, err := Attach(dupFile(t, r1))
	require.NoError(t, err)
	defer func() { _ = r2.Release() }()

	require.NoError(t, r1.WriteAt(0, []byte("ping")))
	got := make([]byte, 4)
	require.NoError(t, r2.ReadAt(0, got))
	assert.Equal(t, "ping", string(got))
}

func TestRegionRetainRelease(t *testing.T) {
	r, err := Create("test-handles", 4096)
	require.NoError(t, err)

	r.Retain()
	require.NoError(t, r.Release())

	// Still mapped: one handle left.
	assert.NoError(t, r.WriteAt(0, []byte("x")))

	require.NoError(t, r.Release())
	assert.ErrorIs(t, r.WriteAt(0, []byte("x")), ErrReleased)

	err = r.Release()
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrReleased)
}
