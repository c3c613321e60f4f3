package task

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolMapOrdersResults(t *testing.T) {
	p, err := NewPool(runtime.NumCPU())
	require.NoError(t, err)
	defer p.Release()

	args := []any{1, 2, 3, 4, 5, 6, 7, 8}
	results, err := p.Map("double", args, smallBuffers())
	require.NoError(t, err)
	require.Len(t, results, len(args))
	for i, r := range results {
		assert.Equal(t, float64(2*(i+1)), r)
	}
}

func TestPoolMapCollectsFailures(t *testing.T) {
	p, err := NewPool(2)
	require.NoError(t, err)
	defer p.Release()

	results, err := p.Map("fail", []any{nil, nil}, smallBuffers())
	require.Error(t, err)
	var remote *RemoteError
	assert.True(t, errors.As(err, &remote))
	assert.Equal(t, []any{nil, nil}, results)
}

func TestPoolMapUnknownFunction(t *testing.T) {
	p, err := NewPool(1)
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Map("nope", []any{1})
	assert.ErrorIs(t, err, ErrNotRegistered)
}
