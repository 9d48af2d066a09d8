package chainwatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemCheckpointStore_GetSet(t *testing.T) {
	s := newMemCheckpointStore()
	ctx := context.Background()

	_, known, err := s.Get(ctx, "0xAbC0000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.False(t, known)

	require.NoError(t, s.Set(ctx, "0xAbC0000000000000000000000000000000000001", 42))

	block, known, err := s.Get(ctx, "0xabc0000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, uint64(42), block)
}
