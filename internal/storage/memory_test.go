package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_SaveLoadDelete(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	_, err := s.Load(ctx, "cart:v1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "cart:v1", []byte(`{"version":1}`)))

	data, err := s.Load(ctx, "cart:v1")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(data))

	require.NoError(t, s.Delete(ctx, "cart:v1"))
	_, err = s.Load(ctx, "cart:v1")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting again is fine
	assert.NoError(t, s.Delete(ctx, "cart:v1"))
}

func TestMemoryStorage_CopiesPayload(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	payload := []byte("abc")
	require.NoError(t, s.Save(ctx, "k", payload))
	payload[0] = 'x'

	data, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	data[1] = 'y'
	again, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
