package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "u1", "paper:account")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "u1", "paper:account", []byte(`{"cash":1}`)))
	data, err := s.Get(ctx, "u1", "paper:account")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"cash":1}`), data)

	// Keys are scoped by both user and resource.
	_, err = s.Get(ctx, "u2", "paper:account")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "u1", "real:account")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCopiesData(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	in := []byte("abc")
	require.NoError(t, s.Put(ctx, "u1", "r", in))
	in[0] = 'x'

	out, err := s.Get(ctx, "u1", "r")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), out)

	out[0] = 'x'
	again, err := s.Get(ctx, "u1", "r")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again)
}
