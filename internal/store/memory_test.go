package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGetDelete(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	_, err := st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Put(ctx, "k", []byte("v1"), 0))
	got, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, st.Put(ctx, "k", []byte("v2"), 0))
	got, err = st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, st.Delete(ctx, "k"))
	_, err = st.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreTTL(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "short", []byte("v"), 20*time.Millisecond))
	_, err := st.Get(ctx, "short")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := st.Get(ctx, "short")
		return err != nil
	}, time.Second, 5*time.Millisecond, "entries past their TTL must disappear")
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	value := []byte("original")
	require.NoError(t, st.Put(ctx, "k", value, 0))
	value[0] = 'X'

	got, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got, "the store must not alias caller buffers")
}
