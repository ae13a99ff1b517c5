package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

func TestRecordStore_WriteReadUsesClock(t *testing.T) {
	fixed := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	store := NewRecordStore(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "user_a", []byte("hello")))

	rec, err := store.Read(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(rec.Data))
	assert.Equal(t, fixed, rec.ModTime)
	assert.Equal(t, int64(5), rec.Size)
}

func TestRecordStore_ReadReturnsCopy(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	data := []byte("abc")
	require.NoError(t, store.Write(ctx, "k", data))
	data[0] = 'z'

	rec, err := store.Read(ctx, "k")
	require.NoError(t, err)
	rec.Data[1] = 'z'

	again, err := store.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Data))
}

func TestRecordStore_DeleteAndExists(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "k", []byte("v")))

	ok, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "k"))
	assert.ErrorIs(t, store.Delete(ctx, "k"), domain.ErrNotFound)

	_, err = store.Read(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_ListAndTouch(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "a", []byte("1")))
	require.NoError(t, store.Write(ctx, "b", []byte("22")))

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, store.Touch("a", old))
	assert.False(t, store.Touch("missing", old))

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	for _, info := range infos {
		if info.Key == "a" {
			assert.Equal(t, old, info.ModTime)
		}
	}
}

func TestRecordStore_WriteEmptyKey(t *testing.T) {
	assert.ErrorIs(t, NewRecordStore().Write(context.Background(), "", nil), domain.ErrInvalidInput)
}
