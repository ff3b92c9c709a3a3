package listdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "list.db")
	s, err := Open(context.Background(), path, "Items", false, 0, zerolog.Nop(), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetValueAutoAssignsIncreasingKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	k1, err := s.SetValue(ctx, "a")
	require.NoError(t, err)
	k2, err := s.SetValue(ctx, "b")
	require.NoError(t, err)
	require.Greater(t, k2, k1)
}

func TestStore_SetItemWithZeroKeyAssignsAndWritesBack(t *testing.T) {
	s := openTestStore(t)
	item := &Item{Value: "x"}
	require.NoError(t, s.SetItem(context.Background(), item))
	require.NotZero(t, item.Key)
}

func TestStore_SetItemWithExplicitKeyReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetItem(ctx, &Item{Key: 5, Value: "first"}))
	require.NoError(t, s.SetItem(ctx, &Item{Key: 5, Value: "second"}))

	items, err := s.GetAllItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "second", items[0].Value)
}

func TestStore_SetItemsBatchAssignsKeysForZeroEntries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	out, err := s.SetItems(ctx, []Item{
		{Value: "auto-1"},
		{Key: 3, Value: "explicit"},
		{Value: "auto-2"},
	})
	require.NoError(t, err)
	require.NotZero(t, out[0].Key)
	require.Equal(t, int64(3), out[1].Key)
	require.NotZero(t, out[2].Key)
}

func TestStore_GetAllValuesOrderedByKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, _ = s.SetValue(ctx, "a")
	_, _ = s.SetValue(ctx, "b")
	_, _ = s.SetValue(ctx, "c")

	values, err := s.GetAllValues(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, values)
}

func TestStore_SetMapItemsAndGetMapAllItems(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetMapItems(ctx, map[int64]string{1: "one", 2: "two"}))

	m, err := s.GetMapAllItems(ctx)
	require.NoError(t, err)
	require.Equal(t, "one", m[1])
	require.Equal(t, "two", m[2])
}

func TestStore_RemoveValueDeletesItem(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key, _ := s.SetValue(ctx, "gone")
	require.NoError(t, s.RemoveValue(ctx, key))

	items, err := s.GetAllItems(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestStore_RemoveAllClearsTable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, _ = s.SetValue(ctx, "a")
	_, _ = s.SetValue(ctx, "b")
	require.NoError(t, s.RemoveAll(ctx))

	items, err := s.GetAllItems(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestOpen_ReadOnlyFailsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	_, err := Open(context.Background(), path, "Items", true, 0, zerolog.Nop(), false)
	require.Error(t, err)
}

func TestStore_ReadOnlyRejectsMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.db")
	rw, err := Open(context.Background(), path, "Items", false, 0, zerolog.Nop(), false)
	require.NoError(t, err)
	_, err = rw.SetValue(context.Background(), "a")
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	ro, err := Open(context.Background(), path, "Items", true, 0, zerolog.Nop(), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ro.Close() })

	_, err = ro.SetValue(context.Background(), "b")
	require.ErrorIs(t, err, ErrReadOnly)
	require.ErrorIs(t, ro.RemoveAll(context.Background()), ErrReadOnly)

	items, err := ro.GetAllItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
}
