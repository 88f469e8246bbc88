package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "country")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "country", "IN"))
	require.NoError(t, s.Set(ctx, "holiday_shown_2026-10-18", "true"))
	require.NoError(t, s.Set(ctx, "holiday_shown_2026-10-19", "true"))

	v, err := s.Get(ctx, "country")
	require.NoError(t, err)
	assert.Equal(t, "IN", v)

	keys, err := s.Keys(ctx, "holiday_shown_")
	require.NoError(t, err)
	assert.Equal(t, []string{"holiday_shown_2026-10-18", "holiday_shown_2026-10-19"}, keys)

	require.NoError(t, s.Delete(ctx, "holiday_shown_2026-10-18", "missing"))
	keys, err = s.Keys(ctx, "holiday_shown_")
	require.NoError(t, err)
	assert.Equal(t, []string{"holiday_shown_2026-10-19"}, keys)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s, err := OpenFile(path)
	require.NoError(t, err)

	exerciseStore(t, s)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	v, err := reopened.Get(context.Background(), "country")
	require.NoError(t, err)
	assert.Equal(t, "IN", v)
}

func TestOpenFile_Errors(t *testing.T) {
	_, err := OpenFile("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = OpenFile(path)
	assert.Error(t, err)
}

func TestOpenFile_EmptyFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	s, err := OpenFile(path)
	require.NoError(t, err)
	keys, err := s.Keys(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
