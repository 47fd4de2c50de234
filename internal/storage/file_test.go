package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSlotReadMissing(t *testing.T) {
	s, err := NewFileSlot(t.TempDir(), "db")
	require.NoError(t, err)

	data, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFileSlotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSlot(dir, "tracker_hub_db")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, []byte(`{"habits":[]}`)))
	require.NoError(t, s.Write(ctx, []byte(`{"tasks":[]}`)))

	data, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"tasks":[]}`, string(data))
	assert.Equal(t, filepath.Join(dir, "tracker_hub_db.json"), s.Path())

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileSlotCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := NewFileSlot(dir, "db")
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), []byte("{}")))

	_, err = os.Stat(filepath.Join(dir, "db.json"))
	assert.NoError(t, err)
}

func TestMemorySlotCopiesData(t *testing.T) {
	s := NewMemorySlot()
	ctx := context.Background()

	data, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	buf := []byte("abc")
	require.NoError(t, s.Write(ctx, buf))
	buf[0] = 'x'

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	assert.NoError(t, s.Close())
}
