package storage

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/ClareAI/astra-message-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxBytes int64) *AudioStore {
	t.Helper()
	store, err := NewAudioStore(context.Background(), t.TempDir(), maxBytes, "")
	require.NoError(t, err)
	return store
}

func TestValidateSizeBoundary(t *testing.T) {
	store := newTestStore(t, 16)

	assert.NoError(t, store.ValidateSize(bytes.Repeat([]byte{0xAA}, 15)))
	assert.NoError(t, store.ValidateSize(bytes.Repeat([]byte{0xAA}, 16)), "exactly the ceiling passes")

	err := store.ValidateSize(bytes.Repeat([]byte{0xAA}, 17))
	require.Error(t, err)
	opErr, ok := domain.AsOperational(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrKindAudioTooLarge, opErr.Kind)
}

func TestSaveAndRemove(t *testing.T) {
	store := newTestStore(t, 1024)

	path, err := store.Save("M1", []byte("opus-bytes"))
	require.NoError(t, err)
	assert.Equal(t, store.Path("M1"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("opus-bytes"), data)

	store.Remove("M1")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveMissingFileDoesNotPanic(t *testing.T) {
	store := newTestStore(t, 1024)
	assert.NotPanics(t, func() { store.Remove("never-saved") })
}

func TestSaveOverwritesOnRedelivery(t *testing.T) {
	store := newTestStore(t, 1024)

	_, err := store.Save("M1", []byte("first"))
	require.NoError(t, err)
	path, err := store.Save("M1", []byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}
