package imagestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Both backends satisfy Store.
var (
	_ Store = (*FSStore)(nil)
	_ Store = (*GCSStore)(nil)
)

func newFSStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(filepath.Join(t.TempDir(), "images"))
	require.NoError(t, err)
	return s
}

func readAll(t *testing.T, s Store, name string) []byte {
	t.Helper()
	rc, err := s.Open(context.Background(), name)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return b
}

func TestContentName(t *testing.T) {
	data := []byte("not really a jpeg")
	sum := sha256.Sum256(data)

	assert.Equal(t, hex.EncodeToString(sum[:])+".jpg", ContentName(data))
	assert.Equal(t, ContentName(data), ContentName([]byte("not really a jpeg")))
	assert.NotEqual(t, ContentName(data), ContentName([]byte("other bytes")))
}

func TestFSStore_SaveIsContentAddressed(t *testing.T) {
	s := newFSStore(t)
	data := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

	first, err := s.Save(context.Background(), data)
	require.NoError(t, err)
	second, err := s.Save(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, ContentName(data), first)
	assert.Equal(t, first, second, "saving identical bytes twice returns the identical name")
	assert.Equal(t, data, readAll(t, s, first))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestFSStore_SaveAcceptsAnyBytes(t *testing.T) {
	s := newFSStore(t)
	data := []byte("plain text is stored as if it were a jpeg")

	name, err := s.Save(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, data, readAll(t, s, name))
}

func TestFSStore_ConcurrentIdenticalSaves(t *testing.T) {
	s := newFSStore(t)
	data := []byte("same content from many uploads")

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			name, err := s.Save(context.Background(), data)
			if err == nil && name != ContentName(data) {
				t.Errorf("unexpected name %s", name)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, data, readAll(t, s, ContentName(data)))
}

func TestFSStore_OpenMissing(t *testing.T) {
	s := newFSStore(t)
	_, err := s.Open(context.Background(), "missing.jpg")
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestFSStore_SaveFailsOnUnwritableDir(t *testing.T) {
	s := newFSStore(t)
	require.NoError(t, os.RemoveAll(s.Dir()))

	_, err := s.Save(context.Background(), []byte("data"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrImageNotFound)
}

func TestValidateName(t *testing.T) {
	valid := []string{"default.jpg", ContentName([]byte("x"))}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), name)
	}

	invalid := []string{
		"",
		"image.png",
		"image.jpg.png",
		"../secret.jpg",
		"nested/image.jpg",
		`..\windows.jpg`,
		".jpg",
		".hidden.jpg",
	}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateName(name), ErrInvalidImageName, name)
	}
}

func TestFSStore_OpenRejectsTraversal(t *testing.T) {
	s := newFSStore(t)
	outside := filepath.Join(filepath.Dir(s.Dir()), "outside.jpg")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	_, err := s.Open(context.Background(), "../outside.jpg")
	assert.ErrorIs(t, err, ErrInvalidImageName)
}

func TestClientOptions(t *testing.T) {
	assert.Empty(t, ClientOptions("", ""), "application default credentials need no options")
	assert.Len(t, ClientOptions("/etc/gcs.json", ""), 1)
	assert.Len(t, ClientOptions("", "http://localhost:4443/storage/v1/"), 2, "an emulator endpoint runs unauthenticated")
	assert.Len(t, ClientOptions("/etc/gcs.json", "https://storage.example/"), 2)
}
