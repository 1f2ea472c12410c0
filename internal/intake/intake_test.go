package intake

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-redaction-scanner/internal/pdftest"
)

func TestStore_TakeOnce(t *testing.T) {
	store := NewStore(time.Minute, 4)

	token, err := store.Put([]byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Len(t, token, 36)
	assert.Equal(t, 1, store.Len())

	data, err := store.Take(token)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)

	_, err = store.Take(token)
	assert.ErrorIs(t, err, ErrTokenExpired, "tokens are single use")
	assert.Zero(t, store.Len())
}

func TestStore_TokenErrors(t *testing.T) {
	store := NewStore(time.Minute, 4)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrNoToken},
		{"malformed", "not-a-token", ErrTokenExpired},
		{"unknown", "6f1c1f46-8d0e-4d8c-9a43-6a3d1f0e2b7a", ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Take(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStore_Expiry(t *testing.T) {
	store := NewStore(time.Minute, 4)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	stale, err := store.Put([]byte("a"))
	require.NoError(t, err)
	now = now.Add(30 * time.Second)
	fresh, err := store.Put([]byte("b"))
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	_, err = store.Take(stale)
	assert.ErrorIs(t, err, ErrTokenExpired)

	data, err := store.Take(fresh)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), data)
}

func TestStore_CapacityAndSweep(t *testing.T) {
	store := NewStore(time.Minute, 2)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, err := store.Put([]byte("a"))
	require.NoError(t, err)
	_, err = store.Put([]byte("b"))
	require.NoError(t, err)

	_, err = store.Put([]byte("c"))
	assert.ErrorIs(t, err, ErrStoreFull)

	now = now.Add(2 * time.Minute)
	_, err = store.Put([]byte("c"))
	require.NoError(t, err, "expired uploads make room")
	assert.Equal(t, 1, store.Len())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
}

func TestStore_Concurrent(t *testing.T) {
	store := NewStore(time.Minute, 1000)
	var wg sync.WaitGroup
	tokens := make(chan string, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := store.Put([]byte("x"))
			if err == nil {
				tokens <- token
			}
		}()
	}
	wg.Wait()
	close(tokens)

	taken := 0
	for token := range tokens {
		if _, err := store.Take(token); err == nil {
			taken++
		}
	}
	assert.Equal(t, 100, taken)
}

func TestStore_Defaults(t *testing.T) {
	store := NewStore(0, 0)
	assert.Equal(t, DefaultTTL, store.ttl)
	assert.Equal(t, DefaultCapacity, store.capacity)
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(1024)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"valid", []byte("%PDF-1.7\n..."), nil},
		{"leading junk", append([]byte("\xef\xbb\xbf  "), []byte("%PDF-1.4")...), nil},
		{"empty", nil, ErrEmptyDocument},
		{"too large", append([]byte("%PDF-1.4"), make([]byte, 2048)...), ErrTooLarge},
		{"not a pdf", []byte("GIF89a"), ErrNotPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.data)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, int64(1024), v.MaxFileSize())
}

func TestValidator_ReadFile(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator(1 << 20)

	good := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(good, pdftest.Clean(), 0o644))
	data, err := v.ReadFile(good)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))

	txt := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(txt, []byte("%PDF-1.4"), 0o644))
	_, err = v.ReadFile(txt)
	assert.ErrorIs(t, err, ErrNotPDF)

	empty := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = v.ReadFile(empty)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = v.ReadFile(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)

	_, err = v.ReadFile(dir)
	assert.Error(t, err)

	_, err = v.ReadFile("")
	assert.Error(t, err)
}

func TestPathValidator(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	_, err := NewPathValidator("")
	assert.Error(t, err)

	v, err := NewPathValidator(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, v.Directory())

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative file", "a.pdf", false},
		{"nested", "sub/b.pdf", false},
		{"absolute inside", filepath.Join(dir, "c.pdf"), false},
		{"traversal", "../escape.pdf", true},
		{"absolute outside", filepath.Join(outside, "d.pdf"), true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(got))
		})
	}

	t.Run("symlink escape", func(t *testing.T) {
		target := filepath.Join(outside, "secret.pdf")
		require.NoError(t, os.WriteFile(target, []byte("%PDF-1.4"), 0o644))
		link := filepath.Join(dir, "link.pdf")
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}

		_, err := v.Resolve("link.pdf")
		assert.ErrorIs(t, err, ErrOutsideDirectory)
	})
}
