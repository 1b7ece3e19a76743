package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlldepends/internal/classify"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpen_CreatesDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := Open(tmpDir)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, filepath.Join(tmpDir, ".dlldepends", "cache", "classify.db"), c.Path())
	_, err = os.Stat(c.Path())
	assert.NoError(t, err)
}

func TestCacheHitAndMiss(t *testing.T) {
	c := openTestCache(t)

	_, ok, err := c.Get("App.csproj", "d1", "Lib")
	require.NoError(t, err)
	assert.False(t, ok, "empty cache should miss")

	require.NoError(t, c.Put("App.csproj", "d1", "Lib", classify.PackageReference))

	kind, ok, err := c.Get("App.csproj", "d1", "Lib")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, classify.PackageReference, kind)

	// Different target is a separate entry.
	_, ok, err = c.Get("App.csproj", "d1", "Other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheNoneIsCached(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.Put("App.csproj", "d1", "Lib", classify.None))

	kind, ok, err := c.Get("App.csproj", "d1", "Lib")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, classify.None, kind)
}

func TestCacheInvalidation(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.Put("App.csproj", "d1", "Lib", classify.Reference))

	// Content changed: the old digest no longer applies.
	_, ok, err := c.Get("App.csproj", "d2", "Lib")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put("App.csproj", "d2", "Lib", classify.ProjectReference))
	kind, ok, err := c.Get("App.csproj", "d2", "Lib")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, classify.ProjectReference, kind)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalEntries)
}

func TestCachePersistsAcrossOpen(t *testing.T) {
	tmpDir := t.TempDir()
	c, err := Open(tmpDir)
	require.NoError(t, err)
	require.NoError(t, c.Put("App.csproj", "d1", "Lib", classify.Reference))
	require.NoError(t, c.Close())

	c, err = Open(tmpDir)
	require.NoError(t, err)
	defer c.Close()

	kind, ok, err := c.Get("App.csproj", "d1", "Lib")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, classify.Reference, kind)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := openTestCache(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := filepath.Join("p", string(rune('a'+i)))
			assert.NoError(t, c.Put(path, "d", "Lib", classify.Reference))
			_, _, err := c.Get(path, "d", "Lib")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(8), stats.TotalEntries)
}
