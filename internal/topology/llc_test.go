//go:build linux

package topology

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCacheIndex(t *testing.T, root string, cpu, index int, ways, lineSize int, size string) {
	t.Helper()
	dir := filepath.Join(root, "devices", "system", "cpu",
		"cpu"+strconv.Itoa(cpu), "cache", "index"+strconv.Itoa(index))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ways_of_associativity"), []byte(strconv.Itoa(ways)+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "coherency_line_size"), []byte(strconv.Itoa(lineSize)+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "size"), []byte(size+"\n"), 0o644))
}

func TestSysfsOracle_LLC_PicksHighestIndex(t *testing.T) {
	root := t.TempDir()
	writeCacheIndex(t, root, 0, 0, 8, 64, "32K")
	writeCacheIndex(t, root, 0, 1, 8, 64, "32K")
	writeCacheIndex(t, root, 0, 2, 16, 64, "1024K")
	writeCacheIndex(t, root, 0, 3, 16, 64, "8192K")

	o := &SysfsOracle{Root: root}
	c, err := o.LLC(0)
	require.NoError(t, err)
	assert.Equal(t, 16, c.Ways)
	assert.Equal(t, uint64(64), c.LineSize)
	assert.Equal(t, uint64(8192*1024), uint64(c.Size))
}

func TestSysfsOracle_LLC_MissingCacheDir(t *testing.T) {
	root := t.TempDir()
	o := &SysfsOracle{Root: root}
	_, err := o.LLC(0)
	assert.Error(t, err)
}

func TestSysfsOracle_LLC_NoIndices(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "devices", "system", "cpu", "cpu0", "cache")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	o := &SysfsOracle{Root: root}
	_, err := o.LLC(0)
	assert.ErrorIs(t, err, ErrNoCache)
}

func TestSysfsOracle_LLC_DefaultRoot(t *testing.T) {
	o := NewSysfsOracle()
	assert.Equal(t, "/sys", o.root())
}
