//go:build linux

package topology

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ja7ad/cachepirate/pkg/types"
)

// Cache describes one cache level's geometry as bootstrap and pirate need
// it: associativity (ways), total size, and the line stride to touch at.
type Cache struct {
	Ways     int
	Size     types.Bytes
	LineSize uint64
}

// Oracle resolves the shared last-level cache geometry for a CPU. Declared
// as an interface so bootstrap's tests can substitute a fixed topology
// instead of depending on the host's actual cache layout.
type Oracle interface {
	LLC(cpu int) (Cache, error)
}

// SysfsOracle reads cache geometry from
// /sys/devices/system/cpu/cpu<N>/cache/index<K>/*, the same pseudo-file
// convention the teacher lineage reads /proc/<pid>/stat and
// /proc/self/mountinfo under.
type SysfsOracle struct {
	// Root overrides the sysfs mount point, default "/sys". Tests point
	// this at a temporary directory populated with a fake tree.
	Root string
}

// NewSysfsOracle returns a SysfsOracle rooted at the real /sys.
func NewSysfsOracle() *SysfsOracle {
	return &SysfsOracle{Root: "/sys"}
}

func (o *SysfsOracle) root() string {
	if o.Root == "" {
		return "/sys"
	}
	return o.Root
}

// LLC returns the geometry of the highest-numbered cache/index<K>
// directory under the given CPU, which on every Linux cache topology this
// tool targets is the shared last-level cache.
func (o *SysfsOracle) LLC(cpu int) (Cache, error) {
	cacheDir := filepath.Join(o.root(), "devices", "system", "cpu", fmt.Sprintf("cpu%d", cpu), "cache")
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		return Cache{}, fmt.Errorf("topology: read %s: %w", cacheDir, err)
	}

	best := -1
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "index") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "index"))
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
	}
	if best < 0 {
		return Cache{}, ErrNoCache
	}

	indexDir := filepath.Join(cacheDir, fmt.Sprintf("index%d", best))
	ways, err := readInt(filepath.Join(indexDir, "ways_of_associativity"))
	if err != nil {
		return Cache{}, err
	}
	size, err := readSize(filepath.Join(indexDir, "size"))
	if err != nil {
		return Cache{}, err
	}
	lineSize, err := readInt(filepath.Join(indexDir, "coherency_line_size"))
	if err != nil {
		return Cache{}, err
	}

	return Cache{Ways: ways, Size: size, LineSize: uint64(lineSize)}, nil
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("topology: read %s: %w", path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("topology: parse %s: %w", path, err)
	}
	return v, nil
}

func readSize(path string) (types.Bytes, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("topology: read %s: %w", path, err)
	}
	v, err := types.ParseSize(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("topology: parse %s: %w", path, err)
	}
	return v, nil
}
