package topology

import "errors"

// ErrNoCache is returned when a CPU exposes no cache/index* directories
// at all, which sysfs never does on a real Linux system but a container
// with a masked /sys might.
var ErrNoCache = errors.New("topology: cpu exposes no cache indices")
