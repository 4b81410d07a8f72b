// Package hostinfo probes the host for capacity figures used to size the
// resource pool.
package hostinfo

import (
	"errors"
	"fmt"

	"github.com/phrazzld/focus-api/internal/resource"
	"github.com/shirou/gopsutil/mem"
)

// ErrNoMemory is returned when the host reports zero total memory.
var ErrNoMemory = errors.New("host reported no memory")

// MemoryProbe returns total host memory in MB.
type MemoryProbe func() (uint64, error)

// TotalMemoryMB fetches total memory installed on the host machine.
func TotalMemoryMB() (uint64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("reading virtual memory: %w", err)
	}
	return v.Total / 1024 / 1024, nil
}

// ResolveMemoryLimit returns the MEMORY limit to use. A positive capMB is
// used as configured; zero means the cap is read from probe. The ceiling is
// clamped to the resulting cap.
func ResolveMemoryLimit(capMB, ceilingMB float64, probe MemoryProbe) (resource.Limit, error) {
	if capMB <= 0 {
		total, err := probe()
		if err != nil {
			return resource.Limit{}, err
		}
		if total == 0 {
			return resource.Limit{}, ErrNoMemory
		}
		capMB = float64(total)
	}

	if ceilingMB <= 0 || ceilingMB > capMB {
		ceilingMB = capMB
	}
	return resource.Limit{HardCap: capMB, Ceiling: ceilingMB}, nil
}
