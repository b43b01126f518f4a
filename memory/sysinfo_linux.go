//go:build linux

package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type system struct{}

// System returns a Querier reading the kernel's sysinfo figures. Free
// memory includes buffer memory, which the kernel reclaims on demand.
func System() Querier { return system{} }

func (system) Query() (Stats, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return Stats{}, fmt.Errorf("memory: sysinfo: %w", err)
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return Stats{
		Total:    uint64(info.Totalram) * unit,
		Free:     (uint64(info.Freeram) + uint64(info.Bufferram)) * unit,
		FreeSwap: uint64(info.Freeswap) * unit,
	}, nil
}
