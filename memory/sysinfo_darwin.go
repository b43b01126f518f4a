//go:build darwin

package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type system struct{}

// System returns a Querier reading physical and free memory via sysctl.
// Free swap is not reported.
func System() Querier { return system{} }

func (system) Query() (Stats, error) {
	total, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return Stats{}, fmt.Errorf("memory: sysctl hw.memsize: %w", err)
	}
	pages, err := unix.SysctlUint32("vm.page_free_count")
	if err != nil {
		return Stats{}, fmt.Errorf("memory: sysctl vm.page_free_count: %w", err)
	}
	return Stats{
		Total: total,
		Free:  uint64(pages) * uint64(unix.Getpagesize()),
	}, nil
}
