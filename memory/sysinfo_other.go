//go:build !linux && !darwin

package memory

import "errors"

// ErrUnsupported is returned by the System querier on platforms without
// a memory query.
var ErrUnsupported = errors.New("memory: system query not supported on this platform")

type system struct{}

// System returns a Querier that always fails on this platform, which makes
// policies fall back to freeing everything.
func System() Querier { return system{} }

func (system) Query() (Stats, error) { return Stats{}, ErrUnsupported }
