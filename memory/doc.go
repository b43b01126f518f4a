// Package memory decides how much cached pixel memory must be given back
// before a new buffer is admitted.
//
// A Policy combines a Profile, chosen by the application, with live figures
// from the operating system:
//
//	p := memory.NewPolicy()
//	n := p.BytesToFree(currentUsage, memory.Normal)
//
// The figures are cached for a short while so that the policy can be
// consulted before every render without measurable cost. When they cannot
// be queried the policy behaves as if memory were exhausted and returns
// the whole current usage.
package memory
