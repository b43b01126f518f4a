// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render provides reference renderers for the page cache.
//
// Real viewers plug their document backend into pagecache.Renderer. The
// renderers here drive a Painter instead and serve demos, tests and
// backends that can only paint synchronously:
//
//   - Sync paints on the calling goroutine; completion happens before
//     Generate returns.
//   - Threaded paints one job at a time off the calling goroutine,
//     splitting large renders into bands painted on a worker pool.
//
// Both render in canonical (unrotated) page space, as pagecache expects.
package render
