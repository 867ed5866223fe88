// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"sync"

	"github.com/spf13/afero"
)

// CountingFs wraps a filesystem and counts Stat calls per path.
type CountingFs struct {
	afero.Fs

	mu    sync.Mutex
	stats map[string]int
}

// NewCountingFs wraps fs.
func NewCountingFs(fs afero.Fs) *CountingFs {
	return &CountingFs{Fs: fs, stats: map[string]int{}}
}

// Stat records the call and delegates.
func (c *CountingFs) Stat(name string) (os.FileInfo, error) {
	c.mu.Lock()
	c.stats[name]++
	c.mu.Unlock()
	return c.Fs.Stat(name)
}

// Stats returns how often name was stat'ed.
func (c *CountingFs) Stats(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats[name]
}

// Total returns the number of Stat calls.
func (c *CountingFs) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.stats {
		n += v
	}
	return n
}

// Reset clears the counters.
func (c *CountingFs) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.stats)
}
