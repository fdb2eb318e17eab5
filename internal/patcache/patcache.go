// Package patcache precomputes the pattern cell text of a loaded module.
//
// The decoding engine can format cells on demand, but doing that from
// the telemetry path would mean engine calls on every tick. Instead the
// whole order list is walked once at load time and the formatted cells
// are kept as plain strings, read-only afterwards.
package patcache

import (
	"strings"

	"github.com/feralsun/modvis-go/moddec"
)

type entry struct {
	rows     [][]string
	rowCount int
}

// Cache holds one formatted cell grid per playback order.
type Cache struct {
	orders   []*entry // nil entry = order references an invalid pattern
	channels int
	blank    []string
}

// Build walks every order of m and formats every cell. This is the one
// high-latency synchronous step of the load path; playback must not
// start until it returns.
func Build(m moddec.Module) *Cache {
	channels := m.NumChannels()
	c := &Cache{
		orders:   make([]*entry, m.NumOrders()),
		channels: channels,
		blank:    make([]string, channels),
	}
	numPatterns := m.NumPatterns()
	for order := range c.orders {
		pattern := m.OrderPattern(order)
		if pattern < 0 || pattern >= numPatterns {
			continue // skip/empty slot, leave a hole
		}
		rowCount := m.PatternRows(pattern)
		e := &entry{rows: make([][]string, rowCount), rowCount: rowCount}
		for row := 0; row < rowCount; row++ {
			cells := make([]string, channels)
			for ch := 0; ch < channels; ch++ {
				cells[ch] = strings.TrimSpace(m.FormatPatternCell(pattern, row, ch))
			}
			e.rows[row] = cells
		}
		c.orders[order] = e
	}
	return c
}

// Channels reports the channel count the cache was built with.
func (c *Cache) Channels() int { return c.channels }

// Orders reports the number of order slots, holes included.
func (c *Cache) Orders() int { return len(c.orders) }

// Lookup returns the cell row at (order, row). Out-of-range positions
// return an all-blank row: the engine's live position can transiently
// run ahead of the cache during a pattern change, and that is not an
// error. Callers must not mutate the returned slice.
func (c *Cache) Lookup(order, row int) []string {
	if order < 0 || order >= len(c.orders) {
		return c.blank
	}
	e := c.orders[order]
	if e == nil || row < 0 || row >= e.rowCount {
		return c.blank
	}
	return e.rows[row]
}
