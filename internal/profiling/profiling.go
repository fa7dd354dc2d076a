package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Lightweight wall-clock profiler for meshing, raycast and population passes.

type entry struct {
	total time.Duration
	calls int
}

var (
	mu      sync.Mutex
	entries = make(map[string]*entry)
)

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("meshing.March")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		e := entries[name]
		if e == nil {
			e = &entry{}
			entries[name] = e
		}
		e.total += d
		e.calls++
		mu.Unlock()
	}
}

// Reset clears all recorded totals.
func Reset() {
	mu.Lock()
	clear(entries)
	mu.Unlock()
}

// Stat is one tracked name's accumulated time.
type Stat struct {
	Name  string
	Total time.Duration
	Calls int
}

// Snapshot returns the current totals sorted by descending time.
func Snapshot() []Stat {
	mu.Lock()
	out := make([]Stat, 0, len(entries))
	for k, v := range entries {
		out = append(out, Stat{Name: k, Total: v.total, Calls: v.calls})
	}
	mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total == out[j].Total {
			return out[i].Name < out[j].Name
		}
		return out[i].Total > out[j].Total
	})
	return out
}

// TopN formats the n most expensive entries.
// Example: "meshing.March:4.2ms/8, world.Populate:2.1ms/1"
func TopN(n int) string {
	list := Snapshot()
	if n > len(list) {
		n = len(list)
	}
	parts := make([]string, 0, n)
	for _, s := range list[:n] {
		ms := float64(s.Total.Microseconds()) / 1000.0
		parts = append(parts, fmt.Sprintf("%s:%.1fms/%d", s.Name, ms, s.Calls))
	}
	return strings.Join(parts, ", ")
}
