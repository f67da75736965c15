package availability

import (
	"github.com/newthinker/datacheck/internal/core"
)

// Entry pairs a timestamp with the file recorded for it.
type Entry[T comparable] struct {
	Time T      `json:"time"`
	Path string `json:"path"`
}

// Catalog is the set of known files. Order matters: when several entries
// share a timestamp the first one wins.
type Catalog[T comparable] []Entry[T]

// NewCatalog zips two parallel slices into a catalog.
func NewCatalog[T comparable](times []T, paths []string) (Catalog[T], error) {
	if len(times) != len(paths) {
		return nil, core.Errorf(core.ErrCatalogInvalid,
			"%d timestamps but %d paths", len(times), len(paths))
	}
	c := make(Catalog[T], len(times))
	for i := range times {
		c[i] = Entry[T]{Time: times[i], Path: paths[i]}
	}
	return c, nil
}

// Times returns the catalog timestamps in catalog order.
func (c Catalog[T]) Times() []T {
	out := make([]T, len(c))
	for i, e := range c {
		out[i] = e.Time
	}
	return out
}

// Paths returns the catalog paths in catalog order.
func (c Catalog[T]) Paths() []string {
	out := make([]string, len(c))
	for i, e := range c {
		out[i] = e.Path
	}
	return out
}

// index maps each timestamp to the position of its first entry and counts
// timestamps that appear more than once.
func (c Catalog[T]) index() (map[T]int, int) {
	idx := make(map[T]int, len(c))
	dups := 0
	for i, e := range c {
		if _, ok := idx[e.Time]; ok {
			dups++
			continue
		}
		idx[e.Time] = i
	}
	return idx, dups
}

// matches returns, per requested timestamp, the catalog position of its
// first match or -1.
func (c Catalog[T]) matches(requested []T) ([]int, int) {
	idx, dups := c.index()
	out := make([]int, len(requested))
	for i, t := range requested {
		pos, ok := idx[t]
		if !ok {
			pos = -1
		}
		out[i] = pos
	}
	return out, dups
}
