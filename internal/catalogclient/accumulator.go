// File: internal/catalogclient/accumulator.go
package catalogclient

import (
	"context"
	"sync"

	"jazz_picker_backend/internal/catalog"
)

// SongLister is the part of Client the accumulator pages through.
type SongLister interface {
	ListSongs(ctx context.Context, p Params) (*catalog.SongListResponse, error)
}

// Accumulator collects successive pages of a song list. It always holds at least the
// first page, so Total is known and HasMore is exact. It is safe for concurrent use.
type Accumulator struct {
	lister SongLister

	mu        sync.Mutex
	params    Params
	songs     []catalog.SongSummary
	total     int64
	lastEmpty bool
}

// NewAccumulator creates an accumulator reading pages from lister and loads the first page.
func NewAccumulator(ctx context.Context, lister SongLister, params Params) (*Accumulator, error) {
	a := &Accumulator{lister: lister}
	if err := a.Reset(ctx, params); err != nil {
		return nil, err
	}
	return a, nil
}

// Reset drops every loaded page and loads the first page for params. On error the
// accumulator is left empty with HasMore false.
func (a *Accumulator) Reset(ctx context.Context, params Params) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if params.Limit <= 0 {
		params.Limit = 50
	}
	params.Offset = 0
	a.params = params
	a.songs = nil
	a.total = 0
	a.lastEmpty = true
	return a.loadPage(ctx)
}

// HasMore reports whether another page exists: fewer than Total songs are loaded and
// the last page was not empty.
func (a *Accumulator) HasMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasMore()
}

func (a *Accumulator) hasMore() bool {
	return !a.lastEmpty && int64(len(a.songs)) < a.total
}

// LoadMore fetches the next page. It does nothing once HasMore is false.
func (a *Accumulator) LoadMore(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasMore() {
		return nil
	}
	return a.loadPage(ctx)
}

// loadPage must be called with mu held.
func (a *Accumulator) loadPage(ctx context.Context) error {
	p := a.params
	p.Offset = len(a.songs)
	page, err := a.lister.ListSongs(ctx, p)
	if err != nil {
		return err
	}
	a.songs = append(a.songs, page.Songs...)
	a.total = page.Total
	a.lastEmpty = len(page.Songs) == 0
	return nil
}

// Songs returns a copy of every loaded song.
func (a *Accumulator) Songs() []catalog.SongSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]catalog.SongSummary(nil), a.songs...)
}

// Total is the server's song count for the current filters.
func (a *Accumulator) Total() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}
