// File: internal/pdfcache/cache.go

// Package pdfcache keeps rendered lead sheets on disk for offline use, with a JSON
// manifest recording where each one came from.
package pdfcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"jazz_picker_backend/internal/music"

	"go.uber.org/zap"
)

const manifestFile = "manifest.json"

// CropBounds are the margins trimmed from a rendered page, in points.
type CropBounds struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// Variant identifies one rendering of a song.
type Variant struct {
	SongTitle     string
	ConcertKey    string
	Transposition music.Transposition
	Clef          music.Clef
	OctaveOffset  int
}

// Key is the cache key for v.
func (v Variant) Key() string {
	return BuildCacheKeyWithOctave(v.SongTitle, v.ConcertKey, v.Transposition, v.Clef, v.OctaveOffset)
}

// Entry is one manifest record.
type Entry struct {
	SongTitle      string      `json:"songTitle"`
	ConcertKey     string      `json:"concertKey"`
	Transposition  string      `json:"transposition"`
	Clef           string      `json:"clef"`
	OctaveOffset   int         `json:"octaveOffset"`
	CachedAt       time.Time   `json:"cachedAt"`
	ETag           string      `json:"etag,omitempty"`
	FilePath       string      `json:"filePath"`
	FileSize       int64       `json:"fileSize"`
	CropBounds     *CropBounds `json:"cropBounds,omitempty"`
	IncludeVersion string      `json:"includeVersion,omitempty"`
}

// Variant returns the rendering e describes.
func (e Entry) Variant() Variant {
	return Variant{
		SongTitle:     e.SongTitle,
		ConcertKey:    e.ConcertKey,
		Transposition: music.Transposition(e.Transposition),
		Clef:          music.Clef(e.Clef),
		OctaveOffset:  e.OctaveOffset,
	}
}

// Status is the outcome of a lookup.
type Status int

const (
	Miss Status = iota
	Hit
	// Stale means the bytes are usable but were rendered from older include files.
	Stale
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

// Result is returned by Lookup.
type Result struct {
	Status Status
	Data   []byte
	Crop   *CropBounds
}

// Cache is an on-disk PDF cache. It is safe for concurrent use.
type Cache struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time

	mu          sync.RWMutex
	entries     map[string]Entry
	downloading map[string]struct{}
}

// Open loads (or creates) the cache rooted at dir. A corrupt manifest is discarded.
func Open(dir string, logger *zap.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	c := &Cache{
		dir:         dir,
		logger:      logger.Named("PDFCache"),
		now:         time.Now,
		entries:     make(map[string]Entry),
		downloading: make(map[string]struct{}),
	}
	c.loadManifest()
	return c, nil
}

// Dir is the directory holding the manifest and files.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) loadManifest() {
	raw, err := os.ReadFile(filepath.Join(c.dir, manifestFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Failed to read PDF cache manifest", zap.Error(err))
		}
		return
	}
	var list []Entry
	if err := json.Unmarshal(raw, &list); err != nil {
		c.logger.Warn("Discarding unreadable PDF cache manifest", zap.Error(err))
		return
	}
	for _, e := range list {
		if !filepath.IsLocal(e.FilePath) {
			c.logger.Warn("Dropping manifest entry outside the cache directory", zap.String("filePath", e.FilePath))
			continue
		}
		c.entries[e.Variant().Key()] = e
	}
	c.logger.Debug("Loaded PDF cache manifest", zap.Int("entries", len(list)))
}

// saveManifest must be called with mu held for writing.
func (c *Cache) saveManifest() error {
	list := c.sortedEntries()
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return writeFileAtomic(filepath.Join(c.dir, manifestFile), raw)
}

func (c *Cache) sortedEntries() []Entry {
	list := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CachedAt.Equal(list[j].CachedAt) {
			return list[i].FilePath < list[j].FilePath
		}
		return list[i].CachedAt.Before(list[j].CachedAt)
	})
	return list
}

// filePath resolves a manifest file name inside the cache directory.
func (c *Cache) filePath(name string) (string, error) {
	if !filepath.IsLocal(name) || filepath.Base(name) != name {
		return "", fmt.Errorf("cache file %q is outside the cache directory", name)
	}
	return filepath.Join(c.dir, name), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Lookup returns the cached bytes for v. When expectedIncludeVersion is non-empty and the
// entry was rendered from a different version the result is Stale.
func (c *Cache) Lookup(v Variant, expectedIncludeVersion string) Result {
	key := v.Key()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Result{Status: Miss}
	}

	path, err := c.filePath(entry.FilePath)
	if err != nil {
		c.logger.Warn("Ignoring cache entry with invalid file path", zap.String("key", key), zap.Error(err))
		return Result{Status: Miss}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Info("Cached PDF file missing, dropping entry", zap.String("key", key))
		if rmErr := c.Remove(v); rmErr != nil {
			c.logger.Warn("Failed to drop cache entry", zap.String("key", key), zap.Error(rmErr))
		}
		return Result{Status: Miss}
	}

	if expectedIncludeVersion != "" && entry.IncludeVersion != "" && entry.IncludeVersion != expectedIncludeVersion {
		return Result{Status: Stale, Data: data, Crop: entry.CropBounds}
	}
	return Result{Status: Hit, Data: data, Crop: entry.CropBounds}
}

// Put stores data for v, replacing any previous entry.
func (c *Cache) Put(v Variant, data []byte, etag string, crop *CropBounds, includeVersion string) (Entry, error) {
	key := v.Key()
	fileName := key + ".pdf"
	path, err := c.filePath(fileName)
	if err != nil {
		return Entry{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := writeFileAtomic(path, data); err != nil {
		return Entry{}, fmt.Errorf("failed to write cached PDF: %w", err)
	}
	entry := Entry{
		SongTitle:      v.SongTitle,
		ConcertKey:     v.ConcertKey,
		Transposition:  string(v.Transposition),
		Clef:           string(v.Clef),
		OctaveOffset:   v.OctaveOffset,
		CachedAt:       c.now().UTC(),
		ETag:           etag,
		FilePath:       fileName,
		FileSize:       int64(len(data)),
		CropBounds:     crop,
		IncludeVersion: includeVersion,
	}
	c.entries[key] = entry
	if err := c.saveManifest(); err != nil {
		return Entry{}, err
	}
	c.logger.Debug("Cached PDF", zap.String("key", key), zap.String("size", FormatBytes(entry.FileSize)))
	return entry, nil
}

// UpdateETag refreshes an entry after a 304. Empty etag or includeVersion keep the old value.
// It reports whether an entry existed.
func (c *Cache) UpdateETag(v Variant, etag, includeVersion string) (bool, error) {
	key := v.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	entry.CachedAt = c.now().UTC()
	if etag != "" {
		entry.ETag = etag
	}
	if includeVersion != "" {
		entry.IncludeVersion = includeVersion
	}
	c.entries[key] = entry
	return true, c.saveManifest()
}

// Remove deletes the entry and file for v.
func (c *Cache) Remove(v Variant) error {
	key := v.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if path, err := c.filePath(entry.FilePath); err == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove cached PDF: %w", err)
		}
	}
	delete(c.entries, key)
	return c.saveManifest()
}

// Clear removes every file in the cache directory and empties the manifest.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}
	for _, f := range files {
		if err := os.RemoveAll(filepath.Join(c.dir, f.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", f.Name(), err)
		}
	}
	c.entries = make(map[string]Entry)
	c.logger.Info("PDF cache cleared")
	return c.saveManifest()
}

// Entries returns all entries, oldest first.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedEntries()
}

// Count is the number of cached PDFs.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TotalSize is the sum of cached file sizes in bytes.
func (c *Cache) TotalSize() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int64
	for _, e := range c.entries {
		total += e.FileSize
	}
	return total
}

// FormattedSize is TotalSize for display.
func (c *Cache) FormattedSize() string {
	return FormatBytes(c.TotalSize())
}

// IsCached reports whether v has an entry.
func (c *Cache) IsCached(v Variant) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[v.Key()]
	return ok
}

// ETag returns the stored ETag for v, for conditional requests.
func (c *Cache) ETag(v Variant) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[v.Key()].ETag
}

// MarkDownloading claims v for download. It returns false when another caller holds it.
func (c *Cache) MarkDownloading(v Variant) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := v.Key()
	if _, busy := c.downloading[key]; busy {
		return false
	}
	c.downloading[key] = struct{}{}
	return true
}

// MarkDone releases a claim taken by MarkDownloading.
func (c *Cache) MarkDone(v Variant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.downloading, v.Key())
}

// IsDownloading reports whether v is claimed.
func (c *Cache) IsDownloading(v Variant) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, busy := c.downloading[v.Key()]
	return busy
}
