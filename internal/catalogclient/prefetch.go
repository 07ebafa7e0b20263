// File: internal/catalogclient/prefetch.go
package catalogclient

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"jazz_picker_backend/internal/generate"
	"jazz_picker_backend/internal/music"
	"jazz_picker_backend/internal/pdfcache"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultPrefetchConcurrency = 3

// PrefetchItem is a song to have available offline, in the key it will be played in.
type PrefetchItem struct {
	SongTitle    string
	ConcertKey   string
	OctaveOffset int
}

// PrefetchResult counts what Prefetch did.
type PrefetchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// PDFSource is the part of Client Prefetch downloads through.
type PDFSource interface {
	Generate(ctx context.Context, req generate.Request) (*generate.Response, error)
	FetchPDF(ctx context.Context, pdfURL, etag string) (*PDFResult, error)
}

// generateKey is the written key sent to the renderer, which takes pitch names only.
func generateKey(concertKey string, t music.Transposition) string {
	written := strings.ToLower(music.ConcertToWritten(concertKey, t))
	if len(written) > 1 && strings.HasSuffix(written, "m") {
		written = strings.TrimSuffix(written, "m")
	}
	return written
}

// Prefetch renders and caches items for inst with at most concurrency downloads in flight.
// Items already cached or being downloaded elsewhere are skipped. Individual failures are
// counted and logged; only context cancellation is returned.
func Prefetch(ctx context.Context, src PDFSource, cache *pdfcache.Cache, items []PrefetchItem, inst music.Instrument, concurrency int, logger *zap.Logger) (PrefetchResult, error) {
	if concurrency <= 0 {
		concurrency = defaultPrefetchConcurrency
	}
	logger = logger.Named("Prefetch")

	var downloaded, skipped, failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, item := range items {
		item := item
		v := pdfcache.Variant{
			SongTitle:     item.SongTitle,
			ConcertKey:    item.ConcertKey,
			Transposition: inst.Transposition,
			Clef:          inst.Clef,
			OctaveOffset:  item.OctaveOffset,
		}
		if cache.IsCached(v) || !cache.MarkDownloading(v) {
			atomic.AddInt64(&skipped, 1)
			continue
		}

		g.Go(func() error {
			defer cache.MarkDone(v)
			if err := fetchOne(gctx, src, cache, v, inst); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("Prefetch failed", zap.String("song", v.SongTitle), zap.String("key", v.ConcertKey), zap.Error(err))
				atomic.AddInt64(&failed, 1)
				return nil
			}
			atomic.AddInt64(&downloaded, 1)
			return nil
		})
	}

	err := g.Wait()
	res := PrefetchResult{
		Downloaded: int(atomic.LoadInt64(&downloaded)),
		Skipped:    int(atomic.LoadInt64(&skipped)),
		Failed:     int(atomic.LoadInt64(&failed)),
	}
	logger.Info("Prefetch finished",
		zap.Int("downloaded", res.Downloaded),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed))
	return res, err
}

func fetchOne(ctx context.Context, src PDFSource, cache *pdfcache.Cache, v pdfcache.Variant, inst music.Instrument) error {
	gen, err := src.Generate(ctx, generate.Request{
		Song:       v.SongTitle,
		Key:        generateKey(v.ConcertKey, inst.Transposition),
		Clef:       string(inst.Clef),
		Instrument: inst.Label,
	})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	pdf, err := src.FetchPDF(ctx, gen.URL, "")
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if _, err := cache.Put(v, pdf.Data, pdf.ETag, nil, ""); err != nil {
		return err
	}
	return nil
}
