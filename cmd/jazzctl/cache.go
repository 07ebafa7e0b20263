package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"jazz_picker_backend/internal/catalogclient"
	"jazz_picker_backend/internal/music"
	"jazz_picker_backend/internal/pdfcache"

	"github.com/spf13/cobra"
)

var (
	prefetchInstrument  string
	prefetchKey         string
	prefetchSetlist     string
	prefetchConcurrency int
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the offline PDF cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the PDF cache holds",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached PDF",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

var cachePrefetchCmd = &cobra.Command{
	Use:   "prefetch [title...]",
	Short: "Download PDFs for songs or a whole setlist ahead of a gig",
	Long: `Renders and downloads PDFs into the offline cache for an instrument.

Songs are fetched in their default key unless --key is given. With --setlist, every
song of the setlist is fetched in the key and octave stored on its item.`,
	RunE: runCachePrefetch,
}

func init() {
	cachePrefetchCmd.Flags().StringVarP(&prefetchInstrument, "instrument", "i", "piano", "Instrument id")
	cachePrefetchCmd.Flags().StringVarP(&prefetchKey, "key", "k", "", "Concert key for every title")
	cachePrefetchCmd.Flags().StringVar(&prefetchSetlist, "setlist", "", "Setlist id to prefetch (needs Firestore access)")
	cachePrefetchCmd.Flags().IntVar(&prefetchConcurrency, "concurrency", 3, "Downloads in flight")

	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cachePrefetchCmd)
}

func openPDFCache() (*pdfcache.Cache, error) {
	return pdfcache.Open(filepath.Join(cfg.ClientCacheDir, "pdfs"), cliLog)
}

type cacheStats struct {
	Count   int              `json:"count" yaml:"count"`
	Size    int64            `json:"size" yaml:"size"`
	Entries []pdfcache.Entry `json:"entries" yaml:"entries"`
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cache, err := openPDFCache()
	if err != nil {
		return err
	}
	stats := cacheStats{Count: cache.Count(), Size: cache.TotalSize(), Entries: cache.Entries()}
	return render(cmd.OutOrStdout(), outputFormat, stats, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SONG\tKEY\tPART\tSIZE")
		for _, e := range stats.Entries {
			fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\n", e.SongTitle, music.FormatKey(e.ConcertKey), e.Transposition, e.Clef, pdfcache.FormatBytes(e.FileSize))
		}
		tw.Flush()
		fmt.Fprintf(w, "\n%d PDFs, %s\n", stats.Count, cache.FormattedSize())
	})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cache, err := openPDFCache()
	if err != nil {
		return err
	}
	n, size := cache.Count(), cache.FormattedSize()
	if err := cache.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d PDFs (%s)\n", n, size)
	return nil
}

func runCachePrefetch(cmd *cobra.Command, args []string) error {
	inst, ok := music.InstrumentByID(prefetchInstrument)
	if !ok {
		return fmt.Errorf("unknown instrument %q (one of: %s)", prefetchInstrument, instrumentIDs())
	}
	ctx := cmd.Context()

	var items []catalogclient.PrefetchItem
	if prefetchSetlist != "" {
		svc, err := openServices(ctx)
		if err != nil {
			return err
		}
		sl, err := svc.setlists.Get(ctx, prefetchSetlist)
		if err != nil {
			return err
		}
		if sl == nil {
			return fmt.Errorf("setlist %s not found", prefetchSetlist)
		}
		for _, item := range sl.Items {
			if item.IsSetBreak || item.SongTitle == "" {
				continue
			}
			pi := catalogclient.PrefetchItem{SongTitle: item.SongTitle, OctaveOffset: item.OctaveOffset}
			if item.ConcertKey != nil {
				pi.ConcertKey = *item.ConcertKey
			}
			items = append(items, pi)
		}
	}
	for _, title := range args {
		items = append(items, catalogclient.PrefetchItem{SongTitle: title, ConcertKey: prefetchKey})
	}
	if len(items) == 0 {
		return fmt.Errorf("nothing to prefetch: give song titles or --setlist")
	}

	client, err := newCatalogClient()
	if err != nil {
		return err
	}
	// Items without a key use the song's default.
	for i := range items {
		if items[i].ConcertKey != "" {
			continue
		}
		cached, err := client.CachedKeys(ctx, items[i].SongTitle)
		if err != nil {
			return fmt.Errorf("%s: %w", items[i].SongTitle, err)
		}
		items[i].ConcertKey = cached.DefaultKey
	}

	cache, err := openPDFCache()
	if err != nil {
		return err
	}
	res, err := catalogclient.Prefetch(ctx, client, cache, items, inst, prefetchConcurrency, cliLog)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, res, func(w io.Writer) {
		fmt.Fprintf(w, "Downloaded %d, skipped %d, failed %d (cache now %s)\n",
			res.Downloaded, res.Skipped, res.Failed, cache.FormattedSize())
	})
}
