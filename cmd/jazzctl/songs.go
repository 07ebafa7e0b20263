package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"jazz_picker_backend/internal/catalog"
	"jazz_picker_backend/internal/catalogclient"
	"jazz_picker_backend/internal/generate"
	"jazz_picker_backend/internal/music"

	"github.com/spf13/cobra"
)

var (
	songsQuery       string
	songsInstrument  string
	songsSingerRange string
	songsLimit       int
	songsAll         bool

	genKey        string
	genClef       string
	genInstrument string
)

var songsCmd = &cobra.Command{
	Use:   "songs",
	Short: "Browse the song catalog through the catalog API",
}

var songsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List songs page by page",
	Args:  cobra.NoArgs,
	RunE:  runSongsList,
}

var songsShowCmd = &cobra.Command{
	Use:   "show <title>",
	Short: "Show a song's variations and cached keys",
	Args:  cobra.ExactArgs(1),
	RunE:  runSongsShow,
}

var songsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the locally cached catalog by title or composer",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSongsSearch,
}

var songsComposersCmd = &cobra.Command{
	Use:   "composers",
	Short: "List every composer in the catalog",
	Args:  cobra.NoArgs,
	RunE:  runSongsComposers,
}

var songsRandomCmd = &cobra.Command{
	Use:   "random",
	Short: "Pick a random song",
	Args:  cobra.NoArgs,
	RunE:  runSongsRandom,
}

var songsSlugCmd = &cobra.Command{
	Use:   "slug <slug>",
	Short: "Resolve a song link slug such as all-the-things-you-are",
	Args:  cobra.ExactArgs(1),
	RunE:  runSongsSlug,
}

var songsGenerateCmd = &cobra.Command{
	Use:   "generate <title>",
	Short: "Render a song in a key and print the PDF url",
	Args:  cobra.ExactArgs(1),
	RunE:  runSongsGenerate,
}

func init() {
	songsListCmd.Flags().StringVarP(&songsQuery, "query", "q", "", "Title filter")
	songsListCmd.Flags().StringVar(&songsInstrument, "instrument", "All", "Instrument filter: All, C, Bb, Eb or Bass")
	songsListCmd.Flags().StringVar(&songsSingerRange, "singer-range", "All", "Singer range filter")
	songsListCmd.Flags().IntVar(&songsLimit, "limit", 50, "Page size")
	songsListCmd.Flags().BoolVar(&songsAll, "all", false, "Keep loading pages until every song is listed")

	songsGenerateCmd.Flags().StringVarP(&genKey, "key", "k", "", "Concert key to render (required)")
	songsGenerateCmd.Flags().StringVar(&genClef, "clef", "treble", "Clef: treble or bass")
	songsGenerateCmd.Flags().StringVarP(&genInstrument, "instrument", "i", "", "Instrument id; the key is written for its transposition")
	_ = songsGenerateCmd.MarkFlagRequired("key")

	songsCmd.AddCommand(songsListCmd, songsShowCmd, songsSearchCmd, songsComposersCmd, songsRandomCmd, songsSlugCmd, songsGenerateCmd)
}

func newCatalogClient() (*catalogclient.Client, error) {
	return catalogclient.NewClient(cfg.CatalogAPIBaseURL, nil, cfg.ClientRequestsPerSecond, cliLog)
}

// loadCatalogStore returns the local catalog, refreshed from the server when reachable.
func loadCatalogStore(cmd *cobra.Command) (*catalogclient.Store, error) {
	client, err := newCatalogClient()
	if err != nil {
		return nil, err
	}
	store := catalogclient.NewStore(client, cfg.ClientCacheDir, cliLog)
	if err := store.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return store, nil
}

func printSongTable(w io.Writer, songs []catalog.SongSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tKEY\tCOMPOSER")
	for _, s := range songs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Title, music.FormatKey(s.DefaultKey), s.Composer)
	}
	tw.Flush()
}

func runSongsList(cmd *cobra.Command, args []string) error {
	client, err := newCatalogClient()
	if err != nil {
		return err
	}
	acc, err := catalogclient.NewAccumulator(cmd.Context(), client, catalogclient.Params{
		Limit:       songsLimit,
		Query:       songsQuery,
		Instrument:  songsInstrument,
		SingerRange: songsSingerRange,
	})
	if err != nil {
		return err
	}
	for songsAll && acc.HasMore() {
		if err := acc.LoadMore(cmd.Context()); err != nil {
			return err
		}
	}

	songs := acc.Songs()
	return render(cmd.OutOrStdout(), outputFormat, songs, func(w io.Writer) {
		printSongTable(w, songs)
		fmt.Fprintf(w, "\n%d of %d songs", len(songs), acc.Total())
		if acc.HasMore() {
			fmt.Fprint(w, " (use --all to load the rest)")
		}
		fmt.Fprintln(w)
	})
}

type songDetail struct {
	catalog.SongDetailResponse `yaml:",inline"`
	Cached                      *catalog.CachedKeysResponse `json:"cached,omitempty" yaml:"cached,omitempty"`
}

func runSongsShow(cmd *cobra.Command, args []string) error {
	client, err := newCatalogClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	song, err := client.GetSong(ctx, args[0])
	if err != nil {
		return err
	}
	detail := songDetail{SongDetailResponse: *song}
	if cached, err := client.CachedKeys(ctx, args[0]); err == nil {
		detail.Cached = cached
	} else if !catalogclient.IsNotFound(err) {
		cliLog.Warn("Could not load cached keys: " + err.Error())
	}

	return render(cmd.OutOrStdout(), outputFormat, detail, func(w io.Writer) {
		fmt.Fprintln(w, song.Title)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  VARIATION\tKEY\tINSTRUMENT\tTYPE")
		for _, v := range song.Variations {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", v.DisplayName, music.FormatKey(v.Key), v.Instrument, v.VariationType)
		}
		tw.Flush()
		if detail.Cached != nil {
			fmt.Fprintf(w, "Default: %s %s\n", music.FormatKey(detail.Cached.DefaultKey), detail.Cached.DefaultClef)
			keys := make([]string, 0, len(detail.Cached.CachedKeys))
			for _, k := range detail.Cached.CachedKeys {
				keys = append(keys, music.FormatKey(k.Key)+" "+k.Clef)
			}
			if len(keys) > 0 {
				fmt.Fprintf(w, "Rendered: %s\n", strings.Join(keys, ", "))
			}
		}
	})
}

func runSongsSearch(cmd *cobra.Command, args []string) error {
	store, err := loadCatalogStore(cmd)
	if err != nil {
		return err
	}
	q := ""
	if len(args) == 1 {
		q = args[0]
	}
	songs := store.Search(q)
	return render(cmd.OutOrStdout(), outputFormat, songs, func(w io.Writer) {
		printSongTable(w, songs)
	})
}

func runSongsComposers(cmd *cobra.Command, args []string) error {
	store, err := loadCatalogStore(cmd)
	if err != nil {
		return err
	}
	composers := store.Composers()
	return render(cmd.OutOrStdout(), outputFormat, composers, func(w io.Writer) {
		for _, c := range composers {
			fmt.Fprintln(w, c)
		}
	})
}

func runSongsRandom(cmd *cobra.Command, args []string) error {
	store, err := loadCatalogStore(cmd)
	if err != nil {
		return err
	}
	song, ok := store.Random()
	if !ok {
		return fmt.Errorf("the catalog is empty")
	}
	return render(cmd.OutOrStdout(), outputFormat, song, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%s)\n", song.Title, music.FormatKey(song.DefaultKey))
	})
}

func runSongsSlug(cmd *cobra.Command, args []string) error {
	store, err := loadCatalogStore(cmd)
	if err != nil {
		return err
	}
	song, ok := store.BySlug(args[0])
	if !ok {
		return fmt.Errorf("no song matches %q", args[0])
	}
	return render(cmd.OutOrStdout(), outputFormat, song, func(w io.Writer) {
		fmt.Fprintln(w, song.Title)
	})
}

func runSongsGenerate(cmd *cobra.Command, args []string) error {
	key := strings.ToLower(strings.TrimSpace(genKey))
	req := generate.Request{Song: args[0], Key: key, Clef: genClef}
	if genInstrument != "" {
		inst, ok := music.InstrumentByID(genInstrument)
		if !ok {
			return fmt.Errorf("unknown instrument %q (one of: %s)", genInstrument, instrumentIDs())
		}
		req.Key = strings.TrimSuffix(music.ConcertToWritten(key, inst.Transposition), "m")
		req.Clef = string(inst.Clef)
		req.Instrument = inst.Label
	}

	client, err := newCatalogClient()
	if err != nil {
		return err
	}
	resp, err := client.Generate(cmd.Context(), req)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, resp, func(w io.Writer) {
		state := "rendered"
		if resp.Cached {
			state = "cached"
		}
		fmt.Fprintf(w, "%s (%s, %dms)\n", resp.URL, state, resp.GenerationTimeMS)
	})
}
