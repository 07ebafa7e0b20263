package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"jazz_picker_backend/internal/music"
	"jazz_picker_backend/internal/setlist"

	"github.com/spf13/cobra"
)

var (
	setlistBands   []string
	setlistBand    string
	itemKey        string
	itemOctave     int
	itemNotes      string
	itemIsSetBreak bool
)

var setlistsCmd = &cobra.Command{
	Use:   "setlists",
	Short: "Manage setlists",
}

var setlistsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List setlists, most recently changed first",
	Long: `Lists the setlists of the bands given with --band. Without --band, the bands of
the --as user are used; with neither, every setlist is listed.`,
	Args: cobra.NoArgs,
	RunE: runSetlistsList,
}

var setlistsShowCmd = &cobra.Command{
	Use:   "show <setlist-id>",
	Short: "Show a setlist's items",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetlistsShow,
}

var setlistsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty setlist for a band (needs --as)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetlistsCreate,
}

var setlistsAddCmd = &cobra.Command{
	Use:   "add <setlist-id> [song-title]",
	Short: "Append a song, or a set break with --break",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSetlistsAdd,
}

var setlistsRemoveCmd = &cobra.Command{
	Use:   "remove <setlist-id> <item-id>",
	Short: "Remove an item",
	Args:  cobra.ExactArgs(2),
	RunE:  runSetlistsRemove,
}

var setlistsDuplicateCmd = &cobra.Command{
	Use:   "duplicate <setlist-id> <new-name>",
	Short: "Copy a setlist (needs --as)",
	Args:  cobra.ExactArgs(2),
	RunE:  runSetlistsDuplicate,
}

var setlistsDeleteCmd = &cobra.Command{
	Use:   "delete <setlist-id>",
	Short: "Delete a setlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetlistsDelete,
}

var setlistsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print setlists every time they change until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runSetlistsWatch,
}

func init() {
	for _, c := range []*cobra.Command{setlistsListCmd, setlistsWatchCmd} {
		c.Flags().StringSliceVar(&setlistBands, "band", nil, "Band id (repeatable)")
	}
	setlistsCreateCmd.Flags().StringVar(&setlistBand, "band", "", "Band the setlist belongs to")
	_ = setlistsCreateCmd.MarkFlagRequired("band")

	setlistsAddCmd.Flags().StringVarP(&itemKey, "key", "k", "", "Concert key to play the song in")
	setlistsAddCmd.Flags().IntVar(&itemOctave, "octave", 0, "Octave offset")
	setlistsAddCmd.Flags().StringVar(&itemNotes, "notes", "", "Performance notes")
	setlistsAddCmd.Flags().BoolVar(&itemIsSetBreak, "break", false, "Add a set break instead of a song")

	setlistsCmd.AddCommand(setlistsListCmd, setlistsShowCmd, setlistsCreateCmd, setlistsAddCmd,
		setlistsRemoveCmd, setlistsDuplicateCmd, setlistsDeleteCmd, setlistsWatchCmd)
}

// bandFilter resolves the band ids to list. nil means every setlist.
func bandFilter(ctx context.Context, svc *firestoreServices) ([]string, error) {
	if len(setlistBands) > 0 {
		return setlistBands, nil
	}
	if actingUser == "" {
		return nil, nil
	}
	p, err := svc.profiles.Get(ctx, actingUser)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return []string{}, nil
	}
	return append([]string{}, p.Groups...), nil
}

func printSetlists(w io.Writer, lists []setlist.Setlist) {
	if len(lists) == 0 {
		fmt.Fprintln(w, "No setlists.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSONGS\tUPDATED")
	for _, s := range lists {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.Name, s.SongCount(), s.UpdatedAt.Format(time.RFC822))
	}
	tw.Flush()
}

func printItems(w io.Writer, s *setlist.Setlist) {
	fmt.Fprintf(w, "%s (%d songs)\n", s.Name, s.SongCount())
	for _, item := range s.Items {
		if item.IsSetBreak {
			fmt.Fprintln(w, "  ── set break ──")
			continue
		}
		line := fmt.Sprintf("  %2d. %s", item.Position+1, item.SongTitle)
		if item.ConcertKey != nil {
			line += " [" + music.FormatKey(*item.ConcertKey) + "]"
		}
		if item.OctaveOffset != 0 {
			line += fmt.Sprintf(" (octave %+d)", item.OctaveOffset)
		}
		if item.Notes != nil {
			line += " - " + *item.Notes
		}
		fmt.Fprintf(w, "%s  %s\n", line, item.ID)
	}
}

func runSetlistsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	bands, err := bandFilter(ctx, svc)
	if err != nil {
		return err
	}
	lists, err := svc.setlists.List(ctx, bands)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, lists, func(w io.Writer) { printSetlists(w, lists) })
}

func runSetlistsShow(cmd *cobra.Command, args []string) error {
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	s, err := svc.setlists.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("setlist %s not found", args[0])
	}
	return render(cmd.OutOrStdout(), outputFormat, s, func(w io.Writer) { printItems(w, s) })
}

func runSetlistsCreate(cmd *cobra.Command, args []string) error {
	uid, err := requireUser()
	if err != nil {
		return err
	}
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	id, err := svc.setlists.Create(cmd.Context(), args[0], uid, setlistBand)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runSetlistsAdd(cmd *cobra.Command, args []string) error {
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var item setlist.Item
	if itemIsSetBreak {
		item, err = svc.setlists.AddSetBreak(ctx, args[0])
	} else {
		if len(args) < 2 {
			return fmt.Errorf("give a song title or --break")
		}
		input := setlist.AddItemInput{SongTitle: args[1], OctaveOffset: itemOctave}
		if k := strings.ToLower(strings.TrimSpace(itemKey)); k != "" {
			input.ConcertKey = &k
		}
		if itemNotes != "" {
			input.Notes = &itemNotes
		}
		item, err = svc.setlists.AddItem(ctx, args[0], input)
	}
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, item, func(w io.Writer) {
		fmt.Fprintf(w, "Added item %s at position %d\n", item.ID, item.Position+1)
	})
}

func runSetlistsRemove(cmd *cobra.Command, args []string) error {
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	return svc.setlists.RemoveItem(cmd.Context(), args[0], args[1])
}

func runSetlistsDuplicate(cmd *cobra.Command, args []string) error {
	uid, err := requireUser()
	if err != nil {
		return err
	}
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	id, err := svc.setlists.Duplicate(cmd.Context(), args[0], args[1], uid)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runSetlistsDelete(cmd *cobra.Command, args []string) error {
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	return svc.setlists.Delete(cmd.Context(), args[0])
}

func runSetlistsWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	bands, err := bandFilter(ctx, svc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errs := make(chan error, 1)
	sub := svc.setlists.Subscribe(ctx, bands, func(lists []setlist.Setlist) {
		if err := render(out, outputFormat, lists, func(w io.Writer) {
			fmt.Fprintf(w, "── %s ──\n", time.Now().Format(time.TimeOnly))
			printSetlists(w, lists)
		}); err != nil {
			cliLog.Warn("Failed to print setlists: " + err.Error())
		}
	}, func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	defer sub.Stop()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		return err
	}
}
