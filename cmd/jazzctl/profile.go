package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"jazz_picker_backend/internal/music"
	"jazz_picker_backend/internal/profile"

	"github.com/spf13/cobra"
)

var (
	defaultKeyFlag string
	profileName    string
	profileInstr   string
	metronomeBPM   int
	metronomeMeter string
	metronomeClear bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect and edit user profiles",
}

var profileShowCmd = &cobra.Command{
	Use:   "show [user-id]",
	Short: "Show a profile (defaults to --as)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileShow,
}

var profileCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the --as user's profile",
	Args:  cobra.NoArgs,
	RunE:  runProfileCreate,
}

var profileSetKeyCmd = &cobra.Command{
	Use:   "set-key <song-title> <concert-key>",
	Short: "Remember the key the --as user plays a song in",
	Long: `Stores a preferred concert key for a song. Choosing the song's default key
(--default) clears the preference.`,
	Args: cobra.ExactArgs(2),
	RunE: runProfileSetKey,
}

var profileSetOctaveCmd = &cobra.Command{
	Use:   "set-octave <song-title> <offset>",
	Short: "Remember an octave shift for a song; 0 clears it",
	Args:  cobra.ExactArgs(2),
	RunE:  runProfileSetOctave,
}

var profileMetronomeCmd = &cobra.Command{
	Use:   "metronome <song-title>",
	Short: "Override a song's tempo or meter",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileMetronome,
}

var profileNamesCmd = &cobra.Command{
	Use:   "names <user-id>...",
	Short: "Resolve user ids to display names",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProfileNames,
}

func init() {
	profileCreateCmd.Flags().StringVarP(&profileInstr, "instrument", "i", "piano", "Instrument id")
	profileCreateCmd.Flags().StringVar(&profileName, "name", "", "Display name")
	profileSetKeyCmd.Flags().StringVar(&defaultKeyFlag, "default", "", "The song's default key")
	profileMetronomeCmd.Flags().IntVar(&metronomeBPM, "bpm", 0, "Tempo in beats per minute")
	profileMetronomeCmd.Flags().StringVar(&metronomeMeter, "time", "", "Time signature, e.g. 3/4")
	profileMetronomeCmd.Flags().BoolVar(&metronomeClear, "clear", false, "Remove the override")

	profileCmd.AddCommand(profileShowCmd, profileCreateCmd, profileSetKeyCmd, profileSetOctaveCmd, profileMetronomeCmd, profileNamesCmd)
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	uid := actingUser
	if len(args) == 1 {
		uid = args[0]
	}
	if uid == "" {
		return fmt.Errorf("give a user id or --as")
	}
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	p, err := svc.profiles.Get(cmd.Context(), uid)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("no profile for %s", uid)
	}

	return render(cmd.OutOrStdout(), outputFormat, p, func(w io.Writer) {
		inst, ok := music.InstrumentByID(p.Instrument)
		label := p.Instrument
		if ok {
			label = fmt.Sprintf("%s (%s, %s clef)", inst.Label, inst.Transposition, inst.Clef)
		}
		fmt.Fprintf(w, "%s\n  instrument: %s\n", p.DisplayName, label)
		if len(p.Groups) > 0 {
			fmt.Fprintf(w, "  bands: %s\n", strings.Join(p.Groups, ", "))
		}
		if len(p.PreferredKeys) == 0 {
			return
		}
		titles := make([]string, 0, len(p.PreferredKeys))
		for t := range p.PreferredKeys {
			titles = append(titles, t)
		}
		sort.Strings(titles)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  SONG\tKEY")
		for _, t := range titles {
			key := p.PreferredKeys[t]
			if ok {
				key = music.PillLabel(key, inst)
			} else {
				key = music.FormatKey(key)
			}
			fmt.Fprintf(tw, "  %s\t%s\n", t, key)
		}
		tw.Flush()
	})
}

func runProfileCreate(cmd *cobra.Command, args []string) error {
	uid, err := requireUser()
	if err != nil {
		return err
	}
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	p, err := svc.profiles.Create(cmd.Context(), uid, profileInstr, profileName)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, p, func(w io.Writer) {
		fmt.Fprintf(w, "Created profile for %s\n", uid)
	})
}

func runProfileSetKey(cmd *cobra.Command, args []string) error {
	uid, err := requireUser()
	if err != nil {
		return err
	}
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	key := strings.ToLower(strings.TrimSpace(args[1]))
	return svc.profiles.SetPreferredKey(cmd.Context(), uid, args[0], key, strings.ToLower(defaultKeyFlag))
}

func runProfileSetOctave(cmd *cobra.Command, args []string) error {
	uid, err := requireUser()
	if err != nil {
		return err
	}
	var offset int
	if _, err := fmt.Sscanf(args[1], "%d", &offset); err != nil {
		return fmt.Errorf("offset must be a whole number: %w", err)
	}
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	return svc.profiles.SetPreferredOctaveOffset(cmd.Context(), uid, args[0], offset)
}

func runProfileMetronome(cmd *cobra.Command, args []string) error {
	uid, err := requireUser()
	if err != nil {
		return err
	}
	var settings profile.MetronomeSettings
	if !metronomeClear {
		if cmd.Flags().Changed("bpm") {
			settings.BPM = &metronomeBPM
		}
		if metronomeMeter != "" {
			settings.TimeSignature = &metronomeMeter
		}
		if settings.IsEmpty() {
			return fmt.Errorf("give --bpm, --time or --clear")
		}
	}
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	return svc.profiles.SetMetronomeSettings(cmd.Context(), uid, args[0], settings)
}

func runProfileNames(cmd *cobra.Command, args []string) error {
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	names := svc.profiles.DisplayNames(cmd.Context(), args)
	return render(cmd.OutOrStdout(), outputFormat, names, func(w io.Writer) {
		for _, id := range args {
			fmt.Fprintf(w, "%s\t%s\n", id, names[id])
		}
	})
}
