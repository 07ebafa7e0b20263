package main

import (
	"fmt"
	"io"
	"time"

	"jazz_picker_backend/internal/music"
	"jazz_picker_backend/internal/session"

	"github.com/spf13/cobra"
)

var bandsSessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"groove-sync"},
	Short:   "Lead or follow a band's Groove Sync session",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <band-id>",
	Short: "Show the band's active session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <band-id>",
	Short: "Start a session with the user as leader",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionStart,
}

var sessionShareCmd = &cobra.Command{
	Use:   "share <band-id> <title> <concert-key>",
	Short: "Share a song with everyone following the session",
	Args:  cobra.ExactArgs(3),
	RunE:  runSessionShare,
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <band-id>",
	Short: "End the band's session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionEnd,
}

var sessionFollowCmd = &cobra.Command{
	Use:   "follow <band-id>",
	Short: "Mark the user as following the session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionFollow,
}

var sessionWatchCmd = &cobra.Command{
	Use:   "watch [band-id...]",
	Short: "Print live sessions as they change (defaults to the user's bands)",
	RunE:  runSessionWatch,
}

var (
	sessionLeaderName string
	sessionCustom     bool
	sessionOctave     int
	sessionUnfollow   bool
)

func init() {
	sessionStartCmd.Flags().StringVar(&sessionLeaderName, "name", "", "Leader name shown to followers (default: profile display name)")
	sessionShareCmd.Flags().BoolVar(&sessionCustom, "custom", false, "The song is a custom chart, not from the catalog")
	sessionShareCmd.Flags().IntVar(&sessionOctave, "octave", 0, "Octave offset for followers")
	sessionFollowCmd.Flags().BoolVar(&sessionUnfollow, "stop", false, "Stop following")

	bandsSessionCmd.AddCommand(sessionShowCmd, sessionStartCmd, sessionShareCmd, sessionEndCmd,
		sessionFollowCmd, sessionWatchCmd)
}

func printSession(w io.Writer, s *session.Session, now time.Time) {
	if s == nil {
		fmt.Fprintln(w, "No active session.")
		return
	}
	fmt.Fprintf(w, "Band %s led by %s, idle %s\n", s.GroupID, s.LeaderName, now.Sub(s.LastActivityAt).Round(time.Second))
	if s.CurrentSong == nil {
		fmt.Fprintln(w, "  waiting for a song")
		return
	}
	fmt.Fprintf(w, "  now playing: %s in %s", s.CurrentSong.Title, music.FormatKey(s.CurrentSong.ConcertKey))
	if s.CurrentSong.OctaveOffset != 0 {
		fmt.Fprintf(w, " (octave %+d)", s.CurrentSong.OctaveOffset)
	}
	fmt.Fprintln(w)
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	s, err := svc.sessions.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, s, func(w io.Writer) { printSession(w, s, time.Now()) })
}

func runSessionStart(cmd *cobra.Command, args []string) error {
	uid, err := requireUser()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	name := sessionLeaderName
	if name == "" {
		name = svc.profiles.DisplayNames(ctx, []string{uid})[uid]
	}
	if err := svc.sessions.Start(ctx, args[0], uid, name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Session started in band %s\n", args[0])
	return nil
}

func runSessionShare(cmd *cobra.Command, args []string) error {
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	song := session.SharedSong{Title: args[1], ConcertKey: args[2], OctaveOffset: sessionOctave}
	if sessionCustom {
		song.Source = session.SourceCustom
	}
	if err := svc.sessions.ShareSong(cmd.Context(), args[0], song); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Shared %s\n", song.Title)
	return nil
}

func runSessionEnd(cmd *cobra.Command, args []string) error {
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	if err := svc.sessions.End(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Session ended in band %s\n", args[0])
	return nil
}

func runSessionFollow(cmd *cobra.Command, args []string) error {
	uid, err := requireUser()
	if err != nil {
		return err
	}
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	return svc.sessions.SetFollowing(cmd.Context(), args[0], uid, !sessionUnfollow)
}

func runSessionWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	bandIDs := args
	if len(bandIDs) == 0 {
		uid, err := requireUser()
		if err != nil {
			return err
		}
		bands, err := svc.groups.UserGroups(ctx, uid)
		if err != nil {
			return err
		}
		for _, b := range bands {
			bandIDs = append(bandIDs, b.ID)
		}
	}

	out := cmd.OutOrStdout()
	errs := make(chan error, 1)
	sub := svc.sessions.SubscribeAll(ctx, bandIDs, func(sessions []session.Session) {
		if err := render(out, outputFormat, sessions, func(w io.Writer) {
			now := time.Now()
			fmt.Fprintf(w, "── %s ──\n", now.Format(time.TimeOnly))
			if len(sessions) == 0 {
				printSession(w, nil, now)
			}
			for i := range sessions {
				printSession(w, &sessions[i], now)
			}
		}); err != nil {
			cliLog.Warn("Failed to print sessions: " + err.Error())
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
