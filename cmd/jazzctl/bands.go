package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"jazz_picker_backend/internal/group"

	"github.com/spf13/cobra"
)

var bandsCmd = &cobra.Command{
	Use:     "bands",
	Aliases: []string{"groups"},
	Short:   "Manage bands and their members (needs --as)",
}

var bandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the bands the user belongs to",
	Args:  cobra.NoArgs,
	RunE:  runBandsList,
}

var bandsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a band with the user as its admin",
	Args:  cobra.ExactArgs(1),
	RunE:  runBandsCreate,
}

var bandsJoinCmd = &cobra.Command{
	Use:   "join <code>",
	Short: "Join a band by its code",
	Args:  cobra.ExactArgs(1),
	RunE:  runBandsJoin,
}

var bandsLeaveCmd = &cobra.Command{
	Use:   "leave <band-id>",
	Short: "Leave a band",
	Args:  cobra.ExactArgs(1),
	RunE:  runBandsLeave,
}

var bandsDeleteCmd = &cobra.Command{
	Use:   "delete <band-id>",
	Short: "Delete a band the user is the only member of",
	Args:  cobra.ExactArgs(1),
	RunE:  runBandsDelete,
}

var bandsMembersCmd = &cobra.Command{
	Use:   "members <band-id>",
	Short: "List a band's members, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runBandsMembers,
}

var bandsPromoteCmd = &cobra.Command{
	Use:   "promote <band-id> <user-id>",
	Short: "Make a member an admin",
	Args:  cobra.ExactArgs(2),
	RunE:  runBandsPromote,
}

var bandsDemoteCmd = &cobra.Command{
	Use:   "demote <band-id> <user-id>",
	Short: "Turn an admin back into a member",
	Args:  cobra.ExactArgs(2),
	RunE:  runBandsDemote,
}

var bandsRemoveCmd = &cobra.Command{
	Use:   "remove <band-id> <user-id>",
	Short: "Remove a member from a band",
	Args:  cobra.ExactArgs(2),
	RunE:  runBandsRemove,
}

func init() {
	bandsCmd.AddCommand(bandsListCmd, bandsCreateCmd, bandsJoinCmd, bandsLeaveCmd, bandsDeleteCmd,
		bandsMembersCmd, bandsPromoteCmd, bandsDemoteCmd, bandsRemoveCmd, bandsSessionCmd)
}

// bandServices resolves the acting user and the band store.
func bandServices(cmd *cobra.Command) (string, group.Service, error) {
	uid, err := requireUser()
	if err != nil {
		return "", nil, err
	}
	svc, err := openServices(cmd.Context())
	if err != nil {
		return "", nil, err
	}
	return uid, svc.groups, nil
}

func printBand(w io.Writer, g *group.Group) {
	fmt.Fprintf(w, "%s\n  id:   %s\n  code: %s\n", g.Name, g.ID, g.Code)
}

func runBandsList(cmd *cobra.Command, args []string) error {
	uid, groups, err := bandServices(cmd)
	if err != nil {
		return err
	}
	bands, err := groups.UserGroups(cmd.Context(), uid)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, bands, func(w io.Writer) {
		if len(bands) == 0 {
			fmt.Fprintln(w, "Not in any band yet.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCODE")
		for _, b := range bands {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", b.ID, b.Name, b.Code)
		}
		tw.Flush()
	})
}

func runBandsCreate(cmd *cobra.Command, args []string) error {
	uid, groups, err := bandServices(cmd)
	if err != nil {
		return err
	}
	g, err := groups.Create(cmd.Context(), args[0], uid)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, g, func(w io.Writer) { printBand(w, g) })
}

func runBandsJoin(cmd *cobra.Command, args []string) error {
	uid, groups, err := bandServices(cmd)
	if err != nil {
		return err
	}
	g, err := groups.Join(cmd.Context(), args[0], uid)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, g, func(w io.Writer) {
		fmt.Fprint(w, "Joined ")
		printBand(w, g)
	})
}

func runBandsLeave(cmd *cobra.Command, args []string) error {
	uid, groups, err := bandServices(cmd)
	if err != nil {
		return err
	}
	if err := groups.Leave(cmd.Context(), args[0], uid); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Left band %s\n", args[0])
	return nil
}

func runBandsDelete(cmd *cobra.Command, args []string) error {
	uid, groups, err := bandServices(cmd)
	if err != nil {
		return err
	}
	if err := groups.Delete(cmd.Context(), args[0], uid); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Deleted band %s\n", args[0])
	return nil
}

type memberRow struct {
	group.Member `yaml:",inline"`
	Name         string `json:"name" yaml:"name"`
}

func runBandsMembers(cmd *cobra.Command, args []string) error {
	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	members, err := svc.groups.Members(ctx, args[0])
	if err != nil {
		return err
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	names := svc.profiles.DisplayNames(ctx, ids)

	rows := make([]memberRow, len(members))
	for i, m := range members {
		rows[i] = memberRow{Member: m, Name: names[m.UserID]}
	}
	return render(cmd.OutOrStdout(), outputFormat, rows, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tROLE\tJOINED\tUSER ID")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Role, r.JoinedAt.Format(time.DateOnly), r.UserID)
		}
		tw.Flush()
	})
}

func runBandsPromote(cmd *cobra.Command, args []string) error {
	uid, groups, err := bandServices(cmd)
	if err != nil {
		return err
	}
	if err := groups.Promote(cmd.Context(), args[0], args[1], uid); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s is now an admin\n", args[1])
	return nil
}

func runBandsDemote(cmd *cobra.Command, args []string) error {
	uid, groups, err := bandServices(cmd)
	if err != nil {
		return err
	}
	if err := groups.Demote(cmd.Context(), args[0], args[1], uid); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s is now a member\n", args[1])
	return nil
}

func runBandsRemove(cmd *cobra.Command, args []string) error {
	uid, groups, err := bandServices(cmd)
	if err != nil {
		return err
	}
	if err := groups.RemoveMember(cmd.Context(), args[0], args[1], uid); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Removed %s\n", args[1])
	return nil
}
