package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iliyamo/event-platform/internal/client"
)

func newNotificationsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "Read and manage the notification inbox",
	}
	cmd.AddCommand(newNotificationsListCmd(opts), newNotificationsToggleCmd(opts), newNotificationsReadAllCmd(opts))
	return cmd
}

func newNotificationsListCmd(opts *options) *cobra.Command {
	var unread bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			items, err := c.Notifications(cmd.Context(), unread)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tREAD\tTYPE\tCREATED\tTITLE")
			for _, n := range items {
				read := " "
				if n.IsRead {
					read = "x"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", n.ID, read, n.Type, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread notifications")
	return cmd
}

func newNotificationsToggleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip the read state of a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			inbox := client.NewInbox(c)
			if err := inbox.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := inbox.Toggle(cmd.Context(), id); err != nil {
				return err
			}
			for _, n := range inbox.Items() {
				if n.ID == id {
					state := "unread"
					if n.IsRead {
						state = "read"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "notification %d marked %s (%d unread)\n", id, state, inbox.Unread())
				}
			}
			return nil
		},
	}
}

func newNotificationsReadAllCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.newClient()
			if err != nil {
				return err
			}
			n, err := c.MarkAllRead(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d notifications marked read\n", n)
			return nil
		},
	}
}
