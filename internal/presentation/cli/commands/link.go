package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	appLink "github.com/feltworks/rangesync/internal/application/link"
	"github.com/feltworks/rangesync/internal/presentation/cli/output"
)

// NewLinkCmd creates the link command group.
func NewLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link players with friends and pull their range updates",
		Long: `Link players with friends and pull their range updates.

A link pairs one of your players with one of a friend's players. Once
active, either side can pull the peer's range updates. Imports only
fill range keys you have left empty; your own work is never
overwritten unless you explicitly select keys to replace.`,
	}

	cmd.AddCommand(newLinkRequestCmd())
	cmd.AddCommand(newLinkAcceptCmd())
	cmd.AddCommand(newLinkDeclineCmd())
	cmd.AddCommand(newLinkCancelCmd())
	cmd.AddCommand(newLinkRemoveCmd())
	cmd.AddCommand(newLinkListCmd())
	cmd.AddCommand(newLinkCheckCmd())
	cmd.AddCommand(newLinkSyncCmd())
	cmd.AddCommand(newLinkReviewedCmd())

	return cmd
}

// newLinkRequestCmd creates the 'link request' command.
func newLinkRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request <player-id> <friend-user-id>",
		Short: "Request a link from your player to a friend",
		Long: `Request a link from one of your players to a friend.

The friend picks which of their players to pair when they accept.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			l, err := container.Links().Create(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to request link: %w", err)
			}
			formatter := GetFormatter()
			formatter.Success("Link requested")
			formatter.Item("ID", l.ID)
			formatter.Item("Status", string(l.Status))
			return nil
		},
	}
}

// newLinkAcceptCmd creates the 'link accept' command.
func newLinkAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <link-id> <player-id>",
		Short: "Accept a pending link with one of your players",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			l, err := container.Links().Accept(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to accept link: %w", err)
			}
			GetFormatter().Success("Link active: %s ↔ %s", l.InitiatorPlayerID, l.RecipientPlayerID)
			return nil
		},
	}
}

// newLinkDeclineCmd creates the 'link decline' command.
func newLinkDeclineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decline <link-id>",
		Short: "Decline a pending link request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			if err := container.Links().Decline(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to decline link: %w", err)
			}
			GetFormatter().Success("Link declined")
			return nil
		},
	}
}

// newLinkCancelCmd creates the 'link cancel' command.
func newLinkCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <link-id>",
		Short: "Cancel a link request you sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			if err := container.Links().Cancel(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to cancel link: %w", err)
			}
			GetFormatter().Success("Link request cancelled")
			return nil
		},
	}
}

// newLinkRemoveCmd creates the 'link remove' command.
func newLinkRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <link-id>",
		Short: "Remove an active link",
		Long: `Remove an active link.

Removal only severs the connection. Ranges already imported stay on
your players.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			if err := container.Links().Remove(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to remove link: %w", err)
			}
			GetFormatter().Success("Link removed")
			return nil
		},
	}
}

// newLinkListCmd creates the 'link list' command.
func newLinkListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your links",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			links, err := container.Links().ListForUser(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list links: %w", err)
			}

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(links)
			}
			if len(links) == 0 {
				formatter.Info("No links.")
				return nil
			}

			table := output.TableData{
				Columns: []output.TableColumn{
					{Header: "ID"},
					{Header: "STATUS"},
					{Header: "INITIATOR"},
					{Header: "RECIPIENT"},
					{Header: "CREATED"},
				},
			}
			for _, l := range links {
				recipient := l.RecipientUserID
				if l.RecipientPlayerID != "" {
					recipient = fmt.Sprintf("%s (%s)", l.RecipientUserID, l.RecipientPlayerID)
				}
				table.Rows = append(table.Rows, []string{
					l.ID,
					string(l.Status),
					fmt.Sprintf("%s (%s)", l.InitiatorUserID, l.InitiatorPlayerID),
					recipient,
					l.CreatedAt.Format("2006-01-02"),
				})
			}
			return formatter.Table(table)
		},
	}
}

// newLinkCheckCmd creates the 'link check' command.
func newLinkCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [link-id]",
		Short: "Check linked players for range updates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			if len(args) == 1 {
				res, err := container.Links().CheckForUpdates(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("check failed: %w", err)
				}
				if formatter.Format() == output.FormatJSON {
					return formatter.JSON(res)
				}
				if res.HasUpdates {
					formatter.Info("Updates available (peer version %d)", res.TheirVersion)
				} else {
					formatter.Success("Up to date")
				}
				return nil
			}

			results, err := container.Links().CheckAllForUpdates(cmd.Context())
			if err != nil {
				return fmt.Errorf("check failed: %w", err)
			}
			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(results)
			}
			if len(results) == 0 {
				formatter.Info("No active links to check.")
				return nil
			}
			for linkID, res := range results {
				if res.HasUpdates {
					formatter.Info("%s: updates available (peer version %d)", linkID, res.TheirVersion)
				} else {
					formatter.Println("%s: up to date", linkID)
				}
			}
			return nil
		},
	}
}

// newLinkSyncCmd creates the 'link sync' command.
func newLinkSyncCmd() *cobra.Command {
	var keys []string

	cmd := &cobra.Command{
		Use:   "sync <link-id>",
		Short: "Pull the peer's range updates into your player",
		Long: `Pull the peer's range updates into your linked player.

By default only range keys that are empty on your side are imported.
With --keys, the named keys are replaced with the peer's content even
if you already have hands selected there.`,
		Example: `  # Fill-empty import
  rangesync link sync 4f7c...

  # Replace two specific range keys with the peer's version
  rangesync link sync 4f7c... --keys early_open-raise,blinds_defend`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			var res *appLink.MergeResult
			var err error
			if len(keys) > 0 {
				res, err = container.Links().SyncSelected(cmd.Context(), args[0], keys)
			} else {
				res, err = container.Links().Sync(cmd.Context(), args[0])
			}
			if err != nil {
				return fmt.Errorf("link sync failed: %w", err)
			}

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(res)
			}
			if res.Added == 0 {
				formatter.Success("Nothing to import; synced through version %d", res.NewVersion)
			} else {
				formatter.Success("Imported %d range key(s): %s", res.Added, strings.Join(res.RangeKeysAdded, ", "))
			}
			if res.Skipped > 0 {
				formatter.Info("Kept %d local range key(s): %s", res.Skipped, strings.Join(res.RangeKeysSkipped, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&keys, "keys", nil, "range keys to replace with the peer's content")

	return cmd
}

// newLinkReviewedCmd creates the 'link reviewed' command.
func newLinkReviewedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reviewed <link-id>",
		Short: "Mark the peer's current version as reviewed without importing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			if err := container.Links().MarkReviewed(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to mark reviewed: %w", err)
			}
			GetFormatter().Success("Marked as reviewed")
			return nil
		},
	}
}
