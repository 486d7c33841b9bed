package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/feltworks/rangesync/internal/presentation/cli/output"
)

// NewShareCmd creates the share command group.
func NewShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Send and receive one-shot range snapshots",
		Long: `Send and receive one-shot range snapshots.

A share is a single copy of a player's ranges sent to a friend, with
no ongoing link. Re-sending a snapshot of the same player replaces the
earlier share. Accepting imports the ranges fill-empty into one of
your players.`,
	}

	cmd.AddCommand(newShareSendCmd())
	cmd.AddCommand(newShareListCmd())
	cmd.AddCommand(newShareAcceptCmd())
	cmd.AddCommand(newShareDismissCmd())

	return cmd
}

// newShareSendCmd creates the 'share send' command.
func newShareSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <friend-user-id> <player-id>",
		Short: "Send a snapshot of a player's ranges to a friend",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			share, err := container.Links().SendShare(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to send share: %w", err)
			}
			formatter := GetFormatter()
			formatter.Success("Share queued: %s → %s", share.PlayerName, share.ToUserID)
			formatter.Item("ID", share.ID)
			return nil
		},
	}
}

// newShareListCmd creates the 'share list' command.
func newShareListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List shares waiting for you",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			shares, err := container.Links().ListIncomingShares(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list shares: %w", err)
			}

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(shares)
			}
			if len(shares) == 0 {
				formatter.Info("No incoming shares.")
				return nil
			}

			table := output.TableData{
				Columns: []output.TableColumn{
					{Header: "ID"},
					{Header: "FROM"},
					{Header: "PLAYER"},
					{Header: "RANGES"},
					{Header: "SENT"},
				},
			}
			for _, s := range shares {
				table.Rows = append(table.Rows, []string{
					s.ID,
					s.FromUserID,
					s.PlayerName,
					fmt.Sprintf("%d", len(s.Ranges)),
					s.CreatedAt.Format("2006-01-02"),
				})
			}
			return formatter.Table(table)
		},
	}
}

// newShareAcceptCmd creates the 'share accept' command.
func newShareAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <share-id> <player-id>",
		Short: "Import a share into one of your players",
		Long: `Import a share into one of your players.

Only range keys that are empty on your player are filled; your own
selections are kept. The share is consumed either way.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			res, err := container.Links().AcceptShare(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to accept share: %w", err)
			}

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(res)
			}
			if res.Added == 0 {
				formatter.Success("Share accepted; nothing to import")
			} else {
				formatter.Success("Imported %d range key(s): %s", res.Added, strings.Join(res.RangeKeysAdded, ", "))
			}
			if res.Skipped > 0 {
				formatter.Info("Kept %d local range key(s)", res.Skipped)
			}
			return nil
		},
	}
}

// newShareDismissCmd creates the 'share dismiss' command.
func newShareDismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <share-id>",
		Short: "Discard a share without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			if err := container.Links().DismissShare(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to dismiss share: %w", err)
			}
			GetFormatter().Success("Share dismissed")
			return nil
		},
	}
}
