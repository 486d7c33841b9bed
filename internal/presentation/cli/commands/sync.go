package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	appSync "github.com/feltworks/rangesync/internal/application/sync"
	"github.com/feltworks/rangesync/internal/presentation/cli/output"
)

// SyncStatus holds the sync status for JSON output.
type SyncStatus struct {
	Status       string `json:"status"`
	Online       bool   `json:"online"`
	SignedIn     bool   `json:"signed_in"`
	PendingItems int    `json:"pending_items"`
	LastSyncAt   string `json:"last_sync_at,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}

// NewSyncCmd creates the sync command group.
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize local changes with the cloud",
		Long: `Synchronize local changes with the cloud store.

Local edits queue in the outbox and are pushed oldest-first. Pull
folds remote changes into the local store, skipping anything that
still has unpushed local edits.`,
	}

	cmd.AddCommand(newSyncNowCmd())
	cmd.AddCommand(newSyncPullCmd())
	cmd.AddCommand(newSyncFullCmd())
	cmd.AddCommand(newSyncStatusCmd())

	return cmd
}

// newSyncNowCmd creates the 'sync now' command.
func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Push pending local changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			ctx := cmd.Context()
			if err := container.Synchronizer().PushPending(ctx); err != nil {
				return fmt.Errorf("push failed: %w", err)
			}
			return reportSyncOutcome(ctx, "Push")
		},
	}
}

// newSyncPullCmd creates the 'sync pull' command.
func newSyncPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull remote changes into the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			ctx := cmd.Context()
			if err := container.Synchronizer().PullFromCloud(ctx); err != nil {
				return fmt.Errorf("pull failed: %w", err)
			}
			return reportSyncOutcome(ctx, "Pull")
		},
	}
}

// newSyncFullCmd creates the 'sync full' command.
func newSyncFullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "full",
		Short: "Push pending changes, then pull remote changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			ctx := cmd.Context()
			if err := container.Synchronizer().FullSync(ctx); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			return reportSyncOutcome(ctx, "Sync")
		},
	}
}

// newSyncStatusCmd creates the 'sync status' command.
func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show synchronizer status and pending queue depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()
			ctx := cmd.Context()

			sync := container.Synchronizer()
			pending, err := container.Outbox().List(ctx)
			if err != nil {
				return fmt.Errorf("failed to read outbox: %w", err)
			}
			_, signedIn := container.Identity().CurrentUser()

			status := SyncStatus{
				Status:       string(sync.Status()),
				Online:       container.Connectivity().Online(ctx),
				SignedIn:     signedIn,
				PendingItems: len(pending),
			}
			if at := sync.LastSyncAt(); !at.IsZero() {
				status.LastSyncAt = at.Format("2006-01-02 15:04:05")
			}
			if err := sync.LastError(); err != nil {
				status.LastError = err.Error()
			}

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(status)
			}

			formatter.Header("Sync Status")
			formatter.Item("Status", status.Status)
			formatter.Item("Online", fmt.Sprintf("%t", status.Online))
			formatter.Item("Signed in", fmt.Sprintf("%t", status.SignedIn))
			formatter.Item("Pending items", fmt.Sprintf("%d", status.PendingItems))
			if status.LastSyncAt != "" {
				formatter.Item("Last sync", status.LastSyncAt)
			}
			if status.LastError != "" {
				formatter.Item("Last error", status.LastError)
			}
			return nil
		},
	}
}

// reportSyncOutcome prints the result of a completed sync pass. A pass
// that returns nil can still have ended offline or with retained
// items; the synchronizer status tells the real story.
func reportSyncOutcome(ctx context.Context, verb string) error {
	container := GetContainer()
	formatter := GetFormatter()

	pending, err := container.Outbox().List(ctx)
	if err != nil {
		return err
	}

	switch container.Synchronizer().Status() {
	case appSync.StatusOffline:
		formatter.Warning("%s skipped: offline (%d items pending)", verb, len(pending))
	case appSync.StatusError:
		formatter.Warning("%s completed with errors: %v (%d items retained)", verb, container.Synchronizer().LastError(), len(pending))
	default:
		if len(pending) > 0 {
			formatter.Success("%s complete (%d items still pending)", verb, len(pending))
		} else {
			formatter.Success("%s complete", verb)
		}
	}
	return nil
}
