package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/feltworks/rangesync/internal/application"
	"github.com/feltworks/rangesync/internal/application/ports"
	"github.com/feltworks/rangesync/internal/infrastructure/config"
	"github.com/feltworks/rangesync/internal/presentation/cli/output"
)

// NewConsoleCmd creates the console command for interactive mode.
func NewConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive console with background sync",
		Long: `Start an interactive console session.

The console keeps the background synchronizer running, so the outbox
drains and remote changes fold in while you work. Pending link
requests surface as notifications.

Special commands:
  /status         - Show sync status
  /sync           - Run a full sync now
  /players        - List tracked players
  /sessions       - List sessions
  /links          - List links
  /check          - Check all links for range updates
  /help           - Show help message
  /exit, /quit    - Leave the console`,
		Args: cobra.NoArgs,
		RunE: runConsole,
	}
}

// runConsole executes the interactive console loop.
func runConsole(cmd *cobra.Command, args []string) error {
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}
	formatter := GetFormatter()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	container.StartBackgroundSync(ctx)
	watchConfigFile(ctx, formatter)
	notifyPendingLinks(ctx, container, formatter)

	user, signedIn := container.Identity().CurrentUser()
	title := "Rangesync Console (guest)"
	if signedIn {
		title = fmt.Sprintf("Rangesync Console: %s", user.DisplayName)
	}
	formatter.Header(title)
	formatter.Info("Background sync every %s. Type /help for commands.", container.Config().Sync.Interval)
	formatter.Println("")

	rl, err := readline.New("> ")
	if err != nil {
		return fmt.Errorf("could not create readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			break
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		exit, err := handleConsoleCommand(ctx, line, container, formatter)
		if err != nil {
			formatter.Error("%s", err.Error())
			continue
		}
		if exit {
			break
		}
	}

	formatter.Info("Console session ended.")
	return nil
}

// handleConsoleCommand dispatches one console command.
// Returns (shouldExit, error).
func handleConsoleCommand(ctx context.Context, line string, container *application.Container, formatter *output.Formatter) (bool, error) {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/exit", "/quit":
		return true, nil

	case "/help":
		formatter.Header("Console Commands")
		formatter.Item("/status", "Show sync status")
		formatter.Item("/sync", "Run a full sync now")
		formatter.Item("/players", "List tracked players")
		formatter.Item("/sessions", "List sessions")
		formatter.Item("/links", "List links")
		formatter.Item("/check", "Check all links for range updates")
		formatter.Item("/exit, /quit", "Leave the console")
		formatter.Println("")
		return false, nil

	case "/status":
		pending, err := container.Outbox().List(ctx)
		if err != nil {
			return false, err
		}
		formatter.Item("Status", string(container.Synchronizer().Status()))
		formatter.Item("Online", fmt.Sprintf("%t", container.Connectivity().Online(ctx)))
		formatter.Item("Pending", fmt.Sprintf("%d", len(pending)))
		if at := container.Synchronizer().LastSyncAt(); !at.IsZero() {
			formatter.Item("Last sync", at.Format("15:04:05"))
		}
		return false, nil

	case "/sync":
		if err := container.Synchronizer().FullSync(ctx); err != nil {
			return false, err
		}
		formatter.Success("Sync complete (%s)", container.Synchronizer().Status())
		return false, nil

	case "/players":
		players, err := container.Players().List(ctx)
		if err != nil {
			return false, err
		}
		if len(players) == 0 {
			formatter.Info("No players tracked.")
			return false, nil
		}
		for _, p := range players {
			formatter.Item(p.ID, fmt.Sprintf("%s (v%d, %d ranges)", p.Name, p.RangeVersion, len(p.Ranges)))
		}
		return false, nil

	case "/sessions":
		sessions, err := container.Sessions().List(ctx)
		if err != nil {
			return false, err
		}
		if len(sessions) == 0 {
			formatter.Info("No sessions recorded.")
			return false, nil
		}
		for _, s := range sessions {
			status := "finished"
			if s.IsActive {
				status = "active"
			}
			formatter.Item(s.ID, fmt.Sprintf("%s %s (%s)", s.Venue, s.Stakes, status))
		}
		return false, nil

	case "/links":
		links, err := container.Links().ListForUser(ctx)
		if err != nil {
			return false, err
		}
		if len(links) == 0 {
			formatter.Info("No links.")
			return false, nil
		}
		for _, l := range links {
			formatter.Item(l.ID, fmt.Sprintf("%s: %s ↔ %s", l.Status, l.InitiatorUserID, l.RecipientUserID))
		}
		return false, nil

	case "/check":
		results, err := container.Links().CheckAllForUpdates(ctx)
		if err != nil {
			return false, err
		}
		updates := 0
		for linkID, res := range results {
			if res.HasUpdates {
				updates++
				formatter.Info("%s: updates available (peer version %d)", linkID, res.TheirVersion)
			}
		}
		if updates == 0 {
			formatter.Success("All links up to date")
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s (try /help)", line)
	}
}

// watchConfigFile warns when the config file changes on disk. The
// console does not rebuild its wiring mid-session; a restart applies
// the new settings.
func watchConfigFile(ctx context.Context, formatter *output.Formatter) {
	loader, err := config.NewLoader("")
	if err != nil {
		return
	}
	watcher, err := config.NewWatcher(loader, globalFlags.ConfigFile, func(*config.Config) {
		formatter.Warning("Configuration changed on disk; restart the console to apply.")
	})
	if err != nil {
		return
	}
	if err := watcher.Start(ctx); err != nil {
		return
	}
	go func() {
		<-ctx.Done()
		watcher.Stop()
	}()
}

// notifyPendingLinks surfaces pending link requests as they arrive.
func notifyPendingLinks(ctx context.Context, container *application.Container, formatter *output.Formatter) {
	source := container.Snapshots()
	if source == nil {
		return
	}
	user, signedIn := container.Identity().CurrentUser()
	if !signedIn {
		return
	}

	ch, cancel, err := source.Subscribe(ctx, user.ID, ports.BadgePendingLinks)
	if err != nil {
		return
	}
	go func() {
		defer cancel()
		for update := range ch {
			if update.Count > 0 {
				formatter.Info("%d pending link request(s). Use /links to review.", update.Count)
			}
		}
	}()
}
