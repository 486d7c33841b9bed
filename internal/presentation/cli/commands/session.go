package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feltworks/rangesync/internal/domain/session"
	"github.com/feltworks/rangesync/internal/presentation/cli/output"
)

// NewSessionCmd creates the session command group.
func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Track live poker sessions",
		Long: `Track live poker sessions.

An active session stays on this device, including its table seating
state. Finishing a session strips the table state and queues the
record for cloud sync.`,
	}

	cmd.AddCommand(newSessionStartCmd())
	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionShowCmd())
	cmd.AddCommand(newSessionSeatCmd())
	cmd.AddCommand(newSessionFinishCmd())
	cmd.AddCommand(newSessionDeleteCmd())

	return cmd
}

// newSessionStartCmd creates the 'session start' command.
func newSessionStartCmd() *cobra.Command {
	var gameType string

	cmd := &cobra.Command{
		Use:   "start <venue> <stakes>",
		Short: "Start a live session",
		Example: `  # Start a 1/2 session at the Bellagio
  rangesync session start Bellagio 1/2

  # Start a PLO session
  rangesync session start "Lucky Chances" 5/5 --game plo`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			sess, err := container.Sessions().Start(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to start session: %w", err)
			}
			if gameType != "" {
				sess.GameType = gameType
				if err := container.Sessions().Save(cmd.Context(), sess); err != nil {
					return fmt.Errorf("failed to save session: %w", err)
				}
			}

			formatter.Success("Session started: %s %s", sess.Venue, sess.Stakes)
			formatter.Item("ID", sess.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&gameType, "game", "", "game type (e.g. nlhe, plo)")

	return cmd
}

// newSessionListCmd creates the 'session list' command.
func newSessionListCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			sessions, err := container.Sessions().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if activeOnly {
				filtered := sessions[:0]
				for _, s := range sessions {
					if s.IsActive {
						filtered = append(filtered, s)
					}
				}
				sessions = filtered
			}

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(sessions)
			}
			if len(sessions) == 0 {
				formatter.Info("No sessions recorded.")
				return nil
			}

			table := output.TableData{
				Columns: []output.TableColumn{
					{Header: "ID"},
					{Header: "VENUE"},
					{Header: "STAKES"},
					{Header: "STATUS"},
					{Header: "STARTED"},
				},
			}
			for _, s := range sessions {
				status := "finished"
				if s.IsActive {
					status = "active"
				}
				table.Rows = append(table.Rows, []string{
					s.ID,
					s.Venue,
					s.Stakes,
					status,
					s.StartedAt.Format("2006-01-02 15:04"),
				})
			}
			return formatter.Table(table)
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "show only active sessions")

	return cmd
}

// newSessionShowCmd creates the 'session show' command.
func newSessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session including table state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			sess, err := container.Sessions().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(sess)
			}

			formatter.Header(fmt.Sprintf("%s %s", sess.Venue, sess.Stakes))
			formatter.Item("ID", sess.ID)
			if sess.GameType != "" {
				formatter.Item("Game", sess.GameType)
			}
			if sess.IsActive {
				formatter.Item("Status", "active")
			} else {
				formatter.Item("Status", "finished")
				if sess.EndedAt != nil {
					formatter.Item("Ended", sess.EndedAt.Format("2006-01-02 15:04"))
				}
			}
			formatter.Item("Started", sess.StartedAt.Format("2006-01-02 15:04"))

			if sess.Table != nil && len(sess.Table.Seats) > 0 {
				formatter.Println("")
				formatter.Println("%s", formatter.Bold("Table"))
				for _, seat := range sess.Table.Seats {
					label := seat.Label
					if seat.PlayerID != "" {
						label = seat.PlayerID
					}
					formatter.Item(fmt.Sprintf("Seat %d", seat.Number), label)
				}
			}
			return nil
		},
	}
}

// newSessionSeatCmd creates the 'session seat' command.
func newSessionSeatCmd() *cobra.Command {
	var playerID string
	var label string

	cmd := &cobra.Command{
		Use:   "seat <session-id> <seat-number>",
		Short: "Record who is sitting at a seat",
		Long: `Record who is sitting at a seat in an active session.

Seat assignments are transient table state. They never leave this
device; only the session record itself syncs once finished.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			var seatNo int
			if _, err := fmt.Sscanf(args[1], "%d", &seatNo); err != nil || seatNo < 1 {
				return fmt.Errorf("invalid seat number: %s", args[1])
			}
			if playerID == "" && label == "" {
				return fmt.Errorf("one of --player or --label is required")
			}

			sess, err := container.Sessions().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !sess.IsActive {
				return fmt.Errorf("session %s is finished; seating is only tracked while live", sess.ID)
			}

			if sess.Table == nil {
				sess.Table = &session.TableState{}
			}
			seat := session.Seat{Number: seatNo, PlayerID: playerID, Label: label}
			replaced := false
			for i, s := range sess.Table.Seats {
				if s.Number == seatNo {
					sess.Table.Seats[i] = seat
					replaced = true
					break
				}
			}
			if !replaced {
				sess.Table.Seats = append(sess.Table.Seats, seat)
			}

			if err := container.Sessions().Save(cmd.Context(), sess); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}
			GetFormatter().Success("Seat %d updated", seatNo)
			return nil
		},
	}

	cmd.Flags().StringVar(&playerID, "player", "", "tracked player id in this seat")
	cmd.Flags().StringVar(&label, "label", "", "free-form label for an untracked player")

	return cmd
}

// newSessionFinishCmd creates the 'session finish' command.
func newSessionFinishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finish <id>",
		Short: "Finish a session and queue it for sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			sess, err := container.Sessions().Finish(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to finish session: %w", err)
			}
			GetFormatter().Success("Session finished: %s %s", sess.Venue, sess.Stakes)
			return nil
		},
	}
}

// newSessionDeleteCmd creates the 'session delete' command.
func newSessionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			if err := container.Sessions().Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			GetFormatter().Success("Session deleted")
			return nil
		},
	}
}
