package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/feltworks/rangesync/internal/domain/ranges"
	"github.com/feltworks/rangesync/internal/presentation/cli/output"
)

// NewPlayerCmd creates the player command group.
func NewPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Manage tracked players",
		Long: `Manage tracked players and their hand ranges.

Players are profiles of opponents: hand ranges per position and
action, dated notes, and the venues you have seen them at. Edits are
local-first and sync to the cloud in the background.`,
	}

	cmd.AddCommand(newPlayerListCmd())
	cmd.AddCommand(newPlayerAddCmd())
	cmd.AddCommand(newPlayerShowCmd())
	cmd.AddCommand(newPlayerDeleteCmd())
	cmd.AddCommand(newPlayerNoteCmd())
	cmd.AddCommand(newPlayerLocationCmd())
	cmd.AddCommand(newPlayerRangeCmd())

	return cmd
}

// newPlayerListCmd creates the 'player list' command.
func newPlayerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked players",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			players, err := container.Players().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list players: %w", err)
			}

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(players)
			}

			if len(players) == 0 {
				formatter.Info("No players tracked yet. Use 'rangesync player add <name>'.")
				return nil
			}

			sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })

			table := output.TableData{
				Columns: []output.TableColumn{
					{Header: "ID"},
					{Header: "NAME"},
					{Header: "RANGES"},
					{Header: "VERSION"},
					{Header: "UPDATED"},
				},
			}
			for _, p := range players {
				table.Rows = append(table.Rows, []string{
					p.ID,
					p.Name,
					fmt.Sprintf("%d", len(p.Ranges)),
					fmt.Sprintf("%d", p.RangeVersion),
					p.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			return formatter.Table(table)
		},
	}
}

// newPlayerAddCmd creates the 'player add' command.
func newPlayerAddCmd() *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a tracked player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			p, err := container.Players().Create(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to add player: %w", err)
			}
			if color != "" {
				p.Color = color
				if err := container.Players().SaveMetadata(cmd.Context(), p); err != nil {
					return fmt.Errorf("failed to set color: %w", err)
				}
			}

			formatter.Success("Player added: %s", p.Name)
			formatter.Item("ID", p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "display color tag")

	return cmd
}

// newPlayerShowCmd creates the 'player show' command.
func newPlayerShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a player's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			p, err := container.Players().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(p)
			}

			formatter.Header(p.Name)
			formatter.Item("ID", p.ID)
			if p.Color != "" {
				formatter.Item("Color", p.Color)
			}
			formatter.Item("Range version", fmt.Sprintf("%d", p.RangeVersion))
			formatter.Item("Created", p.CreatedAt.Format("2006-01-02"))
			if len(p.Locations) > 0 {
				formatter.Item("Seen at", strings.Join(p.Locations, ", "))
			}

			if len(p.Ranges) > 0 {
				formatter.Println("")
				formatter.Println("%s", formatter.Bold("Ranges"))
				for _, key := range sortedRangeKeys(p.Ranges) {
					formatter.Item(key, fmt.Sprintf("%d hands", len(p.Ranges[key])))
				}
			}

			if len(p.NoteEntries) > 0 {
				formatter.Println("")
				formatter.Println("%s", formatter.Bold("Notes"))
				for _, n := range p.NoteEntries {
					formatter.Item(n.CreatedAt.Format("2006-01-02"), n.Text)
				}
			}
			return nil
		},
	}
}

// newPlayerDeleteCmd creates the 'player delete' command.
func newPlayerDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a player and their ranges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			if err := container.Players().Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete player: %w", err)
			}
			GetFormatter().Success("Player deleted")
			return nil
		},
	}
}

// newPlayerNoteCmd creates the 'player note' command.
func newPlayerNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <text>",
		Short: "Add a dated note to a player",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			text := strings.Join(args[1:], " ")
			if err := container.Players().AddNote(cmd.Context(), args[0], text); err != nil {
				return fmt.Errorf("failed to add note: %w", err)
			}
			GetFormatter().Success("Note added")
			return nil
		},
	}
}

// newPlayerLocationCmd creates the 'player location' command.
func newPlayerLocationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "location <id> <venue>",
		Short: "Record a venue the player was seen at",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			venue := strings.Join(args[1:], " ")
			if err := container.Players().AddLocation(cmd.Context(), args[0], venue); err != nil {
				return fmt.Errorf("failed to add location: %w", err)
			}
			GetFormatter().Success("Location recorded")
			return nil
		},
	}
}

// newPlayerRangeCmd creates the 'player range' command group.
func newPlayerRangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Inspect and edit a player's hand ranges",
		Long: `Inspect and edit a player's hand ranges.

Ranges are keyed by position and action, e.g. "early_open-raise" or
"blinds_defend". Positions: early, middle, late, blinds. Actions:
open-raise, call, 3bet, defend.`,
	}

	cmd.AddCommand(newPlayerRangeShowCmd())
	cmd.AddCommand(newPlayerRangeSetCmd())
	cmd.AddCommand(newPlayerRangeClearCmd())

	return cmd
}

// newPlayerRangeShowCmd creates the 'player range show' command.
func newPlayerRangeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id> [key]",
		Short: "Show a player's ranges, or one range in full",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			p, err := container.Players().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if len(args) == 2 {
				key := args[1]
				r := p.Ranges.Get(key)
				if formatter.Format() == output.FormatJSON {
					return formatter.JSON(map[string]any{"key": key, "range": r})
				}
				if len(r) == 0 {
					formatter.Info("No hands selected for %s", key)
					return nil
				}
				formatter.Header(fmt.Sprintf("%s: %s", p.Name, key))
				for _, hand := range sortedHands(r) {
					formatter.Item(hand, string(r[hand]))
				}
				return nil
			}

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(p.Ranges)
			}
			if len(p.Ranges) == 0 {
				formatter.Info("No ranges recorded for %s", p.Name)
				return nil
			}
			formatter.Header(p.Name)
			for _, key := range sortedRangeKeys(p.Ranges) {
				formatter.Item(key, fmt.Sprintf("%d hands", len(p.Ranges[key])))
			}
			return nil
		},
	}
}

// newPlayerRangeSetCmd creates the 'player range set' command.
func newPlayerRangeSetCmd() *cobra.Command {
	var auto bool

	cmd := &cobra.Command{
		Use:   "set <id> <key> <hands...>",
		Short: "Replace the selected hands for one range key",
		Example: `  # Mark an early-position opening range
  rangesync player range set p1 early_open-raise AA KK QQ AKs AKo

  # Record preset-derived selections
  rangesync player range set p1 blinds_defend --auto A2s A3s A4s`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			state := ranges.StateManualSelected
			if auto {
				state = ranges.StateAutoSelected
			}

			r := make(ranges.Range, len(args)-2)
			for _, hand := range args[2:] {
				if !ranges.IsValidHand(hand) {
					return fmt.Errorf("unknown hand label: %s", hand)
				}
				r[hand] = state
			}

			if err := container.Players().SetRange(cmd.Context(), args[0], args[1], r); err != nil {
				return fmt.Errorf("failed to set range: %w", err)
			}
			GetFormatter().Success("Range %s updated (%d hands)", args[1], len(r))
			return nil
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "mark hands as preset-selected instead of manual")

	return cmd
}

// newPlayerRangeClearCmd creates the 'player range clear' command.
func newPlayerRangeClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <id> <key>",
		Short: "Clear all hands for one range key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}

			if err := container.Players().SetRange(cmd.Context(), args[0], args[1], ranges.Range{}); err != nil {
				return fmt.Errorf("failed to clear range: %w", err)
			}
			GetFormatter().Success("Range %s cleared", args[1])
			return nil
		},
	}
}

func sortedRangeKeys(set ranges.RangeSet) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedHands(r ranges.Range) []string {
	hands := make([]string, 0, len(r))
	for hand := range r {
		hands = append(hands, hand)
	}
	sort.Strings(hands)
	return hands
}
