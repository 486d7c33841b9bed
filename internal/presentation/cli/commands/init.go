package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/feltworks/rangesync/internal/infrastructure/config"
	"github.com/feltworks/rangesync/internal/presentation/cli/output"
)

// InitResult holds the result of the init command for JSON output.
type InitResult struct {
	ConfigDir   string `json:"config_dir"`
	ConfigFile  string `json:"config_file"`
	Initialized bool   `json:"initialized"`
}

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize rangesync configuration",
		Long: `Initialize rangesync configuration interactively.

This command creates the ~/.rangesync/ directory and generates a
config.yaml with your identity and cloud sync settings. Leaving the
user id blank configures guest mode: everything stays on this device
and links, shares, and cloud sync are disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")

	return cmd
}

// prompter handles interactive user input.
type prompter struct {
	reader    *bufio.Reader
	formatter *output.Formatter
}

func newPrompter(formatter *output.Formatter) *prompter {
	return &prompter{
		reader:    bufio.NewReader(os.Stdin),
		formatter: formatter,
	}
}

// prompt asks a question and returns the answer (or default if empty).
func (p *prompter) prompt(question, defaultValue string) (string, error) {
	if defaultValue != "" {
		p.formatter.Print("%s [%s]: ", question, defaultValue)
	} else {
		p.formatter.Print("%s: ", question)
	}

	answer, err := p.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return defaultValue, nil
	}
	return answer, nil
}

func runInit(force bool) error {
	formatter := output.NewFormatter()

	loader, err := config.NewLoader("")
	if err != nil {
		return err
	}
	configPath := loader.DefaultConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		formatter.Warning("Configuration already exists at %s", configPath)
		formatter.Println("Use --force to overwrite.")
		return nil
	}

	formatter.Header("Rangesync Setup")
	formatter.Println("")

	p := newPrompter(formatter)
	cfg := config.NewDefaultConfig()

	userID, err := p.prompt("User id (blank for guest mode)", "")
	if err != nil {
		return err
	}
	cfg.Identity.UserID = userID

	if userID != "" {
		displayName, err := p.prompt("Display name", userID)
		if err != nil {
			return err
		}
		cfg.Identity.DisplayName = displayName

		baseURL, err := p.prompt("Sync server URL", "")
		if err != nil {
			return err
		}
		cfg.Remote.BaseURL = baseURL

		if baseURL != "" {
			apiKey, err := p.prompt("API key", "")
			if err != nil {
				return err
			}
			cfg.Remote.APIKey = apiKey
		}
	}

	if err := loader.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	formatter.Println("")
	formatter.Success("Configuration written to %s", configPath)
	if userID == "" {
		formatter.Info("Guest mode: all data stays on this device.")
	}
	return nil
}
