package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simon/sshtui/internal/session"
	"github.com/simon/sshtui/internal/tui"
)

var (
	configPath string
	logFile    string
	logLevel   string
)

func SetVersionInfo(version, commit string) {
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
}

var rootCmd = &cobra.Command{
	Use:           "sshtui",
	Short:         "Browse configured hosts and open SSH sessions in an embedded terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI("", "")
	},
}

// runTUI starts the interactive UI. A non-empty host is connected as soon
// as the window size is known; a non-empty record path receives a copy of
// all session output.
func runTUI(host, record string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	closeLog, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	store := openStore()
	if store != nil {
		defer store.Close()
	}

	opts := []session.Option{session.WithQueueWarn(cfg.QueueWarnBytes)}
	if record != "" {
		f, err := os.Create(record)
		if err != nil {
			return fmt.Errorf("create recording: %w", err)
		}
		defer f.Close()
		opts = append(opts, session.WithRecorder(f))
	}

	bridge := session.NewBridge(newLauncher(cfg), opts...)
	defer func() { _ = bridge.Disconnect() }()

	m := tui.NewModel(tui.Options{
		Config:  cfg,
		Bridge:  bridge,
		Store:   store,
		Connect: host,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	log.Info().Str("config", configPath).Msg("starting")
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	log.Info().Msg("exited")
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/sshtui/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", `log file, "-" for stderr (default in the state directory)`)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
