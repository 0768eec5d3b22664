package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/simon/sshtui/internal/config"
	"github.com/simon/sshtui/internal/session"
	"github.com/simon/sshtui/internal/state"
)

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// setupLogger points the global logger at the log file. The TUI owns the
// terminal, so logs only go to stderr when asked for with "-".
func setupLogger(cfg *config.Config) (func(), error) {
	levelName := logLevel
	if levelName == "" {
		levelName = cfg.LogLevel
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil || levelName == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if logFile == "-" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return func() {}, nil
	}

	path := logFile
	if path == "" {
		dir, err := state.DefaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "sshtui.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return func() { _ = f.Close() }, nil
}

// openStore opens the history database. History is optional, so a failure
// is logged and nil returned.
func openStore() *state.Store {
	store, err := state.Open()
	if err != nil {
		log.Warn().Err(err).Msg("connection history disabled")
		return nil
	}
	if n, err := store.CloseDangling(); err != nil {
		log.Warn().Err(err).Msg("close dangling connections")
	} else if n > 0 {
		log.Info().Int64("count", n).Msg("closed connections left open by a previous run")
	}
	return store
}

func newLauncher(cfg *config.Config) session.Launcher {
	remote := &session.SSHLauncher{
		Binary:  cfg.SSH.Binary,
		Options: cfg.SSH.Options,
		Term:    cfg.SSH.Term,
	}
	if k := cfg.DefaultKey(); k != nil {
		remote.DefaultKey = k.Path
	}
	return session.Dispatch{
		Local:  &session.LocalLauncher{Term: cfg.SSH.Term},
		Remote: remote,
	}
}
