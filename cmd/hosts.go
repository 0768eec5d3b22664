package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List configured hosts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		closeLog, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		if len(cfg.Hosts()) == 0 {
			fmt.Println("No hosts configured.")
			return nil
		}

		last := map[string]string{}
		if store := openStore(); store != nil {
			defer store.Close()
			seen, err := store.LastConnected()
			if err != nil {
				log.Warn().Err(err).Msg("load connection history")
			}
			for name, t := range seen {
				last[name] = humanize.Time(t)
			}
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("GROUP", "NAME", "ADDRESS", "USER", "PORT", "KEY", "LAST CONNECTED")
		for _, g := range cfg.Groups {
			for _, h := range g.Hosts {
				addr, port := h.Host, strconv.Itoa(h.Port)
				if addr == "" {
					addr, port = "local", ""
				}
				t.Row(g.Name, h.Name, addr, h.User, port, cfg.KeyPath(h), last[h.Name])
			}
		}
		fmt.Println(t.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hostsCmd)
}
