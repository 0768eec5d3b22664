package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/simon/sshtui/internal/state"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent connections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("limit")
		if n <= 0 {
			return fmt.Errorf("limit must be positive, got %d", n)
		}

		store, err := state.Open()
		if err != nil {
			return fmt.Errorf("failed to open state db: %w", err)
		}
		defer store.Close()

		conns, err := store.Recent(n)
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}
		if len(conns) == 0 {
			fmt.Println("No connections yet.")
			return nil
		}

		now := time.Now()
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("STARTED", "HOST", "TARGET", "STATUS", "DURATION", "RECEIVED", "ERROR")
		for _, c := range conns {
			target := "local"
			if c.Address != "" {
				target = c.Address
				if c.User != "" {
					target = c.User + "@" + target
				}
				if c.Port != 0 && c.Port != 22 {
					target += ":" + strconv.Itoa(c.Port)
				}
			}
			t.Row(
				humanize.Time(c.StartedAt),
				c.HostName,
				target,
				c.Status,
				c.Duration(now).Round(time.Second).String(),
				humanize.IBytes(uint64(c.BytesIn)),
				c.LastError,
			)
		}
		fmt.Println(t.String())
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of connections to show")
	rootCmd.AddCommand(historyCmd)
}
