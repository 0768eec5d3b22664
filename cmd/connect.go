package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect <host>",
	Short: "Open the UI connected to a configured host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		h, ok := cfg.FindHost(args[0])
		if !ok {
			return fmt.Errorf("host %q not found in config", args[0])
		}
		record, _ := cmd.Flags().GetString("record")
		return runTUI(h.Name, record)
	},
}

func init() {
	connectCmd.Flags().StringP("record", "r", "", "Write raw session output to this file (see replay)")
	rootCmd.AddCommand(connectCmd)
}
