package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/simon/sshtui/internal/ansi"
	"github.com/simon/sshtui/internal/screen"
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Render a recorded session to plain text",
	Long: `Feed a file written by "connect --record" through the terminal
emulator and print the final screen.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read recording: %w", err)
		}

		cols, _ := cmd.Flags().GetInt("cols")
		rows, _ := cmd.Flags().GetInt("rows")
		if cols <= 0 || rows <= 0 {
			w, h, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				w, h = 80, 24
			}
			if cols <= 0 {
				cols = w
			}
			if rows <= 0 {
				rows = h
			}
		}

		var dropped int
		buf := screen.NewBuffer(cols, rows)
		p := ansi.New(buf)
		p.SetUnknownHandler(func(string) { dropped++ })
		p.Feed(data)

		fmt.Println(buf.Snapshot().String())
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			fmt.Fprintf(os.Stderr, "%d bytes, %d unsupported sequences\n", len(data), dropped)
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().Int("cols", 0, "Screen width (default: terminal width or 80)")
	replayCmd.Flags().Int("rows", 0, "Screen height (default: terminal height or 24)")
	replayCmd.Flags().BoolP("verbose", "v", false, "Report byte and dropped-sequence counts on stderr")
	rootCmd.AddCommand(replayCmd)
}
