package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ryanboscobanze/speech-companion/internal/config"
	"github.com/ryanboscobanze/speech-companion/internal/store"
)

var (
	historySession string
	historyLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print rows saved by earlier sessions",
	Long: `Print persisted result rows, newest first.

Example:
  speech-companion history --limit 20
  speech-companion history --session 3f2a9c4e-...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		if !cfg.Storage.Enabled {
			return fmt.Errorf("history storage is disabled in %s", configPath)
		}

		st, err := store.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := st.Recent(cmd.Context(), historySession, historyLimit)
		if err != nil {
			return err
		}

		if len(rows) == 0 {
			fmt.Println("No rows recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tENGINE\tSPEECH\tCONCEPTS\tSIGNALS")
		for _, r := range rows {
			var signals []string
			if r.Ambiguous {
				signals = append(signals, "ambiguous")
			}
			if r.Hesitant {
				signals = append(signals, "hesitant")
			}
			if len(signals) == 0 {
				signals = append(signals, "—")
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.CompletedAt.Format("2006-01-02 15:04:05"),
				r.Engine,
				oneLine(r.Speech, 60),
				oneLine(r.Concepts, 40),
				strings.Join(signals, ","))
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().StringVar(&historySession, "session", "", "Only show rows from this session ID")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "Maximum number of rows")
}

// oneLine collapses whitespace and truncates to limit runes
func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit-1]) + "…"
	}
	return s
}
