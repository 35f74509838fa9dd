package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show relayed item counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		stats, err := db.LedgerStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("ledger stats: %w", err)
		}

		fmt.Printf("Relayed items: %d\n", stats.Total)

		kinds := make([]string, 0, len(stats.ByKind))
		for kind := range stats.ByKind {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Printf("  %s: %d\n", kind, stats.ByKind[kind])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
