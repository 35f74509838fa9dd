package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Manage global ad stop words",
}

var keywordsAddCmd = &cobra.Command{
	Use:   "add <word>",
	Short: "Add a stop word",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return db.AddAdKeyword(cmd.Context(), args[0])
	},
}

var keywordsRemoveCmd = &cobra.Command{
	Use:   "remove <word>",
	Short: "Remove a stop word",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return db.RemoveAdKeyword(cmd.Context(), args[0])
	},
}

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stop words",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		keywords, err := db.AdKeywords(cmd.Context())
		if err != nil {
			return fmt.Errorf("list ad keywords: %w", err)
		}
		for _, kw := range keywords {
			fmt.Println(" ", kw)
		}
		return nil
	},
}

func init() {
	keywordsCmd.AddCommand(keywordsAddCmd, keywordsRemoveCmd, keywordsListCmd)
	rootCmd.AddCommand(keywordsCmd)
}
