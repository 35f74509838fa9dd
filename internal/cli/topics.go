package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"postrelay/internal/classify"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Manage destination topics",
}

var topicFlags = struct {
	thread int64
	name   string
	emoji  string
}{}

var topicsAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add or update a destination topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := db.AddTopic(cmd.Context(), classify.Topic{
			ID:       args[0],
			ThreadID: topicFlags.thread,
			Name:     topicFlags.name,
			Emoji:    topicFlags.emoji,
		}); err != nil {
			return fmt.Errorf("add topic: %w", err)
		}
		fmt.Printf("Topic %s -> thread %d\n", args[0], topicFlags.thread)
		return nil
	},
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List destination topics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		catalog, err := db.Topics(cmd.Context())
		if err != nil {
			return fmt.Errorf("list topics: %w", err)
		}

		ids := make([]string, 0, len(catalog))
		for id := range catalog {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			topic := catalog[id]
			fmt.Printf("  %s %s (%s) -> thread %d\n", topic.Emoji, topic.Name, topic.ID, topic.ThreadID)
		}
		return nil
	},
}

func init() {
	topicsAddCmd.Flags().Int64Var(&topicFlags.thread, "thread", 0, "forum thread id in the delivery chat")
	topicsAddCmd.Flags().StringVar(&topicFlags.name, "name", "", "display name")
	topicsAddCmd.Flags().StringVar(&topicFlags.emoji, "emoji", "", "header emoji")
	_ = topicsAddCmd.MarkFlagRequired("thread")
	_ = topicsAddCmd.MarkFlagRequired("name")

	topicsCmd.AddCommand(topicsAddCmd, topicsListCmd)
	rootCmd.AddCommand(topicsCmd)
}
