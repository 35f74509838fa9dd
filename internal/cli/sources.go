package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"postrelay/internal/classify"
	"postrelay/internal/config"
	"postrelay/internal/store"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage watched VK communities and Telegram chats",
}

var addVKFlags = struct {
	name        string
	group       string
	topic       string
	allPosts    bool
	classifier  string
	keywords    []string
	exclude     []string
	requireMark bool
}{}

var addVKCmd = &cobra.Command{
	Use:   "add-vk",
	Short: "Add a VK community",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		id, err := db.AddVKSource(cmd.Context(), store.VKSource{
			Name:               addVKFlags.name,
			GroupID:            addVKFlags.group,
			TargetTopic:        addVKFlags.topic,
			AllPosts:           addVKFlags.allPosts,
			Classifier:         classify.Strategy(addVKFlags.classifier),
			Keywords:           addVKFlags.keywords,
			ExcludeKeywords:    addVKFlags.exclude,
			RequireDateOrPrice: addVKFlags.requireMark,
			Enabled:            true,
		})
		if err != nil {
			return fmt.Errorf("add vk source: %w", err)
		}
		fmt.Printf("Added VK source #%d (%s)\n", id, addVKFlags.group)
		return nil
	},
}

var addTGFlags = struct {
	name        string
	chat        int64
	thread      int64
	topic       string
	allPosts    bool
	classifier  string
	keywords    []string
	exclude     []string
	requireMark bool
	showAuthor  bool
}{}

var addTGCmd = &cobra.Command{
	Use:   "add-tg",
	Short: "Add a Telegram chat",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		id, err := db.AddTelegramSource(cmd.Context(), store.TelegramSource{
			Name:               addTGFlags.name,
			ChatID:             addTGFlags.chat,
			ThreadID:           addTGFlags.thread,
			TargetTopic:        addTGFlags.topic,
			AllPosts:           addTGFlags.allPosts,
			Classifier:         classify.Strategy(addTGFlags.classifier),
			Keywords:           addTGFlags.keywords,
			ExcludeKeywords:    addTGFlags.exclude,
			RequireDateOrPrice: addTGFlags.requireMark,
			ShowAuthor:         addTGFlags.showAuthor,
			Enabled:            true,
		})
		if err != nil {
			return fmt.Errorf("add telegram source: %w", err)
		}
		fmt.Printf("Added Telegram source #%d (chat %d)\n", id, addTGFlags.chat)
		return nil
	},
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		vkSources, err := db.ListVKSources(cmd.Context(), false)
		if err != nil {
			return fmt.Errorf("list vk sources: %w", err)
		}
		tgSources, err := db.ListTelegramSources(cmd.Context(), false)
		if err != nil {
			return fmt.Errorf("list telegram sources: %w", err)
		}

		fmt.Printf("VK sources (%d):\n", len(vkSources))
		for _, src := range vkSources {
			fmt.Printf("  %s %s -> %s (%s)%s\n",
				marker(src.Enabled), src.GroupID, src.TargetTopic, src.Classifier, vkDetails(src))
		}
		fmt.Printf("Telegram sources (%d):\n", len(tgSources))
		for _, src := range tgSources {
			thread := ""
			if src.ThreadID != 0 {
				thread = fmt.Sprintf("/%d", src.ThreadID)
			}
			fmt.Printf("  %s #%d chat %d%s -> %s (%s)\n",
				marker(src.Enabled), src.ID, src.ChatID, thread, src.TargetTopic, src.Classifier)
		}
		return nil
	},
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable (vk|tg) <id>",
	Short: "Enable a source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSourceEnabled(cmd, args, true)
	},
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable (vk|tg) <id>",
	Short: "Disable a source without removing it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSourceEnabled(cmd, args, false)
	},
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove (vk|tg) <id>",
	Short: "Remove a source",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		switch args[0] {
		case "vk":
			return db.RemoveVKSource(cmd.Context(), args[1])
		case "tg":
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("parse source id %q: %w", args[1], err)
			}
			return db.RemoveTelegramSource(cmd.Context(), id)
		}
		return fmt.Errorf("unknown source kind %q (want vk or tg)", args[0])
	},
}

func setSourceEnabled(cmd *cobra.Command, args []string, enabled bool) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	switch args[0] {
	case "vk":
		return db.SetVKSourceEnabled(cmd.Context(), args[1], enabled)
	case "tg":
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parse source id %q: %w", args[1], err)
		}
		return db.SetTelegramSourceEnabled(cmd.Context(), id, enabled)
	}
	return fmt.Errorf("unknown source kind %q (want vk or tg)", args[0])
}

func vkDetails(src store.VKSource) string {
	var parts []string
	if src.AllPosts {
		parts = append(parts, "all posts")
	}
	if src.RequireDateOrPrice {
		parts = append(parts, "date/price required")
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

func marker(enabled bool) string {
	if enabled {
		return "+"
	}
	return "-"
}

// openStore opens the database at the configured storage path.
func openStore() (*store.Store, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

func init() {
	addVKCmd.Flags().StringVar(&addVKFlags.name, "name", "", "display name")
	addVKCmd.Flags().StringVar(&addVKFlags.group, "group", "", "group id or short name")
	addVKCmd.Flags().StringVar(&addVKFlags.topic, "topic", "", "target topic id")
	addVKCmd.Flags().BoolVar(&addVKFlags.allPosts, "all-posts", false, "relay every post")
	addVKCmd.Flags().StringVar(&addVKFlags.classifier, "classifier", "none", "classifier: none, buy_sell, keywords")
	addVKCmd.Flags().StringSliceVar(&addVKFlags.keywords, "keyword", nil, "keyword for the keywords classifier (repeatable)")
	addVKCmd.Flags().StringSliceVar(&addVKFlags.exclude, "exclude", nil, "exclude keyword (repeatable)")
	addVKCmd.Flags().BoolVar(&addVKFlags.requireMark, "require-date-or-price", false, "drop posts without a date or price marker")
	_ = addVKCmd.MarkFlagRequired("name")
	_ = addVKCmd.MarkFlagRequired("group")
	_ = addVKCmd.MarkFlagRequired("topic")

	addTGCmd.Flags().StringVar(&addTGFlags.name, "name", "", "display name")
	addTGCmd.Flags().Int64Var(&addTGFlags.chat, "chat", 0, "chat id")
	addTGCmd.Flags().Int64Var(&addTGFlags.thread, "thread", 0, "forum thread id (0 = any)")
	addTGCmd.Flags().StringVar(&addTGFlags.topic, "topic", "", "target topic id")
	addTGCmd.Flags().BoolVar(&addTGFlags.allPosts, "all-posts", false, "relay every message")
	addTGCmd.Flags().StringVar(&addTGFlags.classifier, "classifier", "buy_sell", "classifier: none, buy_sell, keywords")
	addTGCmd.Flags().StringSliceVar(&addTGFlags.keywords, "keyword", nil, "keyword for the keywords classifier (repeatable)")
	addTGCmd.Flags().StringSliceVar(&addTGFlags.exclude, "exclude", nil, "exclude keyword (repeatable)")
	addTGCmd.Flags().BoolVar(&addTGFlags.requireMark, "require-date-or-price", false, "drop messages without a date or price marker")
	addTGCmd.Flags().BoolVar(&addTGFlags.showAuthor, "show-author", true, "attach an author link to relayed posts")
	_ = addTGCmd.MarkFlagRequired("name")
	_ = addTGCmd.MarkFlagRequired("chat")
	_ = addTGCmd.MarkFlagRequired("topic")

	sourcesCmd.AddCommand(addVKCmd, addTGCmd, sourcesListCmd, sourcesEnableCmd, sourcesDisableCmd, sourcesRemoveCmd)
	rootCmd.AddCommand(sourcesCmd)
}
