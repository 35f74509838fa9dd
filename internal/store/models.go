package store

import (
	"time"

	"postrelay/internal/classify"
)

// VKSource is a configured VK community to watch.
type VKSource struct {
	ID                 int64
	Name               string
	GroupID            string // numeric id or short name, as configured
	TargetTopic        string
	AllPosts           bool
	Classifier         classify.Strategy
	Keywords           []string
	ExcludeKeywords    []string
	RequireDateOrPrice bool
	Enabled            bool
	CreatedAt          time.Time
}

// Rules returns the classification slice of the source.
func (s VKSource) Rules() classify.Rules {
	return classify.Rules{
		AllPosts:           s.AllPosts,
		Strategy:           s.Classifier,
		TargetTopic:        s.TargetTopic,
		Keywords:           s.Keywords,
		ExcludeKeywords:    s.ExcludeKeywords,
		RequireDateOrPrice: s.RequireDateOrPrice,
	}
}

// TelegramSource is a configured Telegram chat (optionally narrowed to one
// forum thread) to watch.
type TelegramSource struct {
	ID                 int64
	Name               string
	ChatID             int64
	ThreadID           int64 // 0 matches any thread in the chat
	TargetTopic        string
	AllPosts           bool
	Classifier         classify.Strategy
	Keywords           []string
	ExcludeKeywords    []string
	RequireDateOrPrice bool
	ShowAuthor         bool
	Enabled            bool
	CreatedAt          time.Time
}

// Rules returns the classification slice of the source.
func (s TelegramSource) Rules() classify.Rules {
	return classify.Rules{
		AllPosts:           s.AllPosts,
		Strategy:           s.Classifier,
		TargetTopic:        s.TargetTopic,
		Keywords:           s.Keywords,
		ExcludeKeywords:    s.ExcludeKeywords,
		RequireDateOrPrice: s.RequireDateOrPrice,
	}
}
